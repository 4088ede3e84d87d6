package auth

import (
	"net/http"

	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
	secure  bool
}

// NewHandler builds the auth handler. secure marks the access_token cookie as
// Secure, which production deployments behind TLS should enable.
func NewHandler(s Service, secure bool) *Handler {
	return &Handler{service: s, secure: secure}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperror.MapValidationError(err))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "User registered successfully", res, nil)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, apperror.MapValidationError(err))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     "access_token",
		Value:    res.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	response.Success(c, http.StatusOK, "Login successful", res, nil)
}

func (h *Handler) Me(c *gin.Context) {
	id, ok := contextutil.GetIdentity(c.Request.Context())
	if !ok {
		response.Fail(c, autherrors.ErrTokenNotFound)
		return
	}

	response.Success(c, http.StatusOK, "", UserResponse{
		ID:    id.ID,
		Name:  id.Name,
		Email: id.Email,
		Role:  string(id.Role),
	}, nil)
}
