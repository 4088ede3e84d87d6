package leave

import (
	"context"
	"net/http"

	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/domain"
	"go-leave/internal/middleware"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("leave.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Status < http.StatusInternalServerError {
		h.logger.Warn("leave request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", httpErr.Status),
			zap.String("code", httpErr.Code),
		)
	}
	response.Fail(c, err)
}

func (h *Handler) Create(c *gin.Context) {
	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		h.writeServiceError(c, autherrors.ErrTokenNotFound)
		return
	}
	h.logger.Debug("http create leave", zap.String("employee_id", caller.ID))

	var req CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Leave request created", resp, nil)
}

func (h *Handler) ListMine(c *gin.Context) {
	h.list(c, h.service.ListMine)
}

func (h *Handler) ListAll(c *gin.Context) {
	h.list(c, h.service.ListAll)
}

type listFunc func(ctx context.Context, caller domain.Identity, q ListQuery) ([]LeaveResponse, int64, error)

func (h *Handler) list(c *gin.Context, fetch listFunc) {
	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		h.writeServiceError(c, autherrors.ErrTokenNotFound)
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}
	if q.Paged() && q.Page == 0 {
		q.Page = 1
	}

	resp, total, err := fetch(c.Request.Context(), caller, q)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	meta := response.NewListMeta(len(resp))
	if q.Paged() {
		meta = response.NewPaginationMeta(len(resp), total, q.Page, q.PageSize)
	}
	response.Success(c, http.StatusOK, "", resp, &meta)
}

func (h *Handler) SetStatus(c *gin.Context) {
	caller, ok := middleware.IdentityFrom(c)
	if !ok {
		h.writeServiceError(c, autherrors.ErrTokenNotFound)
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.SetStatus(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Leave status updated", resp, nil)
}
