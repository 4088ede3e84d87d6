package middleware

import (
	"context"
	"strings"

	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/domain"
	"go-leave/internal/shared/contextutil"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextIdentity is the gin key holding the authenticated domain.Identity.
const ContextIdentity = "identity"

// Authenticator resolves a bearer token to the caller it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}

		if strings.TrimSpace(tokenString) == "" {
			response.Fail(c, autherrors.ErrTokenNotFound)
			c.Abort()
			return
		}

		id, err := authn.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			response.Fail(c, err)
			c.Abort()
			return
		}

		ctx := contextutil.WithIdentity(c.Request.Context(), id)
		reqLogger := contextutil.GetLogger(ctx, zap.L()).With(
			zap.String("user_id", id.ID),
			zap.String("role", string(id.Role)),
		)
		ctx = contextutil.WithLogger(ctx, reqLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ContextIdentity, id)

		c.Next()
	}
}

// IdentityFrom returns the caller set by AuthMiddleware.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
