package middleware

import (
	autherrors "go-leave/internal/auth/errors"
	"go-leave/internal/domain"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// RBACService is satisfied by anything that can decide an EnforceRequest.
type RBACService interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

// RBACAuthorize admits the request only when the caller's role is granted action on
// resource. It must run after AuthMiddleware.
func RBACAuthorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			response.Fail(c, autherrors.ErrTokenNotFound)
			c.Abort()
			return
		}

		allowed, err := service.Enforce(domain.EnforceRequest{
			Role:     id.Role,
			Resource: resource,
			Action:   action,
		})
		if err != nil {
			response.Fail(c, err)
			c.Abort()
			return
		}

		if !allowed {
			response.Fail(c, autherrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
