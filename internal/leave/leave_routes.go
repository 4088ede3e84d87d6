package leave

import (
	"go-leave/internal/middleware"
	"go-leave/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the leave endpoints. Every route authenticates first, then
// checks the caller's role. idempotency may be nil when no Redis is configured.
func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	authn middleware.Authenticator,
	rbacService rbac.Service,
	userLimit gin.HandlerFunc,
	idempotency gin.HandlerFunc,
) {
	leaves := r.Group("/leaves")
	leaves.Use(middleware.AuthMiddleware(authn))
	if userLimit != nil {
		leaves.Use(userLimit)
	}

	create := []gin.HandlerFunc{middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionCreate)}
	if idempotency != nil {
		create = append(create, idempotency)
	}
	create = append(create, handler.Create)

	{
		leaves.POST("", create...)
		leaves.GET("/my-leaves", middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionReadOwn), handler.ListMine)
		leaves.GET("/all", middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionReadAll), handler.ListAll)
		leaves.PUT("/:id/status", middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionApprove), handler.SetStatus)
	}
}
