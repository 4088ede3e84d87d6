package auth

import (
	"go-leave/internal/config"
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, authn middleware.Authenticator, limits config.RateLimitOptions) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimitByIP(rate.Limit(limits.LoginRPS), limits.LoginBurst), handler.Register)
		auth.POST("/login", middleware.RateLimitByIP(rate.Limit(limits.LoginRPS), limits.LoginBurst), handler.Login)
		auth.GET("/me", middleware.AuthMiddleware(authn), handler.Me)
	}
}
