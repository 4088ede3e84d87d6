package app

import (
	"context"
	"net/http"

	"go-leave/internal/auth"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/middleware"
	"go-leave/internal/shared/response"
	"go-leave/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiName = "go-leave API"

func registerModules(router *gin.Engine, a *App) error {
	cfg := a.Config

	router.Use(middleware.ContextLogger(zap.L()), middleware.Metrics())

	// --- Repositories ---
	userRepo := user.NewRepository(a.DB)
	leaveRepo := leave.NewRepository(a.DB)
	outboxRepo := kafka.NewOutboxRepository(a.SQL)

	// --- RBAC Core ---
	rbacService, err := newRBACService()
	if err != nil {
		return err
	}

	// --- Services ---
	authService := auth.NewService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	leaveService := leave.NewServiceWithOutbox(a.SQL, leaveRepo, outboxRepo, a.Audit)

	if cfg.Admin.Email != "" {
		created, err := authService.EnsureAdmin(context.Background(), cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return err
		}
		if created {
			zap.L().Info("admin account seeded", zap.String("email", cfg.Admin.Email))
		}
	}

	// --- Handlers ---
	authHandler := auth.NewHandler(authService, cfg.IsProduction())
	leaveHandler := leave.NewHandler(leaveService)

	var idempotency gin.HandlerFunc
	if a.Redis != nil {
		idempotency = middleware.Idempotency(a.Redis)
	}
	userLimit := middleware.RateLimitByUser(rate.Limit(cfg.RateLimit.UserRPS), cfg.RateLimit.UserBurst)

	// --- Routes Registration ---
	router.GET("/", func(c *gin.Context) {
		response.Success(c, http.StatusOK, apiName, nil, nil)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	root := router.Group("")
	{
		auth.RegisterRoutes(root, authHandler, authService, cfg.RateLimit)
		leave.RegisterRoutes(root, leaveHandler, authService, rbacService, userLimit, idempotency)
	}

	return nil
}
