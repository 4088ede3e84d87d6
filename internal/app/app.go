package app

import (
	"database/sql"

	"go-leave/internal/audit"
	"go-leave/internal/config"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/rbac"
	"go-leave/internal/rbac/infra"
	"go-leave/internal/shared/connection"
	"go-leave/internal/shared/metrics"
	"go-leave/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the process-wide dependencies the API needs after wiring.
type App struct {
	Config *config.Configuration
	DB     *gorm.DB
	SQL    *sql.DB
	Redis  *redis.Client
	Audit  audit.Logger

	closers []func() error
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

func BuildApp(router *gin.Engine, cfg *config.Configuration) (*App, error) {
	log := zap.L().Named("app")
	a := &App{Config: cfg}

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database.DSN(), cfg.Database.MaxRetries)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	a.DB, a.SQL = gormDB, sqlDB
	a.closers = append(a.closers, sqlDB.Close)

	if err := migrate(gormDB); err != nil {
		a.Close()
		return nil, err
	}
	log.Info("database ready")

	if cfg.RedisAddr != "" {
		rdb, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.Database.MaxRetries)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Redis = rdb
		a.closers = append(a.closers, rdb.Close)
	} else {
		log.Info("REDIS_ADDR not set, idempotent create disabled")
	}

	auditLogger, err := NewAuditLogger(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Audit = auditLogger
	a.closers = append(a.closers, auditLogger.Sync)

	metrics.MustRegister()

	if err := registerModules(router, a); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&user.User{},
		&leave.Leave{},
		&leave.AuditEntry{},
		&kafka.OutboxEventModel{},
	)
}

// NewAuditLogger writes to AUDIT_LOG_FILE when set, stdout otherwise.
func NewAuditLogger(cfg *config.Configuration) (*audit.ZapLogger, error) {
	if cfg.AuditLogFile != "" {
		return audit.NewFileLogger(cfg.AuditLogFile)
	}
	return audit.NewStdoutLogger(), nil
}

func newRBACService() (rbac.Service, error) {
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return nil, err
	}
	return rbac.NewService(enforcer, rbac.DefaultPolicy)
}
