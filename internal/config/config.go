package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const Production = "production"

type DatabaseOptions struct {
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"5432"`
	User       string `env:"DB_USER" envDefault:"postgres"`
	Password   string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name       string `env:"DB_NAME" envDefault:"go_leave"`
	SSLMode    string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxRetries int    `env:"DB_MAX_RETRIES" envDefault:"5"`
}

type HTTPOptions struct {
	Port         string        `env:"PORT" envDefault:"5000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

type AuthOptions struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// AdminOptions seeds the first admin account on startup. Seeding is skipped when
// Email is empty.
type AdminOptions struct {
	Name     string `env:"ADMIN_NAME" envDefault:"Admin User"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

type RateLimitOptions struct {
	LoginRPS   float64 `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"0.2"`
	LoginBurst int     `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`
	UserRPS    float64 `env:"RATE_LIMIT_USER_RPS" envDefault:"5"`
	UserBurst  int     `env:"RATE_LIMIT_USER_BURST" envDefault:"10"`
}

type Configuration struct {
	AppEnv       string `env:"APP_ENV" envDefault:"development"`
	RedisAddr    string `env:"REDIS_ADDR"`
	KafkaBroker  string `env:"KAFKA_BROKER"`
	AuditLogFile string `env:"AUDIT_LOG_FILE"`

	Database  DatabaseOptions
	HTTP      HTTPOptions
	Auth      AuthOptions
	Admin     AdminOptions
	RateLimit RateLimitOptions
}

// Load reads .env (when present) and then the process environment.
func Load() (*Configuration, error) {
	_ = godotenv.Load()

	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return nil
}

func (c *Configuration) IsProduction() bool {
	return c.AppEnv == Production
}

func (d DatabaseOptions) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}
