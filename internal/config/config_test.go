package config_test

import (
	"testing"
	"time"

	"go-leave/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := config.Load()

		assert.NoError(t, err)
		assert.Equal(t, "5000", cfg.HTTP.Port)
		assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
		assert.Equal(t, "Admin User", cfg.Admin.Name)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("negative missing jwt secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := config.Load()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("negative admin email without password", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("ADMIN_EMAIL", "admin@example.com")
		t.Setenv("ADMIN_PASSWORD", "")

		_, err := config.Load()

		assert.Error(t, err)
	})
}

func TestDatabaseOptions_DSN(t *testing.T) {
	d := config.DatabaseOptions{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable", d.DSN())
}
