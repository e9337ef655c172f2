package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskmanager/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "s3cret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "jwt", cfg.Cookie.Name)
	assert.Equal(t, "/", cfg.Cookie.Path)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Contains(t, cfg.Database.URL, "postgres://")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "s3cret")
	t.Setenv("AUTH_ALGORITHM", "HS512")
	t.Setenv("AUTH_TOKEN_TTL", "900")
	t.Setenv("AUTH_COOKIE_NAME", "session")
	t.Setenv("AUTH_COOKIE_SECURE", "true")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/tasks")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, 15*time.Minute, cfg.JWT.TTL)
	assert.Equal(t, "session", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, "postgres://u:p@db:5432/tasks", cfg.Database.URL)
}

func TestLoad_StartupFatalAuthSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"AUTH_SECRET_KEY": ""}},
		{name: "asymmetric algorithm", env: map[string]string{"AUTH_SECRET_KEY": "s", "AUTH_ALGORITHM": "RS256"}},
		{name: "negative ttl", env: map[string]string{"AUTH_SECRET_KEY": "s", "AUTH_TOKEN_TTL": "-1m"}},
		{name: "bcrypt cost too high", env: map[string]string{"AUTH_SECRET_KEY": "s", "PASSWORD_BCRYPT_COST": "99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
