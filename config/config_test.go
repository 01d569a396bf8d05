package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")

	cfg, err := Load()
	assert.NoError(t, err)
	check.Equal(t, "8080", cfg.Server.Port)
	check.Equal(t, "*", cfg.Server.AllowedOrigins)
	check.Equal(t, 4, cfg.Server.BodyLimitMB)
	check.Equal(t, 5432, cfg.DB.Port)
	check.Equal(t, 24*time.Hour, cfg.JWT.TTL())
	check.Equal(t, 4, cfg.Webhook.Workers)
	check.Equal(t, 10*time.Second, cfg.Webhook.Timeout())
	check.Equal(t, 5*time.Minute, cfg.Bidding.ReconcileInterval)
	check.Equal(t, 64, cfg.Bidding.CurrencyCacheSize)
	check.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("PORT", "9000")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "bids")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WEBHOOK_WORKERS", "2")
	t.Setenv("BIDDING_RECONCILE_INTERVAL", "30s")

	cfg, err := Load()
	assert.NoError(t, err)
	check.Equal(t, "9000", cfg.Server.Port)
	check.Equal(t, 6543, cfg.DB.Port)
	check.Equal(t, 2, cfg.Webhook.Workers)
	check.Equal(t, 30*time.Second, cfg.Bidding.ReconcileInterval)
	check.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	check.Equal(t, "host=localhost user= password= dbname=bids port=6543 sslmode=disable TimeZone=UTC", cfg.DB.DSN())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET_KEY": ""}},
		{name: "no workers", env: map[string]string{"JWT_SECRET_KEY": "s", "WEBHOOK_WORKERS": "0"}},
		{name: "no cache", env: map[string]string{"JWT_SECRET_KEY": "s", "CURRENCY_CACHE_SIZE": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			check.Error(t, err)
		})
	}
}
