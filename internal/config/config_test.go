package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":  "redis://localhost:6379/0",
		"JWT_SECRET": "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "admin", cfg.AdminUsername)
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, "+53 54690878", cfg.StoreWhatsApp)
	require.Equal(t, "America/Havana", cfg.Timezone)
	require.Equal(t, 99, cfg.CartMaxQty)
	require.Equal(t, "notifications", cfg.QueueName)
	require.False(t, cfg.IsProduction())
	require.False(t, cfg.PprofEnabled)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ":9090"
	env["STORE_NAME"] = "Tienda Oriente"
	env["STORE_EMAIL"] = "pedidos@tienda.test"
	env["CORS_ALLOWED_ORIGINS"] = "https://tienda.test, https://admin.tienda.test ,"
	env["CART_MAX_QTY"] = "12"
	env["CHECKOUT_RATE_PER_MINUTE"] = "not-a-number"
	env["SESSION_TTL"] = "48h"
	env["OTEL_SAMPLE_RATIO"] = "0.25"
	env["APP_ENV"] = "production"
	env["ENABLE_PPROF"] = "yes"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "Tienda Oriente", cfg.StoreName)
	require.Equal(t, "pedidos@tienda.test", cfg.StoreEmail)
	require.Equal(t, []string{"https://tienda.test", "https://admin.tienda.test"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 12, cfg.CartMaxQty)
	require.Equal(t, 10, cfg.CheckoutRPM)
	require.Equal(t, 48*time.Hour, cfg.SessionTTL)
	require.InDelta(t, 0.25, cfg.OTelSampleRatio, 1e-9)
	require.True(t, cfg.IsProduction())
	require.True(t, cfg.PprofEnabled)
}

func TestLoadRequiresSecrets(t *testing.T) {
	env := baseEnv()
	env["REDIS_URL"] = ""
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "REDIS_URL")

	env = baseEnv()
	env["JWT_SECRET"] = ""
	_, err = config.LoadForTests(env)
	require.ErrorContains(t, err, "JWT_SECRET")

	env = baseEnv()
	env["STORE_TIMEZONE"] = "Mars/Olympus"
	_, err = config.LoadForTests(env)
	require.ErrorContains(t, err, "STORE_TIMEZONE")
}
