package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")
}

func TestLoadConfig_CheckoutTables(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECKOUT_AMOUNTS", "default:500,pro:2500")
	t.Setenv("CHECKOUT_DESCRIPTIONS", "default:Rails Stripe customer,pro:Pro upgrade")
	t.Setenv("CHECKOUT_PLANS", "pro:plan_9999")
	t.Setenv("CHECKOUT_GATEWAY_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"default": 500, "pro": 2500}, cfg.Checkout.Amounts)
	assert.Equal(t, "Pro upgrade", cfg.Checkout.Descriptions["pro"])
	assert.Equal(t, "plan_9999", cfg.Checkout.Plans["pro"])
	assert.Equal(t, 3*time.Second, cfg.Checkout.GatewayTimeout)
	assert.Equal(t, "usd", cfg.Checkout.Currency)
	assert.Equal(t, "default", cfg.Checkout.DefaultContext)
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("GRPC_PORT", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "50051", cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Checkout.GatewayTimeout)
}

func TestLoadConfig_MissingStripeKey(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stripe Secret Key")
}

func TestLoadConfig_MalformedAmount(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECKOUT_AMOUNTS", "default:five")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfig_LogValueRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := Config{StripeSecretKey: "sk_live_secret", AuthJWTSecret: "jwt-secret", DatabaseURL: "postgres://u:p@h/db"}

	logger.Info("config loaded", "config", cfg)

	out := buf.String()
	assert.NotContains(t, out, "sk_live_secret")
	assert.NotContains(t, out, "jwt-secret")
	assert.NotContains(t, out, "postgres://")
	assert.Contains(t, out, "[redacted]")
}

func TestCheckNotProdDB(t *testing.T) {
	assert.Error(t, CheckNotProdDB(""))
	assert.Error(t, CheckNotProdDB("postgres://u:p@old-cloud.example/db"))
	assert.NoError(t, CheckNotProdDB("postgres://u:p@localhost/db"))
}
