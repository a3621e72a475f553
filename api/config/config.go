package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the process configuration. It is loaded once during bootstrap and
// passed by value to the components that need it.
type Config struct {
	DatabaseURL     string
	StripeSecretKey string
	AuthJWTSecret   string
	// Optional: base URL for running remote HTTP integration tests (e.g., https://api.example.com)
	IntegrationBaseURL string
	// Server ports
	HTTPPort string
	GRPCPort string
	// Logging
	LogLevel  string
	LogFormat string

	Checkout CheckoutConfig
}

// CheckoutConfig holds the server-authoritative checkout tables, keyed by checkout context.
type CheckoutConfig struct {
	DefaultContext string            `envconfig:"DEFAULT_CONTEXT" default:"default"`
	Currency       string            `envconfig:"CURRENCY" default:"usd"`
	Amounts        map[string]int64  `envconfig:"AMOUNTS"`
	Descriptions   map[string]string `envconfig:"DESCRIPTIONS"`
	Plans          map[string]string `envconfig:"PLANS"`
	GatewayTimeout time.Duration     `envconfig:"GATEWAY_TIMEOUT" default:"10s"`
}

// LogValue keeps secrets out of structured logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("database_configured", c.DatabaseURL != ""),
		slog.String("stripe_secret_key", redact(c.StripeSecretKey)),
		slog.String("auth_jwt_secret", redact(c.AuthJWTSecret)),
		slog.String("http_port", c.HTTPPort),
		slog.String("grpc_port", c.GRPCPort),
		slog.String("default_context", c.Checkout.DefaultContext),
		slog.Int("checkout_contexts", len(c.Checkout.Amounts)),
		slog.Int("plans", len(c.Checkout.Plans)),
		slog.Duration("gateway_timeout", c.Checkout.GatewayTimeout),
	)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[redacted]"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (Config, error) {
	config := Config{}

	// Try to load .env file from current directory and parent directories
	currentDir, _ := os.Getwd()
	for currentDir != "/" && currentDir != "." {
		envPath := filepath.Join(currentDir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err = godotenv.Load(envPath); err != nil {
				return Config{}, fmt.Errorf("failed to load .env file: %v", err)
			}
			break
		}
		currentDir = filepath.Dir(currentDir)
	}

	requiredVars := []struct {
		name     string
		envVar   string
		display  string
		required bool
	}{
		{"StripeSecretKey", "STRIPE_SECRET_KEY", "Stripe Secret Key", true},
		{"AuthJWTSecret", "AUTH_JWT_SECRET", "Auth JWT Secret", true},
		// Ledger is disabled without a database
		{"DatabaseURL", "DATABASE_URL", "Database URL", false},
		// Optional integration base URL for remote tests
		{"IntegrationBaseURL", "INTEGRATION_BASE_URL", "Integration Base URL", false},
		{"HTTPPort", "PORT", "HTTP Port", false},
		{"GRPCPort", "GRPC_PORT", "gRPC Port", false},
		{"LogLevel", "LOG_LEVEL", "Log Level", false},
		{"LogFormat", "LOG_FORMAT", "Log Format", false},
	}

	for _, v := range requiredVars {
		value := os.Getenv(v.envVar)
		if v.required && value == "" {
			return Config{}, fmt.Errorf("missing required environment variable: %s", v.display)
		}
		configField := reflect.ValueOf(&config).Elem().FieldByName(v.name)
		configField.SetString(value)
	}

	if err := envconfig.Process("checkout", &config.Checkout); err != nil {
		return Config{}, fmt.Errorf("failed to process checkout config: %w", err)
	}

	// Defaults
	if config.HTTPPort == "" {
		config.HTTPPort = "8080"
	}
	if config.GRPCPort == "" {
		config.GRPCPort = "50051"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "json"
	}

	return config, nil
}
