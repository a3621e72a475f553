package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tbeaudouin05/stripe-checkout/api/auth"
	"github.com/tbeaudouin05/stripe-checkout/api/config"
	"github.com/tbeaudouin05/stripe-checkout/api/database"
	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/app"
	paymentdb "github.com/tbeaudouin05/stripe-checkout/api/services/payment/db"
	stripegw "github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway/stripe"
	grpcserver "github.com/tbeaudouin05/stripe-checkout/api/services/payment/grpc"
)

var (
	appConfig      config.Config
	checkoutServer *grpcserver.Server
	ledgerDB       *sql.DB
	initOnce       sync.Once
	initErr        error
)

// Init loads config, opens the ledger database when configured, and wires the
// checkout server.
func Init() error {
	// If a server has already been injected (e.g., tests), do not init heavy deps.
	if checkoutServer != nil {
		return nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	appConfig = cfg

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg)

	catalog, err := app.NewStaticCatalog(cfg.Checkout)
	if err != nil {
		return fmt.Errorf("invalid checkout configuration: %w", err)
	}

	opts := []grpcserver.Option{grpcserver.WithLogger(logger)}
	if cfg.DatabaseURL != "" {
		conn, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := database.Migrate(conn); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		ledgerDB = conn
		opts = append(opts, grpcserver.WithRecorder(paymentdb.NewStore(conn)))
	} else {
		logger.Warn("DATABASE_URL not set; checkout ledger disabled")
	}

	stripegw.SetKey(cfg.StripeSecretKey)

	svc := app.NewService(stripegw.New(), catalog, app.Options{
		Authenticator:  auth.NewJWTAuthenticator(cfg.AuthJWTSecret),
		Logger:         logger,
		GatewayTimeout: cfg.Checkout.GatewayTimeout,
		DefaultContext: app.ContextID(cfg.Checkout.DefaultContext),
	})
	checkoutServer = grpcserver.New(svc, opts...)
	return nil
}

func GetCheckoutServer() *grpcserver.Server { return checkoutServer }

// SetCheckoutServer allows tests to inject a server backed by a stub service.
func SetCheckoutServer(s *grpcserver.Server) { checkoutServer = s }

// GetConfig returns the configuration loaded by Init.
func GetConfig() config.Config { return appConfig }

// Ensure runs Init() once per process and returns any initialization error.
func Ensure() error {
	initOnce.Do(func() {
		initErr = Init()
	})
	return initErr
}

// Close releases the ledger connection, if any.
func Close() error {
	if ledgerDB == nil {
		return nil
	}
	return ledgerDB.Close()
}
