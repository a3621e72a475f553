package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/tbeaudouin05/stripe-checkout/api/bootstrap"
	"github.com/tbeaudouin05/stripe-checkout/api/router"
	grpcserver "github.com/tbeaudouin05/stripe-checkout/api/services/payment/grpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := bootstrap.Ensure(); err != nil {
		slog.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := bootstrap.Close(); err != nil {
			slog.Error("failed to close database", "err", err)
		}
	}()
	cfg := bootstrap.GetConfig()

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		slog.Error("failed to listen", "port", cfg.GRPCPort, "err", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	grpcserver.Register(grpcServer, bootstrap.GetCheckoutServer())
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.NewRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Checkout.GatewayTimeout*3 + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("gRPC server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC server error", "err", err)
			os.Exit(1)
		}
	}()
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down servers")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced to shutdown", "err", err)
	}
	grpcServer.GracefulStop()
	slog.Info("servers stopped")
}
