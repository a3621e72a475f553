package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/protobuf/encoding/protojson"

	bootstrap "github.com/tbeaudouin05/stripe-checkout/api/bootstrap"
	grpcserver "github.com/tbeaudouin05/stripe-checkout/api/services/payment/grpc"
)

// NewRouter returns the central HTTP router for the API. Checkout routes are
// served by the grpc-gateway mux bound to the in-process CheckoutService.
func NewRouter() http.Handler {
	// Initialize app dependencies (non-fatal if it fails here; /api answers 503).
	if err := bootstrap.Ensure(); err != nil {
		slog.Error("bootstrap ensure failed", "err", err)
	}
	return newRouter(bootstrap.GetCheckoutServer())
}

func newRouter(srv *grpcserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if srv == nil {
		r.HandleFunc("/api/*", func(w http.ResponseWriter, _ *http.Request) {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "service unavailable"})
		})
	} else {
		r.Mount("/api", gatewayMux(srv))
	}

	return otelhttp.NewHandler(r, "checkout-http")
}

func gatewayMux(srv *grpcserver.Server) *runtime.ServeMux {
	mux := runtime.NewServeMux(
		runtime.WithIncomingHeaderMatcher(grpcserver.HeaderMatcher),
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			MarshalOptions:   protojson.MarshalOptions{EmitUnpopulated: true},
			UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
		}),
	)
	if err := grpcserver.RegisterGateway(context.Background(), mux, srv); err != nil {
		slog.Error("failed to register grpc-gateway", "err", err)
	}
	return mux
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
