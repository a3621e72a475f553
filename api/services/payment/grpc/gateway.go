package grpcserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	checkoutPath        = "/api/checkout"
	checkoutContextPath = "/api/checkout/{context}"
)

// HeaderMatcher forwards the request id along with the gateway's default headers.
func HeaderMatcher(key string) (string, bool) {
	if strings.EqualFold(key, "X-Request-Id") {
		return "x-request-id", true
	}
	return runtime.DefaultHeaderMatcher(key)
}

type unaryMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

// RegisterGateway exposes srv over HTTP on mux. Calls are made in-process,
// without a client connection.
func RegisterGateway(_ context.Context, mux *runtime.ServeMux, srv CheckoutServiceServer) error {
	routes := []struct {
		method   string
		pattern  string
		rpc      string
		call     unaryMethod
		withBody bool
	}{
		{http.MethodPost, checkoutPath, submitFullMethod, srv.Submit, true},
		{http.MethodPost, checkoutContextPath, submitFullMethod, srv.Submit, true},
		{http.MethodGet, checkoutPath, quoteFullMethod, srv.Quote, false},
		{http.MethodGet, checkoutContextPath, quoteFullMethod, srv.Quote, false},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, gatewayHandler(mux, r.pattern, r.rpc, r.call, r.withBody)); err != nil {
			return err
		}
	}
	return nil
}

func gatewayHandler(mux *runtime.ServeMux, pattern, rpc string, call unaryMethod, withBody bool) runtime.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request, pathParams map[string]string) {
		ctx, cancel := context.WithCancel(req.Context())
		defer cancel()
		inbound, outbound := runtime.MarshalerForRequest(mux, req)

		in := &structpb.Struct{}
		if withBody {
			if err := inbound.NewDecoder(req.Body).Decode(in); err != nil && !errors.Is(err, io.EOF) {
				runtime.HTTPError(ctx, mux, outbound, w, req, status.Errorf(codes.InvalidArgument, "invalid request body: %v", err))
				return
			}
		}
		if in.Fields == nil {
			in.Fields = map[string]*structpb.Value{}
		}
		if c, ok := pathParams["context"]; ok {
			in.Fields["context"] = structpb.NewStringValue(c)
		}

		annotated, err := runtime.AnnotateIncomingContext(ctx, mux, req, rpc, runtime.WithHTTPPathPattern(pattern))
		if err != nil {
			runtime.HTTPError(ctx, mux, outbound, w, req, err)
			return
		}
		var md runtime.ServerMetadata
		annotated = runtime.NewServerMetadataContext(annotated, md)

		resp, err := call(annotated, in)
		if err != nil {
			runtime.HTTPError(annotated, mux, outbound, w, req, err)
			return
		}
		runtime.ForwardResponseMessage(annotated, mux, outbound, w, req, resp)
	}
}
