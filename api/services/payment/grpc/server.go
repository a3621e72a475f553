package grpcserver

import (
	"context"
	"log/slog"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/app"
)

const errorDomain = "checkout"

// Recorder persists transaction results. A nil Recorder disables the ledger.
type Recorder interface {
	RecordResult(ctx context.Context, res app.TransactionResult) error
}

// Server adapts the checkout service to CheckoutServiceServer.
type Server struct {
	svc        app.Service
	translator app.ErrorTranslator
	recorder   Recorder
	logger     *slog.Logger
}

type Option func(*Server)

func WithRecorder(r Recorder) Option { return func(s *Server) { s.recorder = r } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

func New(svc app.Service, opts ...Option) *Server {
	s := &Server{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.translator = app.NewErrorTranslator(s.logger)
	return s
}

func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.Checkout(ctx, submissionFromStruct(in))
	s.record(ctx, res)
	if err != nil {
		return nil, s.statusError(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"kind":            string(res.Kind),
		"submission_id":   res.SubmissionID,
		"customer_id":     res.CustomerID,
		"charge_id":       res.ChargeID,
		"subscription_id": res.SubscriptionID,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func (s *Server) Quote(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	q, err := s.svc.Quote(app.ContextID(stringField(in, "context")))
	if err != nil {
		return nil, s.statusError(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"context":     string(q.ContextID),
		"amount":      q.Amount.Int64(),
		"currency":    string(q.Currency),
		"description": q.Description,
		"display":     q.Display,
		"plan_id":     string(q.PlanID),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// record writes the result to the ledger. Ledger failures never change the
// outcome returned to the caller.
func (s *Server) record(ctx context.Context, res app.TransactionResult) {
	if s.recorder == nil || res.SubmissionID == "" {
		return
	}
	if err := s.recorder.RecordResult(context.WithoutCancel(ctx), res); err != nil {
		s.logger.Error("failed to record checkout", "submission_id", res.SubmissionID, "err", err)
	}
}

func (s *Server) statusError(err error) error {
	out := s.translator.Translate(err)

	code := codes.Unavailable
	switch out.Kind {
	case app.KindValidation:
		code = codes.InvalidArgument
	case app.KindCard:
		code = codes.FailedPrecondition
	case app.KindConfiguration:
		code = codes.Internal
	case app.KindUnauthenticated:
		code = codes.Unauthenticated
	}

	st := status.New(code, out.Message)
	details := []protoadapt.MessageV1{&errdetails.ErrorInfo{
		Reason:   string(out.Kind),
		Domain:   errorDomain,
		Metadata: map[string]string{"redisplay_form": boolString(out.RedisplayForm)},
	}}
	if out.Kind == app.KindValidation && out.Field != "" {
		details = append(details, &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: out.Field, Description: out.Message}},
		})
	}
	withDetails, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}

func submissionFromStruct(in *structpb.Struct) app.CheckoutSubmission {
	return app.CheckoutSubmission{
		ContextID:    app.ContextID(stringField(in, "context")),
		Email:        stringField(in, "email"),
		PaymentToken: stringField(in, "payment_token", "paymentToken"),
		Subscription: boolField(in, "subscription"),
		PlanID:       stringField(in, "plan", "plan_id", "planId"),
	}
}

// stringField returns the first non-empty string among keys.
func stringField(in *structpb.Struct, keys ...string) string {
	for _, k := range keys {
		if v, ok := in.GetFields()[k]; ok {
			if s := v.GetStringValue(); s != "" {
				return s
			}
		}
	}
	return ""
}

// boolField reads a JSON bool; any other value counts as false.
func boolField(in *structpb.Struct, key string) bool {
	return in.GetFields()[key].GetBoolValue()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
