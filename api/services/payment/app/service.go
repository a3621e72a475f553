package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
)

// Service defines the business operations for the checkout domain.
type Service interface {
	Checkout(ctx context.Context, s CheckoutSubmission) (TransactionResult, error)
	Quote(id ContextID) (Quote, error)
}

// Catalog is the read-only checkout configuration: amounts, plans and quotes.
type Catalog interface {
	AmountAuthority
	PlanCatalog
	Quote(id ContextID) (Quote, error)
}

// Authenticator is the authentication gate. Implementations read credentials
// from the request context.
type Authenticator interface {
	Authenticate(ctx context.Context) (Identity, error)
}

// Options configures NewService. Zero values fall back to defaults.
type Options struct {
	Authenticator  Authenticator
	Logger         *slog.Logger
	GatewayTimeout time.Duration
	DefaultContext ContextID
	// NewID generates submission ids; defaults to uuid.NewString.
	NewID func() string
}

// serviceImpl is a concrete implementation. All fields are read-only after
// construction, so one instance serves concurrent requests.
type serviceImpl struct {
	catalog        Catalog
	auth           Authenticator
	router         TransactionRouter
	logger         *slog.Logger
	defaultContext ContextID
	newID          func() string
}

func NewService(g gateway.PaymentGateway, catalog Catalog, opts Options) Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return serviceImpl{
		catalog: catalog,
		auth:    opts.Authenticator,
		router: NewTransactionRouter(
			NewCustomerProvisioner(g, opts.GatewayTimeout),
			NewChargeProcessor(g, opts.GatewayTimeout),
			NewSubscriptionProvisioner(g, opts.GatewayTimeout),
			logger,
		),
		logger:         logger,
		defaultContext: opts.DefaultContext,
		newID:          newID,
	}
}

// checkoutState is threaded through the pipeline stages of one submission.
type checkoutState struct {
	id         string
	submission CheckoutSubmission
	resolved   resolvedCheckout
	result     TransactionResult
}

type stage func(ctx context.Context, st *checkoutState) error

// Checkout runs intake, authenticate, resolve context and dispatch in order.
// The returned error is the result's Err, or nil on success.
func (s serviceImpl) Checkout(ctx context.Context, sub CheckoutSubmission) (TransactionResult, error) {
	if sub.ContextID == "" {
		sub.ContextID = s.defaultContext
	}
	st := &checkoutState{id: s.newID(), submission: sub}

	for _, run := range []stage{s.intake, s.authenticate, s.resolveContext, s.dispatch} {
		if err := run(ctx, st); err != nil {
			st.result = failed(TransactionResult{
				SubmissionID: st.id,
				ContextID:    sub.ContextID,
				Flow:         st.resolved.submission.Flow,
				AccountEmail: st.resolved.identity.Email,
				PayerEmail:   st.resolved.submission.Email,
			}, err)
			break
		}
	}

	s.logResult(st.result)
	if st.result.Err != nil {
		return st.result, st.result.Err
	}
	return st.result, nil
}

func (s serviceImpl) intake(_ context.Context, st *checkoutState) error {
	v, err := ValidateSubmission(st.submission)
	if err != nil {
		return err
	}
	st.resolved.submission = v
	return nil
}

func (s serviceImpl) authenticate(ctx context.Context, st *checkoutState) error {
	if s.auth == nil {
		return unauthenticatedError(nil)
	}
	id, err := s.auth.Authenticate(ctx)
	if err != nil {
		return unauthenticatedError(err)
	}
	st.resolved.identity = id
	return nil
}

// resolveContext attaches the authoritative amount or plan before any gateway
// call, so a configuration defect never leaves a customer behind.
func (s serviceImpl) resolveContext(_ context.Context, st *checkoutState) error {
	v := st.resolved.submission
	switch v.Flow {
	case FlowSubscription:
		plan, err := s.catalog.Plan(v.ContextID)
		if err != nil {
			return err
		}
		if v.PlanHint != "" && v.PlanHint != string(plan) {
			return validationError("plan", "The selected plan is not available for this checkout.")
		}
		st.resolved.plan = plan
	default:
		spec, err := s.catalog.Resolve(v.ContextID)
		if err != nil {
			return err
		}
		st.resolved.amount = spec
	}
	st.resolved.id = st.id
	return nil
}

// dispatch always produces a result; gateway failures are carried inside it.
func (s serviceImpl) dispatch(ctx context.Context, st *checkoutState) error {
	st.result = s.router.Route(ctx, st.resolved)
	return nil
}

func (s serviceImpl) logResult(res TransactionResult) {
	attrs := []any{
		"submission_id", res.SubmissionID,
		"context_id", res.ContextID,
		"flow", res.Flow.String(),
		"result", res.Kind,
	}
	if res.CustomerID != "" {
		attrs = append(attrs, "customer_id", res.CustomerID)
	}
	switch res.Kind {
	case ResultChargeSucceeded:
		s.logger.Info("checkout charge succeeded", append(attrs, "charge_id", res.ChargeID, "amount", int64(res.Amount.Amount), "currency", res.Amount.Currency)...)
	case ResultSubscriptionCreated:
		s.logger.Info("checkout subscription created", append(attrs, "subscription_id", res.SubscriptionID)...)
	default:
		s.logger.Info("checkout failed", append(attrs, "error_kind", res.Err.Kind)...)
	}
}

func (s serviceImpl) Quote(id ContextID) (Quote, error) {
	if id == "" {
		id = s.defaultContext
	}
	return s.catalog.Quote(id)
}
