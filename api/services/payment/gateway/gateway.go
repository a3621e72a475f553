package gateway

import (
	"context"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/money"
)

//go:generate mockgen -source=gateway.go -destination=mock/mock_gateway.go -package=mockgateway

// PaymentGateway abstracts the three gateway operations the checkout flow depends on.
// Methods return values (not pointers) to keep pointer types out of public interfaces.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, token string) (stripe.Customer, error)
	CreateCharge(ctx context.Context, customerID string, amount money.MinorUnits, currency money.Currency, description string) (stripe.Charge, error)
	CreateSubscription(ctx context.Context, customerID, planID string) (stripe.Subscription, error)
}

// Category is the failure class reported by the gateway.
type Category string

const (
	CategoryCard           Category = "card_error"
	CategoryInvalidRequest Category = "invalid_request"
	CategoryAPI            Category = "api_error"
	CategoryRateLimit      Category = "rate_limit"
	CategoryAuthentication Category = "authentication_error"
)

// ErrNoResponse marks failures where the gateway never produced a response
// (connection errors, timeouts, cancellation).
var ErrNoResponse = errors.New("no response from payment gateway")

// Error is a failure reported by the gateway itself. Message is written by the
// gateway for end users and is passed through verbatim.
type Error struct {
	Category   Category
	Message    string
	Param      string
	Code       string
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("gateway %s (%s): %s", e.Category, e.Param, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

type idempotencyKey struct{}

// WithIdempotencyKey attaches the key the adapter sends with the next gateway request.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

// IdempotencyKey returns the key attached by WithIdempotencyKey, if any.
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKey{}).(string)
	return key, ok && key != ""
}
