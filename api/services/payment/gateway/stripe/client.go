package stripegw

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/charge"
	"github.com/stripe/stripe-go/customer"
	"github.com/stripe/stripe-go/sub"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/money"
	gw "github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
)

// SetKey configures the Stripe SDK key once during bootstrap.
func SetKey(key string) { stripe.Key = key }

// client is the Stripe SDK-backed implementation of the gateway.
type client struct{}

// New returns a PaymentGateway backed by the official Stripe SDK.
func New() gw.PaymentGateway { return client{} }

func (client) CreateCustomer(ctx context.Context, email, token string) (stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email:  stripe.String(email),
		Source: &stripe.SourceParams{Token: stripe.String(token)},
	}
	withRequestContext(ctx, &params.Params)
	custPtr, err := customer.New(params)
	if err != nil {
		return stripe.Customer{}, classify(err)
	}
	if custPtr == nil {
		return stripe.Customer{}, nil
	}
	return *custPtr, nil
}

func (client) CreateCharge(ctx context.Context, customerID string, amount money.MinorUnits, currency money.Currency, description string) (stripe.Charge, error) {
	params := &stripe.ChargeParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(amount.Int64()),
		Currency:    stripe.String(string(currency)),
		Description: stripe.String(description),
	}
	withRequestContext(ctx, &params.Params)
	chPtr, err := charge.New(params)
	if err != nil {
		return stripe.Charge{}, classify(err)
	}
	if chPtr == nil {
		return stripe.Charge{}, nil
	}
	return *chPtr, nil
}

func (client) CreateSubscription(ctx context.Context, customerID, planID string) (stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Plan: stripe.String(planID)},
		},
	}
	withRequestContext(ctx, &params.Params)
	subPtr, err := sub.New(params)
	if err != nil {
		return stripe.Subscription{}, classify(err)
	}
	if subPtr == nil {
		return stripe.Subscription{}, nil
	}
	return *subPtr, nil
}

// withRequestContext binds the SDK request to ctx so deadlines and cancellation
// abort the HTTP call, and forwards the idempotency key.
func withRequestContext(ctx context.Context, p *stripe.Params) {
	p.Context = ctx
	if key, ok := gw.IdempotencyKey(ctx); ok {
		p.IdempotencyKey = stripe.String(key)
	}
}

// classify converts SDK errors into gateway errors. Anything that is not a
// *stripe.Error never reached the API and is reported as ErrNoResponse.
func classify(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %w", gw.ErrNoResponse, err)
	}
	return &gw.Error{
		Category:   category(se),
		Message:    se.Msg,
		Param:      se.Param,
		Code:       string(se.Code),
		HTTPStatus: se.HTTPStatusCode,
		Err:        err,
	}
}

func category(se *stripe.Error) gw.Category {
	switch string(se.Type) {
	case "card_error":
		return gw.CategoryCard
	case "rate_limit_error":
		return gw.CategoryRateLimit
	case "authentication_error", "more_permissions_required":
		return gw.CategoryAuthentication
	case "invalid_request_error", "idempotency_error":
		switch se.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return gw.CategoryRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return gw.CategoryAuthentication
		}
		return gw.CategoryInvalidRequest
	default:
		if se.HTTPStatusCode == http.StatusTooManyRequests {
			return gw.CategoryRateLimit
		}
		return gw.CategoryAPI
	}
}
