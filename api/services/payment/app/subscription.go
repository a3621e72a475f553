package app

import (
	"context"
	"time"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/errs"
	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
)

// SubscriptionProvisioner binds a customer to an existing gateway plan. The gateway
// derives amount and interval from the plan; plans are never created here.
type SubscriptionProvisioner struct {
	gw      gateway.PaymentGateway
	timeout time.Duration
}

func NewSubscriptionProvisioner(g gateway.PaymentGateway, timeout time.Duration) SubscriptionProvisioner {
	return SubscriptionProvisioner{gw: g, timeout: timeout}
}

// Subscribe sends exactly one subscription request and returns the gateway subscription id.
func (p SubscriptionProvisioner) Subscribe(ctx context.Context, submissionID string, customer GatewayCustomer, plan PlanReference) (string, error) {
	if plan == "" {
		return "", configurationError("create subscription", errs.New("plan is not resolved"))
	}

	callCtx, cancel := callContext(ctx, p.timeout, submissionID, "subscription")
	defer cancel()

	s, err := p.gw.CreateSubscription(callCtx, customer.ID, string(plan))
	if err != nil {
		return "", fromGateway("create subscription", err)
	}
	if s.ID == "" {
		return "", fromGateway("create subscription", errNoIdentifier)
	}
	return s.ID, nil
}
