package app

import (
	"context"
	"errors"
	"time"

	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
)

var errNoIdentifier = errors.New("gateway returned no identifier")

// callContext bounds a single gateway call. A zero timeout leaves ctx as is.
func callContext(ctx context.Context, timeout time.Duration, submissionID, step string) (context.Context, context.CancelFunc) {
	if submissionID != "" {
		ctx = gateway.WithIdempotencyKey(ctx, submissionID+"-"+step)
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// CustomerProvisioner exchanges a payment token for a gateway customer.
// Every call creates a new customer; customers are not looked up by email.
type CustomerProvisioner struct {
	gw      gateway.PaymentGateway
	timeout time.Duration
}

func NewCustomerProvisioner(g gateway.PaymentGateway, timeout time.Duration) CustomerProvisioner {
	return CustomerProvisioner{gw: g, timeout: timeout}
}

// Provision sends exactly one customer-creation request.
func (p CustomerProvisioner) Provision(ctx context.Context, submissionID, email, token string) (GatewayCustomer, error) {
	callCtx, cancel := callContext(ctx, p.timeout, submissionID, "customer")
	defer cancel()

	cust, err := p.gw.CreateCustomer(callCtx, email, token)
	if err != nil {
		return GatewayCustomer{}, fromGateway("create customer", err)
	}
	if cust.ID == "" {
		return GatewayCustomer{}, fromGateway("create customer", errNoIdentifier)
	}
	return GatewayCustomer{ID: cust.ID, Email: email}, nil
}
