package app

import (
	"context"
	"time"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/errs"
	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
)

// ChargeProcessor creates one-time charges for an authoritative AmountSpec.
type ChargeProcessor struct {
	gw      gateway.PaymentGateway
	timeout time.Duration
}

func NewChargeProcessor(g gateway.PaymentGateway, timeout time.Duration) ChargeProcessor {
	return ChargeProcessor{gw: g, timeout: timeout}
}

// Charge sends exactly one charge request and returns the gateway charge id.
func (p ChargeProcessor) Charge(ctx context.Context, submissionID string, customer GatewayCustomer, spec AmountSpec) (string, error) {
	if spec.Amount <= 0 || spec.Currency == "" {
		return "", configurationError("create charge", errs.New("amount spec is not resolved"))
	}

	callCtx, cancel := callContext(ctx, p.timeout, submissionID, "charge")
	defer cancel()

	ch, err := p.gw.CreateCharge(callCtx, customer.ID, spec.Amount, spec.Currency, spec.Description)
	if err != nil {
		return "", fromGateway("create charge", err)
	}
	if ch.ID == "" {
		return "", fromGateway("create charge", errNoIdentifier)
	}
	return ch.ID, nil
}
