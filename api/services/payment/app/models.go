package app

import (
	"github.com/tbeaudouin05/stripe-checkout/api/pkg/money"
)

// ContextID names a checkout context (a product or price point) configured server side.
type ContextID string

// CheckoutSubmission is what the web layer hands over for one checkout attempt.
// It lives for a single request and is never persisted.
type CheckoutSubmission struct {
	ContextID    ContextID
	Email        string
	PaymentToken string
	Subscription bool
	// PlanID is an optional client hint. It is only ever compared against the
	// configured plan and never used to bill.
	PlanID string
}

// Flow is decided once at intake and carried through the rest of the checkout.
type Flow int

const (
	FlowCharge Flow = iota
	FlowSubscription
)

func (f Flow) String() string {
	switch f {
	case FlowCharge:
		return "charge"
	case FlowSubscription:
		return "subscription"
	default:
		return "unknown"
	}
}

// ValidatedSubmission is a submission that passed intake.
type ValidatedSubmission struct {
	ContextID    ContextID
	Email        string
	PaymentToken string
	Flow         Flow
	PlanHint     string
}

// AmountSpec is the authoritative price of a checkout context.
type AmountSpec struct {
	Amount      money.MinorUnits
	Currency    money.Currency
	Description string
}

// PlanReference is a gateway plan identifier created out of band.
type PlanReference string

// GatewayCustomer references a customer record held by the gateway.
type GatewayCustomer struct {
	ID    string
	Email string
}

// Identity is the authenticated caller.
type Identity struct {
	Email string
}

type ResultKind string

const (
	ResultChargeSucceeded     ResultKind = "charge_succeeded"
	ResultSubscriptionCreated ResultKind = "subscription_created"
	ResultFailed              ResultKind = "failed"
)

// TransactionResult is the single outcome of a submission. Exactly one of
// ChargeID, SubscriptionID or Err is set, according to Kind.
type TransactionResult struct {
	Kind           ResultKind
	SubmissionID   string
	ContextID      ContextID
	Flow           Flow
	CustomerID     string
	ChargeID       string
	SubscriptionID string
	Amount         AmountSpec
	AccountEmail   string
	PayerEmail     string
	Err            *Error
}

// Succeeded reports whether the gateway transaction was created.
func (r TransactionResult) Succeeded() bool { return r.Kind != ResultFailed }

// Quote is the display view of a checkout context.
type Quote struct {
	ContextID   ContextID
	Amount      money.MinorUnits
	Currency    money.Currency
	Description string
	Display     string
	PlanID      PlanReference
}
