package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/errs"
)

// resolvedCheckout is a validated submission with its server-side context attached.
type resolvedCheckout struct {
	id         string
	submission ValidatedSubmission
	identity   Identity
	amount     AmountSpec
	plan       PlanReference
}

// TransactionRouter provisions the customer and then runs exactly one of the
// charge or subscription steps, chosen by the submission's flow.
type TransactionRouter struct {
	customers     CustomerProvisioner
	charges       ChargeProcessor
	subscriptions SubscriptionProvisioner
	logger        *slog.Logger
}

func NewTransactionRouter(c CustomerProvisioner, ch ChargeProcessor, s SubscriptionProvisioner, logger *slog.Logger) TransactionRouter {
	return TransactionRouter{customers: c, charges: ch, subscriptions: s, logger: logger}
}

// Route performs at most two gateway calls. A failed customer step short-circuits;
// a failed second step leaves the customer in place.
func (r TransactionRouter) Route(ctx context.Context, rc resolvedCheckout) TransactionResult {
	res := TransactionResult{
		SubmissionID: rc.id,
		ContextID:    rc.submission.ContextID,
		Flow:         rc.submission.Flow,
		AccountEmail: rc.identity.Email,
		PayerEmail:   rc.submission.Email,
	}

	cust, err := r.customers.Provision(ctx, rc.id, rc.submission.Email, rc.submission.PaymentToken)
	if err != nil {
		return failed(res, err)
	}
	res.CustomerID = cust.ID

	switch rc.submission.Flow {
	case FlowCharge:
		res.Amount = rc.amount
		chargeID, err := r.charges.Charge(ctx, rc.id, cust, rc.amount)
		if err != nil {
			r.logOrphan(rc, cust, err)
			return failed(res, err)
		}
		res.Kind = ResultChargeSucceeded
		res.ChargeID = chargeID
	case FlowSubscription:
		subID, err := r.subscriptions.Subscribe(ctx, rc.id, cust, rc.plan)
		if err != nil {
			r.logOrphan(rc, cust, err)
			return failed(res, err)
		}
		res.Kind = ResultSubscriptionCreated
		res.SubscriptionID = subID
	default:
		return failed(res, configurationError("route", errs.New(fmt.Sprintf("unknown checkout flow %d", rc.submission.Flow))))
	}
	return res
}

// logOrphan records the customer left behind when the second step fails.
// No compensating delete is attempted.
func (r TransactionRouter) logOrphan(rc resolvedCheckout, cust GatewayCustomer, err error) {
	r.logger.Warn("gateway customer created without transaction",
		"submission_id", rc.id,
		"context_id", rc.submission.ContextID,
		"flow", rc.submission.Flow.String(),
		"customer_id", cust.ID,
		"err", err,
	)
}

func failed(res TransactionResult, err error) TransactionResult {
	res.Kind = ResultFailed
	res.ChargeID = ""
	res.SubscriptionID = ""
	res.Err = asError(err)
	return res
}

// asError normalizes any error into the checkout taxonomy.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindTransport, Err: err}
}
