package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go"

	"github.com/tbeaudouin05/stripe-checkout/api/config"
	"github.com/tbeaudouin05/stripe-checkout/api/pkg/money"
	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
	mockgateway "github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway/mock"
)

const testSubmissionID = "sub-0001"

type staticAuth struct {
	identity Identity
	err      error
}

func (a staticAuth) Authenticate(context.Context) (Identity, error) { return a.identity, a.err }

func testCatalog(t *testing.T) *StaticCatalog {
	t.Helper()
	c, err := NewStaticCatalog(config.CheckoutConfig{
		Currency:     "usd",
		Amounts:      map[string]int64{"default": 500, "pro": 2500},
		Descriptions: map[string]string{"default": "Rails Stripe customer", "pro": "Pro upgrade"},
		Plans:        map[string]string{"default": "plan_9999", "team": "plan_team"},
	})
	require.NoError(t, err)
	return c
}

func newTestService(t *testing.T, g gateway.PaymentGateway, opts Options) Service {
	t.Helper()
	if opts.Authenticator == nil {
		opts.Authenticator = staticAuth{identity: Identity{Email: "account@example.com"}}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return testSubmissionID }
	}
	if opts.DefaultContext == "" {
		opts.DefaultContext = "default"
	}
	return NewService(g, testCatalog(t), opts)
}

func validSubmission() CheckoutSubmission {
	return CheckoutSubmission{Email: "a@b.com", PaymentToken: "tok_valid"}
}

func Test_Checkout_ChargeFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	gomock.InOrder(
		gw.EXPECT().CreateCustomer(gomock.Any(), "a@b.com", "tok_valid").Return(stripe.Customer{ID: "cus_1"}, nil),
		gw.EXPECT().CreateCharge(gomock.Any(), "cus_1", money.MinorUnits(500), money.Currency("usd"), "Rails Stripe customer").
			Return(stripe.Charge{ID: "ch_1"}, nil),
	)
	svc := newTestService(t, gw, Options{})

	res, err := svc.Checkout(context.Background(), validSubmission())
	require.NoError(t, err)

	want := TransactionResult{
		Kind:         ResultChargeSucceeded,
		SubmissionID: testSubmissionID,
		ContextID:    "default",
		Flow:         FlowCharge,
		CustomerID:   "cus_1",
		ChargeID:     "ch_1",
		Amount:       AmountSpec{Amount: 500, Currency: "usd", Description: "Rails Stripe customer"},
		AccountEmail: "account@example.com",
		PayerEmail:   "a@b.com",
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func Test_Checkout_ChargeUsesContextAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_2"}, nil)
	gw.EXPECT().CreateCharge(gomock.Any(), "cus_2", money.MinorUnits(2500), money.Currency("usd"), "Pro upgrade").
		Return(stripe.Charge{ID: "ch_2"}, nil)
	svc := newTestService(t, gw, Options{})

	sub := validSubmission()
	sub.ContextID = "pro"
	res, err := svc.Checkout(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "ch_2", res.ChargeID)
	assert.Equal(t, money.MinorUnits(2500), res.Amount.Amount)
}

func Test_Checkout_SubscriptionFlow(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	gomock.InOrder(
		gw.EXPECT().CreateCustomer(gomock.Any(), "a@b.com", "tok_valid").Return(stripe.Customer{ID: "cus_1"}, nil),
		gw.EXPECT().CreateSubscription(gomock.Any(), "cus_1", "plan_9999").Return(stripe.Subscription{ID: "sub_1"}, nil),
	)
	svc := newTestService(t, gw, Options{})

	sub := validSubmission()
	sub.Subscription = true
	res, err := svc.Checkout(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, ResultSubscriptionCreated, res.Kind)
	assert.Equal(t, "sub_1", res.SubscriptionID)
	assert.Empty(t, res.ChargeID)
	assert.Equal(t, FlowSubscription, res.Flow)
}

func Test_Checkout_CustomerCardError_ShortCircuits(t *testing.T) {
	for _, subscription := range []bool{false, true} {
		t.Run(fmt.Sprintf("subscription=%v", subscription), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mockgateway.NewMockPaymentGateway(ctrl)
			gw.EXPECT().CreateCustomer(gomock.Any(), "a@b.com", "tok_valid").
				Return(stripe.Customer{}, &gateway.Error{Category: gateway.CategoryCard, Message: "Your card was declined."})
			svc := newTestService(t, gw, Options{})

			sub := validSubmission()
			sub.Subscription = subscription
			res, err := svc.Checkout(context.Background(), sub)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCard)
			assert.Equal(t, ResultFailed, res.Kind)
			require.NotNil(t, res.Err)
			assert.Equal(t, KindCard, res.Err.Kind)
			assert.Equal(t, "Your card was declined.", res.Err.Message)
			assert.Empty(t, res.CustomerID)
		})
	}
}

func Test_Checkout_MissingFields_NoGatewayCalls(t *testing.T) {
	cases := []struct {
		name  string
		sub   CheckoutSubmission
		field string
	}{
		{"missing email", CheckoutSubmission{PaymentToken: "tok_valid"}, "email"},
		{"missing token", CheckoutSubmission{Email: "a@b.com"}, "payment_token"},
		{"blank token", CheckoutSubmission{Email: "a@b.com", PaymentToken: "   "}, "payment_token"},
		{"malformed email", CheckoutSubmission{Email: "not-an-email", PaymentToken: "tok_valid"}, "email"},
		{"subscription missing token", CheckoutSubmission{Email: "a@b.com", Subscription: true}, "payment_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mockgateway.NewMockPaymentGateway(ctrl)
			svc := newTestService(t, gw, Options{})

			res, err := svc.Checkout(context.Background(), tc.sub)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, ResultFailed, res.Kind)
			assert.Equal(t, tc.field, res.Err.Field)
		})
	}
}

func Test_Checkout_ChargeFailsAfterCustomer(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	gomock.InOrder(
		gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_orphan"}, nil),
		gw.EXPECT().CreateCharge(gomock.Any(), "cus_orphan", gomock.Any(), gomock.Any(), gomock.Any()).
			Return(stripe.Charge{}, &gateway.Error{Category: gateway.CategoryCard, Message: "Your card has insufficient funds."}),
	)
	svc := newTestService(t, gw, Options{})

	res, err := svc.Checkout(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrCard)
	assert.Equal(t, ResultFailed, res.Kind)
	assert.Equal(t, "cus_orphan", res.CustomerID)
	assert.Empty(t, res.ChargeID)
	assert.Equal(t, "Your card has insufficient funds.", res.Err.Message)
}

func Test_Checkout_TransportError(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(stripe.Customer{}, fmt.Errorf("%w: connection refused", gateway.ErrNoResponse))
	svc := newTestService(t, gw, Options{})

	res, err := svc.Checkout(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, gateway.ErrNoResponse)
	assert.Equal(t, KindTransport, res.Err.Kind)
}

func Test_Checkout_GatewayTimeoutIsTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) (stripe.Customer, error) {
			<-ctx.Done()
			return stripe.Customer{}, fmt.Errorf("%w: %w", gateway.ErrNoResponse, ctx.Err())
		})
	svc := newTestService(t, gw, Options{GatewayTimeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := svc.Checkout(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func Test_Checkout_IdempotencyKeysPerStep(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	var keys []string
	record := func(ctx context.Context) {
		key, _ := gateway.IdempotencyKey(ctx)
		keys = append(keys, key)
	}
	gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) (stripe.Customer, error) {
			record(ctx)
			return stripe.Customer{ID: "cus_1"}, nil
		})
	gw.EXPECT().CreateCharge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ money.MinorUnits, _ money.Currency, _ string) (stripe.Charge, error) {
			record(ctx)
			return stripe.Charge{ID: "ch_1"}, nil
		})
	svc := newTestService(t, gw, Options{})

	_, err := svc.Checkout(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, []string{testSubmissionID + "-customer", testSubmissionID + "-charge"}, keys)
}

func Test_Checkout_ConfigurationErrors_NoGatewayCalls(t *testing.T) {
	cases := []struct {
		name string
		sub  CheckoutSubmission
	}{
		{"no amount for context", CheckoutSubmission{ContextID: "team", Email: "a@b.com", PaymentToken: "tok_valid"}},
		{"no plan for context", CheckoutSubmission{ContextID: "pro", Email: "a@b.com", PaymentToken: "tok_valid", Subscription: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gw := mockgateway.NewMockPaymentGateway(ctrl)
			svc := newTestService(t, gw, Options{})

			res, err := svc.Checkout(context.Background(), tc.sub)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Equal(t, ResultFailed, res.Kind)
		})
	}
}

func Test_Checkout_UnknownContext_NoGatewayCalls(t *testing.T) {
	for _, subscription := range []bool{false, true} {
		ctrl := gomock.NewController(t)
		gw := mockgateway.NewMockPaymentGateway(ctrl)
		logs := &bytes.Buffer{}
		svc := newTestService(t, gw, Options{Logger: slog.New(slog.NewTextHandler(logs, nil))})

		res, err := svc.Checkout(context.Background(), CheckoutSubmission{
			ContextID: "bogus", Email: "a@b.com", PaymentToken: "tok_valid", Subscription: subscription,
		})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, ResultFailed, res.Kind)
		assert.Equal(t, "context", res.Err.Field)

		out := NewErrorTranslator(slog.New(slog.NewTextHandler(logs, nil))).Translate(err)
		assert.Equal(t, KindValidation, out.Kind)
		assert.NotContains(t, logs.String(), "level=ERROR")
	}
}

func Test_Checkout_PlanHintMustMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	svc := newTestService(t, gw, Options{})

	sub := validSubmission()
	sub.Subscription = true
	sub.PlanID = "plan_free_forever"
	res, err := svc.Checkout(context.Background(), sub)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "plan", res.Err.Field)

	gomock.InOrder(
		gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).Return(stripe.Customer{ID: "cus_1"}, nil),
		gw.EXPECT().CreateSubscription(gomock.Any(), "cus_1", "plan_9999").Return(stripe.Subscription{ID: "sub_1"}, nil),
	)
	sub.PlanID = "plan_9999"
	res, err = svc.Checkout(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", res.SubscriptionID)
}

func Test_Checkout_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	svc := newTestService(t, gw, Options{Authenticator: staticAuth{err: errors.New("token expired")}})

	res, err := svc.Checkout(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, KindUnauthenticated, res.Err.Kind)
}

func Test_Checkout_ConcurrentSubmissions(t *testing.T) {
	ctrl := gomock.NewController(t)
	gw := mockgateway.NewMockPaymentGateway(ctrl)
	const n = 16
	gw.EXPECT().CreateCustomer(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, email, _ string) (stripe.Customer, error) {
			return stripe.Customer{ID: "cus_" + email}, nil
		}).Times(n)
	gw.EXPECT().CreateCharge(gomock.Any(), gomock.Any(), money.MinorUnits(500), money.Currency("usd"), gomock.Any()).
		DoAndReturn(func(_ context.Context, customerID string, _ money.MinorUnits, _ money.Currency, _ string) (stripe.Charge, error) {
			return stripe.Charge{ID: "ch_" + customerID}, nil
		}).Times(n)
	svc := newTestService(t, gw, Options{NewID: func() string { return "" }})

	var wg sync.WaitGroup
	results := make([]TransactionResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := validSubmission()
			sub.Email = fmt.Sprintf("payer%d@example.com", i)
			results[i], _ = svc.Checkout(context.Background(), sub)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("ch_cus_payer%d@example.com", i), res.ChargeID)
	}
}

func Test_Quote(t *testing.T) {
	svc := newTestService(t, nil, Options{})

	q, err := svc.Quote("")
	require.NoError(t, err)
	assert.Equal(t, "$5.00", q.Display)
	assert.Equal(t, PlanReference("plan_9999"), q.PlanID)

	_, err = svc.Quote("missing")
	assert.ErrorIs(t, err, ErrValidation)
}
