package app

import (
	"fmt"
	"strings"

	"github.com/tbeaudouin05/stripe-checkout/api/config"
	"github.com/tbeaudouin05/stripe-checkout/api/pkg/errs"
	"github.com/tbeaudouin05/stripe-checkout/api/pkg/money"
)

// AmountAuthority is the only source of price and description for a checkout.
// Nothing from the inbound submission can influence what it returns.
type AmountAuthority interface {
	Resolve(id ContextID) (AmountSpec, error)
}

// PlanCatalog maps checkout contexts to gateway plans created out of band.
type PlanCatalog interface {
	Plan(id ContextID) (PlanReference, error)
}

// StaticCatalog is the process-wide checkout table loaded at startup.
// It is never mutated after NewStaticCatalog returns, so it is safe for concurrent use.
type StaticCatalog struct {
	amounts map[ContextID]AmountSpec
	plans   map[ContextID]PlanReference
}

// NewStaticCatalog copies the configured tables. Every context with an amount
// must have a description; amounts must be positive.
func NewStaticCatalog(cfg config.CheckoutConfig) (*StaticCatalog, error) {
	currency, err := money.NewCurrency(cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("checkout currency: %w", err)
	}

	c := &StaticCatalog{
		amounts: make(map[ContextID]AmountSpec, len(cfg.Amounts)),
		plans:   make(map[ContextID]PlanReference, len(cfg.Plans)),
	}
	for id, minor := range cfg.Amounts {
		amount := money.MinorUnits(minor)
		if amount <= 0 {
			return nil, fmt.Errorf("checkout context %q: amount must be positive, got %d", id, minor)
		}
		desc := strings.TrimSpace(cfg.Descriptions[id])
		if desc == "" {
			return nil, fmt.Errorf("checkout context %q: missing description", id)
		}
		c.amounts[ContextID(id)] = AmountSpec{Amount: amount, Currency: currency, Description: desc}
	}
	for id, plan := range cfg.Plans {
		plan = strings.TrimSpace(plan)
		if plan == "" {
			return nil, fmt.Errorf("checkout context %q: empty plan identifier", id)
		}
		c.plans[ContextID(id)] = PlanReference(plan)
	}
	return c, nil
}

// known reports whether id names a configured context. Unknown contexts come
// from the caller and are reported as validation errors.
func (c *StaticCatalog) known(id ContextID) bool {
	_, hasAmount := c.amounts[id]
	_, hasPlan := c.plans[id]
	return hasAmount || hasPlan
}

func (c *StaticCatalog) Resolve(id ContextID) (AmountSpec, error) {
	if !c.known(id) {
		return AmountSpec{}, unknownContextError("resolve amount")
	}
	spec, ok := c.amounts[id]
	if !ok {
		return AmountSpec{}, configurationError("resolve amount", errs.New(fmt.Sprintf("no amount configured for checkout context %q", id)))
	}
	return spec, nil
}

func (c *StaticCatalog) Plan(id ContextID) (PlanReference, error) {
	if !c.known(id) {
		return "", unknownContextError("resolve plan")
	}
	plan, ok := c.plans[id]
	if !ok {
		return "", configurationError("resolve plan", errs.New(fmt.Sprintf("no plan configured for checkout context %q", id)))
	}
	return plan, nil
}

// Quote returns the display view of a context. A context may have an amount,
// a plan, or both.
func (c *StaticCatalog) Quote(id ContextID) (Quote, error) {
	if !c.known(id) {
		return Quote{}, unknownContextError("quote")
	}
	spec, hasAmount := c.amounts[id]
	plan := c.plans[id]
	q := Quote{ContextID: id, PlanID: plan}
	if hasAmount {
		q.Amount = spec.Amount
		q.Currency = spec.Currency
		q.Description = spec.Description
		q.Display = spec.Amount.Format(spec.Currency)
	}
	return q, nil
}
