package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/app"
)

// ErrNotFound is returned by Get when no entry exists for the submission id.
var ErrNotFound = errors.New("ledger entry not found")

// Entry is one row of checkout_transaction. Payment tokens are never stored.
type Entry struct {
	SubmissionID   string
	ContextID      string
	Flow           string
	Outcome        string
	ErrorKind      string
	PayerEmail     string
	AccountEmail   string
	CustomerID     string
	ChargeID       string
	SubscriptionID string
	AmountMinor    int64
	Currency       string
	CreatedAt      time.Time
}

// EntryFromResult flattens a transaction result into a ledger row.
func EntryFromResult(res app.TransactionResult) Entry {
	e := Entry{
		SubmissionID:   res.SubmissionID,
		ContextID:      string(res.ContextID),
		Flow:           res.Flow.String(),
		Outcome:        string(res.Kind),
		PayerEmail:     res.PayerEmail,
		AccountEmail:   res.AccountEmail,
		CustomerID:     res.CustomerID,
		ChargeID:       res.ChargeID,
		SubscriptionID: res.SubscriptionID,
		AmountMinor:    res.Amount.Amount.Int64(),
		Currency:       string(res.Amount.Currency),
	}
	if res.Err != nil {
		e.ErrorKind = string(res.Err.Kind)
	}
	return e
}

// Store writes checkout outcomes to Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const insertEntry = `
INSERT INTO checkout_transaction (
    submission_id, context_id, flow, outcome, error_kind,
    payer_email, account_email, customer_id, charge_id, subscription_id,
    amount_minor, currency
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (submission_id) DO NOTHING`

// Record inserts the entry. Recording the same submission twice is a no-op.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, insertEntry,
		e.SubmissionID, e.ContextID, e.Flow, e.Outcome, nullString(e.ErrorKind),
		nullString(e.PayerEmail), nullString(e.AccountEmail), nullString(e.CustomerID),
		nullString(e.ChargeID), nullString(e.SubscriptionID),
		nullInt(e.AmountMinor), nullString(e.Currency),
	)
	if err != nil {
		return fmt.Errorf("record checkout %s: %w", e.SubmissionID, err)
	}
	return nil
}

// RecordResult implements the transport's recorder hook.
func (s *Store) RecordResult(ctx context.Context, res app.TransactionResult) error {
	return s.Record(ctx, EntryFromResult(res))
}

const selectEntry = `
SELECT submission_id, context_id, flow, outcome, error_kind,
       payer_email, account_email, customer_id, charge_id, subscription_id,
       amount_minor, currency, created_at
FROM checkout_transaction
WHERE submission_id = $1`

func (s *Store) Get(ctx context.Context, submissionID string) (Entry, error) {
	var (
		e                                   Entry
		errorKind, payer, account, customer sql.NullString
		chargeID, subscriptionID, currency  sql.NullString
		amount                              sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, selectEntry, submissionID).Scan(
		&e.SubmissionID, &e.ContextID, &e.Flow, &e.Outcome, &errorKind,
		&payer, &account, &customer, &chargeID, &subscriptionID,
		&amount, &currency, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get checkout %s: %w", submissionID, err)
	}
	e.ErrorKind = errorKind.String
	e.PayerEmail = payer.String
	e.AccountEmail = account.String
	e.CustomerID = customer.String
	e.ChargeID = chargeID.String
	e.SubscriptionID = subscriptionID.String
	e.AmountMinor = amount.Int64
	e.Currency = currency.String
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
