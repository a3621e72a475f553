package app

import (
	"errors"
	"log/slog"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/errs"
)

const (
	RetryMessage     = "We could not reach the payment processor. Please try again."
	InternalMessage  = "Something went wrong while processing your payment."
	SignInMessage    = "Please sign in to continue."
	maxStackLogLines = 12
)

// Outcome is the caller-visible rendering of a failure.
type Outcome struct {
	Kind    ErrorKind
	Message string
	Field   string
	// RedisplayForm tells the web layer to show the checkout form again.
	RedisplayForm bool
}

// ErrorTranslator maps checkout failures to user-safe outcomes. Configuration
// errors are logged here and never described to the caller.
type ErrorTranslator struct {
	logger *slog.Logger
}

func NewErrorTranslator(logger *slog.Logger) ErrorTranslator {
	if logger == nil {
		logger = slog.Default()
	}
	return ErrorTranslator{logger: logger}
}

func (t ErrorTranslator) Translate(err error) Outcome {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: KindTransport, Err: err}
	}

	switch e.Kind {
	case KindValidation:
		return Outcome{Kind: e.Kind, Message: e.Message, Field: e.Field, RedisplayForm: true}
	case KindCard:
		return Outcome{Kind: e.Kind, Message: e.Message, RedisplayForm: true}
	case KindUnauthenticated:
		return Outcome{Kind: e.Kind, Message: SignInMessage}
	case KindConfiguration:
		t.logger.Error("checkout configuration error",
			"op", e.Op,
			"err", e.Err,
			"stack", errs.ExtractStackLines(e.Err, maxStackLogLines),
		)
		return Outcome{Kind: e.Kind, Message: InternalMessage}
	default:
		t.logger.Warn("payment gateway unavailable", "op", e.Op, "err", e.Err)
		return Outcome{Kind: KindTransport, Message: RetryMessage, RedisplayForm: true}
	}
}
