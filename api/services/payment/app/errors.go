package app

import (
	"errors"
	"fmt"

	"github.com/tbeaudouin05/stripe-checkout/api/pkg/errs"
	"github.com/tbeaudouin05/stripe-checkout/api/services/payment/gateway"
)

// Typed errors for the checkout app layer. Transports map these to status codes
// without depending on gateway SDK error types.
var (
	// ErrValidation indicates a malformed submission the user can correct.
	ErrValidation = errors.New("validation error")
	// ErrCard indicates the gateway rejected the payment instrument.
	ErrCard = errors.New("card error")
	// ErrTransport indicates the gateway could not be reached or failed transiently.
	ErrTransport = errors.New("transport error")
	// ErrConfiguration indicates a deployment defect (missing amount or plan, bad credentials).
	ErrConfiguration = errors.New("configuration error")
	// ErrUnauthenticated indicates the caller did not pass the authentication gate.
	ErrUnauthenticated = errors.New("unauthenticated")
)

type ErrorKind string

const (
	KindValidation      ErrorKind = "validation_error"
	KindCard            ErrorKind = "card_error"
	KindTransport       ErrorKind = "transport_error"
	KindConfiguration   ErrorKind = "configuration_error"
	KindUnauthenticated ErrorKind = "unauthenticated"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindCard:
		return ErrCard
	case KindTransport:
		return ErrTransport
	case KindConfiguration:
		return ErrConfiguration
	case KindUnauthenticated:
		return ErrUnauthenticated
	}
	return nil
}

// Error is a classified checkout failure.
type Error struct {
	Kind ErrorKind
	Op   string
	// Field is set for validation errors.
	Field string
	// Message is safe to show verbatim for validation and card errors only.
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Op: "intake", Field: field, Message: message}
}

func unknownContextError(op string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: "context", Message: "This checkout is not available."}
}

func configurationError(op string, err error) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Err: errs.Wrap(err, op)}
}

func unauthenticatedError(err error) *Error {
	return &Error{Kind: KindUnauthenticated, Op: "authenticate", Message: "authentication required", Err: err}
}

// tokenParams are request parameters that carry the payment instrument. An
// invalid_request naming one of them means the token itself was bad.
var tokenParams = map[string]bool{"source": true, "card": true, "payment_method": true}

var tokenCodes = map[string]bool{"token_already_used": true, "expired_card": true}

// fromGateway classifies a gateway call failure into the checkout taxonomy.
func fromGateway(op string, err error) *Error {
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	switch gerr.Category {
	case gateway.CategoryCard:
		return cardError(op, gerr)
	case gateway.CategoryInvalidRequest:
		if tokenParams[gerr.Param] || tokenCodes[gerr.Code] {
			return cardError(op, gerr)
		}
		return configurationError(op, err)
	case gateway.CategoryAuthentication:
		return configurationError(op, err)
	default:
		// api_error and rate_limit are worth retrying with the same submission
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
}

func cardError(op string, gerr *gateway.Error) *Error {
	msg := gerr.Message
	if msg == "" {
		msg = "Your card could not be processed."
	}
	return &Error{Kind: KindCard, Op: op, Message: msg, Err: gerr}
}
