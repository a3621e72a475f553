package app

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const maxTokenLength = 255

// validate caches struct and tag metadata; it is safe for concurrent use.
var validate = validator.New()

// ValidateSubmission is the first gate of the checkout: it checks the payer
// email and payment token and fixes the flow. It never contacts the gateway.
func ValidateSubmission(s CheckoutSubmission) (ValidatedSubmission, error) {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return ValidatedSubmission{}, validationError("email", "Please enter your email address.")
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return ValidatedSubmission{}, validationError("email", "Please enter a valid email address.")
	}

	token := strings.TrimSpace(s.PaymentToken)
	if token == "" {
		return ValidatedSubmission{}, validationError("payment_token", "Your payment details are missing. Please enter your card again.")
	}
	if len(token) > maxTokenLength || strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return ValidatedSubmission{}, validationError("payment_token", "Your payment details could not be read. Please enter your card again.")
	}

	flow := FlowCharge
	if s.Subscription {
		flow = FlowSubscription
	}
	return ValidatedSubmission{
		ContextID:    s.ContextID,
		Email:        email,
		PaymentToken: token,
		Flow:         flow,
		PlanHint:     strings.TrimSpace(s.PlanID),
	}, nil
}
