package core

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrBillingCustomerNotFound = errors.New("user does not have a billing customer")
	ErrCheckoutSessionNotFound = errors.New("checkout session not found")
	ErrWebhookSignature        = errors.New("stripe webhook signature verification failed")
	ErrAuthInProgress          = errors.New("authentication already in progress")
	ErrSessionClosed           = errors.New("session is closed")
	ErrUnauthenticated         = errors.New("not authenticated")
)

// ValidationError reports caller input that failed validation. Message is
// safe to show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Upstream failure reasons.
const (
	ReasonTimeout         = "timeout"
	ReasonExitStatus      = "exit_status"
	ReasonMalformedOutput = "malformed_output"
	ReasonUnavailable     = "unavailable"
	ReasonRequestFailed   = "request_failed"
)

// UpstreamError wraps a failure of an external dependency.
type UpstreamError struct {
	Service string
	Reason  string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Reason, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
