// Package payments wraps the hosted billing provider (Stripe).
package payments

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the provider has no such object.
var ErrNotFound = errors.New("billing object not found")

// CheckoutParams describes a subscription checkout.
type CheckoutParams struct {
	PriceID    string
	UserID     string
	CustomerID string // reused when the user already has one
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the subset of a checkout session the service reads.
type CheckoutSession struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	CustomerID        string
	CustomerEmail     string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
}

// UserID resolves the application user a session was opened for.
func (s *CheckoutSession) UserID() string {
	if id := s.Metadata["userId"]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

// Subscription is the subset of a billing subscription the service reads.
type Subscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	PriceNickname    string
	CurrentPeriodEnd time.Time
	Metadata         map[string]string
}

// Provider is the billing provider as seen by the billing service.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	// LatestSubscription returns the most recent subscription of a customer.
	LatestSubscription(ctx context.Context, customerID string) (*Subscription, error)
}
