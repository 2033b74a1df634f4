package api

import (
	"time"

	"farmsense-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is a generic structure for simple success messages.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse wraps the merged identity returned by the auth endpoints.
type UserResponse struct {
	User *models.User `json:"user"`
}

// SessionResponse describes the request's session context.
type SessionResponse struct {
	User      *models.User `json:"user"`
	State     string       `json:"state"`
	Demo      bool         `json:"demo"`
	Remember  bool         `json:"remember"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// LogoutResponse tells the client where to navigate after logout.
type LogoutResponse struct {
	Redirect string `json:"redirect"`
}

// CheckoutSessionResponse returns the created Stripe Checkout session.
type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// SubscriptionResponse carries the stored subscription, null when absent.
type SubscriptionResponse struct {
	Subscription *models.Subscription `json:"subscription"`
}

// PortalSessionResponse returns the URL for the Stripe Customer Portal.
type PortalSessionResponse struct {
	URL string `json:"url"`
}

// VerifyPaymentResponse reports the state of a checkout session.
type VerifyPaymentResponse struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}
