package core

import (
	"context"
	"io"

	"farmsense-backend-go/internal/classifier"
	"farmsense-backend-go/internal/models"
	"farmsense-backend-go/internal/payments"
)

// AuthService signs users in and out and keeps a request's Session in step
// with the identity provider and the user store.
type AuthService interface {
	SignIn(ctx context.Context, sess *Session, email, password string) (*models.User, error)
	// SignUp provisions the provider account and the user record in one
	// step. Retrying after a partial failure resumes the provisioning.
	SignUp(ctx context.Context, sess *Session, req models.SignUpRequest) (*models.User, error)
	// Logout revokes the provider session; revocation failures are logged
	// and the session is cleared regardless.
	Logout(ctx context.Context, sess *Session) error
	ResetPassword(ctx context.Context, email string) error
	// Rehydrate verifies token and publishes the merged identity. An invalid
	// token clears the session.
	Rehydrate(ctx context.Context, sess *Session, token string) (*models.User, error)
	// EnterDemo populates sess with the placeholder identity without any
	// external call.
	EnterDemo(sess *Session) *models.User
	IsDemoPath(path string) bool
}

// IdentityCache holds merged identities between requests.
type IdentityCache interface {
	Get(ctx context.Context, userID string) (*models.User, bool, error)
	Set(ctx context.Context, user *models.User) error
	Invalidate(ctx context.Context, userID string) error
}

// PaymentVerification is the outcome of a checkout session.
type PaymentVerification struct {
	Status        string
	PaymentStatus string
	CustomerEmail string
}

// BillingService defines billing operations and webhook synchronization.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, priceID, userID string) (*payments.CheckoutSession, error)
	// GetSubscription returns nil without error when the user has none.
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	VerifyPayment(ctx context.Context, sessionID string) (*PaymentVerification, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Image is an uploaded file awaiting classification.
type Image struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// DetectionService validates uploaded images and classifies them.
type DetectionService interface {
	Detect(ctx context.Context, img Image) (classifier.Result, error)
}

// UserService defines the interface for user-profile operations.
type UserService interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error)
}

// DashboardService produces the dashboard sample data.
type DashboardService interface {
	Metrics(user *models.User) *DashboardMetrics
}
