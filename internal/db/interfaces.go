package db

import (
	"context"

	"farmsense-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// Create fails with ErrAlreadyExists when the document is present.
	Create(ctx context.Context, user *models.User) error
	// UpdateSubscription merges the patch into the user document, creating
	// the document when it does not exist yet.
	UpdateSubscription(ctx context.Context, userID string, patch models.SubscriptionPatch) error
	UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error
	// FindByCustomerID returns the user whose subscription carries the
	// given billing customer reference.
	FindByCustomerID(ctx context.Context, customerID string) (*models.User, error)
}
