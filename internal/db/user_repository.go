package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"farmsense-backend-go/internal/models"
)

const usersCollection = "users"

var (
	// ErrNotFound is returned when a document is not found in Firestore.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document is present.
	ErrAlreadyExists = errors.New("document already exists")
)

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client, now: time.Now}
}

// Create adds a new user document keyed by the Firebase Auth UID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s': %w", user.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document from Firestore by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

// UpdateSubscription writes the patch with MergeAll so unrelated fields survive.
func (r *firestoreUserRepository) UpdateSubscription(ctx context.Context, userID string, patch models.SubscriptionPatch) error {
	return r.merge(ctx, userID, patch.Fields())
}

// UpdateProfile writes the provided profile fields with MergeAll.
func (r *firestoreUserRepository) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	return r.merge(ctx, userID, req.Fields())
}

func (r *firestoreUserRepository) merge(ctx context.Context, userID string, fields map[string]interface{}) error {
	if userID == "" {
		return errors.New("user ID cannot be empty for merge operation")
	}
	if len(fields) == 0 {
		return nil
	}
	fields["updatedAt"] = r.now().UTC()
	_, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}

// FindByCustomerID queries users by subscription.customerId.
func (r *firestoreUserRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, fmt.Errorf("empty customer ID: %w", ErrNotFound)
	}
	iter := r.client.Collection(usersCollection).
		Where("subscription.customerId", "==", customerID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	docSnap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("user with customer ID '%s' not found: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user by customer ID '%s': %w", customerID, err)
	}
	return decodeUser(docSnap)
}

func decodeUser(docSnap *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}
