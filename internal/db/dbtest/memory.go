// Package dbtest provides an in-memory UserRepository for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"farmsense-backend-go/internal/db"
	"farmsense-backend-go/internal/models"
)

// MemoryUserRepository keeps user documents in a map and applies merge
// writes the way Firestore's MergeAll does.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User

	// CreateErr, when set, is returned by Create.
	CreateErr error
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*models.User)}
}

// Put stores a copy of user, replacing any existing record.
func (m *MemoryUserRepository) Put(user *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = clone(user)
}

// Len returns the number of stored users.
func (m *MemoryUserRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	return clone(u), nil
}

func (m *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return fmt.Errorf("user with ID '%s': %w", user.ID, db.ErrAlreadyExists)
	}
	m.users[user.ID] = clone(user)
	return nil
}

func (m *MemoryUserRepository) UpdateSubscription(ctx context.Context, userID string, patch models.SubscriptionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.getOrInit(userID)
	if patch.UserPlan != nil {
		u.Plan = *patch.UserPlan
	}
	if patch.CustomerID != nil || patch.SubscriptionID != nil || patch.Status != nil ||
		patch.Plan != nil || patch.CurrentPeriodEnd != nil {
		u.Subscription = patch.Apply(u.Subscription)
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryUserRepository) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.getOrInit(userID)
	req.Apply(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryUserRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Subscription != nil && customerID != "" && u.Subscription.CustomerID == customerID {
			return clone(u), nil
		}
	}
	return nil, fmt.Errorf("user with customer ID '%s' not found: %w", customerID, db.ErrNotFound)
}

func (m *MemoryUserRepository) getOrInit(userID string) *models.User {
	u, ok := m.users[userID]
	if !ok {
		u = &models.User{ID: userID}
		m.users[userID] = u
	}
	return u
}

func clone(u *models.User) *models.User {
	c := *u
	if u.Profile != nil {
		p := *u.Profile
		p.Crops = append([]string(nil), u.Profile.Crops...)
		c.Profile = &p
	}
	if u.Subscription != nil {
		s := *u.Subscription
		c.Subscription = &s
	}
	return &c
}

var _ db.UserRepository = (*MemoryUserRepository)(nil)
