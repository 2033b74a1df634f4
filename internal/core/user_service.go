package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"farmsense-backend-go/internal/db"
	"farmsense-backend-go/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	cache    IdentityCache
	logger   *zap.Logger
}

// NewUserService creates a new UserService instance. cache may be nil.
func NewUserService(userRepo db.UserRepository, cache IdentityCache, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{userRepo: userRepo, cache: cache, logger: logger}
}

// GetByID retrieves a user by their ID with role and plan defaults applied.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", userID, err)
	}
	user.ApplyDefaults()
	return user, nil
}

// UpdateProfile merges the provided profile fields and returns the updated
// record.
func (s *userService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if req.Empty() {
		return nil, &ValidationError{Message: "No profile fields provided"}
	}
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, req); err != nil {
		return nil, fmt.Errorf("failed to update profile of user '%s': %w", userID, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Warn("Failed to invalidate cached identity", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return s.GetByID(ctx, userID)
}
