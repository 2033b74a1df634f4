package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"farmsense-backend-go/internal/models"
)

const identityKeyPrefix = "identity:"

// IdentityCache stores merged user records keyed by user id.
type IdentityCache struct {
	cache Cache
	ttl   time.Duration
}

// NewIdentityCache wraps c. Entries expire after ttl.
func NewIdentityCache(c Cache, ttl time.Duration) *IdentityCache {
	if c == nil {
		c = Noop{}
	}
	return &IdentityCache{cache: c, ttl: ttl}
}

// Get returns the cached user. A miss or a corrupt entry reports false.
func (ic *IdentityCache) Get(ctx context.Context, userID string) (*models.User, bool, error) {
	raw, err := ic.cache.Get(ctx, identityKeyPrefix+userID)
	if errors.Is(err, ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false, nil
	}
	return &u, true, nil
}

func (ic *IdentityCache) Set(ctx context.Context, user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return ic.cache.Set(ctx, identityKeyPrefix+user.ID, string(raw), ic.ttl)
}

func (ic *IdentityCache) Invalidate(ctx context.Context, userID string) error {
	return ic.cache.Delete(ctx, identityKeyPrefix+userID)
}
