// Package cache holds short-lived copies of merged user identities.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache defines the interface for caching services.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Noop is a Cache that stores nothing. It is used when no Redis address is
// configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, error)              { return "", ErrMiss }
func (Noop) Set(context.Context, string, string, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error                     { return nil }
func (Noop) Close() error                                             { return nil }
