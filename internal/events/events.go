// Package events publishes domain events to the message broker.
package events

import (
	"context"
	"time"
)

// SubscriptionChanged is published after a webhook write to a user's
// subscription.
type SubscriptionChanged struct {
	UserID     string    `json:"userId"`
	EventType  string    `json:"eventType"`
	Status     string    `json:"status,omitempty"`
	Plan       string    `json:"plan,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher sends events to subscribers outside the process.
type Publisher interface {
	PublishSubscriptionChanged(ctx context.Context, ev SubscriptionChanged) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) PublishSubscriptionChanged(context.Context, SubscriptionChanged) error { return nil }
func (Noop) Close() error                                                          { return nil }
