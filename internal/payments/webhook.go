package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// ErrInvalidSignature is returned when a webhook payload does not carry a
// valid signature for the configured secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Webhook event types the service acts on.
const (
	EventCheckoutCompleted   = string(stripe.EventTypeCheckoutSessionCompleted)
	EventSubscriptionUpdated = string(stripe.EventTypeCustomerSubscriptionUpdated)
	EventSubscriptionDeleted = string(stripe.EventTypeCustomerSubscriptionDeleted)
)

// Event is a verified webhook event. Exactly one of Checkout and
// Subscription is set for the handled types; both are nil otherwise.
type Event struct {
	ID           string
	Type         string
	Checkout     *CheckoutSession
	Subscription *Subscription
}

// ConstructEvent verifies payload against the Stripe-Signature header and
// decodes the event object. It performs no I/O.
func ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	switch out.Type {
	case EventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Checkout = fromCheckoutSession(&cs)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = FromStripeSubscription(&sub)
	}
	return out, nil
}
