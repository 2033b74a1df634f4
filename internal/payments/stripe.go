package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeProvider implements Provider with the Stripe API.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider creates a StripeProvider using secretKey.
func NewStripeProvider(secretKey string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProvider{api: sc}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(in.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(in.SuccessURL),
		CancelURL:         stripe.String(in.CancelURL),
		ClientReferenceID: stripe.String(in.UserID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": in.UserID},
		},
	}
	params.Context = ctx
	params.AddMetadata("userId", in.UserID)
	switch {
	case in.CustomerID != "":
		params.Customer = stripe.String(in.CustomerID)
	case in.Email != "":
		params.CustomerEmail = stripe.String(in.Email)
	}

	cs, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session create: %w", err)
	}
	return fromCheckoutSession(cs), nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, wrapStripeError("checkout session get", err)
	}
	return fromCheckoutSession(cs), nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	ps, err := p.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", wrapStripeError("billing portal session create", err)
	}
	return ps.URL, nil
}

func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, wrapStripeError("subscription get", err)
	}
	return FromStripeSubscription(sub), nil
}

func (p *StripeProvider) LatestSubscription(ctx context.Context, customerID string) (*Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := p.api.Subscriptions.List(params)
	if it.Next() {
		return FromStripeSubscription(it.Subscription()), nil
	}
	if err := it.Err(); err != nil {
		return nil, wrapStripeError("subscription list", err)
	}
	return nil, fmt.Errorf("no subscription for customer %s: %w", customerID, ErrNotFound)
}

func wrapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("stripe %s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("stripe %s: %w", op, err)
}

func fromCheckoutSession(cs *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                cs.ID,
		URL:               cs.URL,
		Status:            string(cs.Status),
		PaymentStatus:     string(cs.PaymentStatus),
		CustomerEmail:     cs.CustomerEmail,
		ClientReferenceID: cs.ClientReferenceID,
		Metadata:          cs.Metadata,
	}
	if cs.Customer != nil {
		out.CustomerID = cs.Customer.ID
	}
	if out.CustomerEmail == "" && cs.CustomerDetails != nil {
		out.CustomerEmail = cs.CustomerDetails.Email
	}
	if cs.Subscription != nil {
		out.SubscriptionID = cs.Subscription.ID
	}
	return out
}

// FromStripeSubscription converts a Stripe subscription object.
func FromStripeSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:       sub.ID,
		Status:   string(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
		out.PriceNickname = sub.Items.Data[0].Price.Nickname
	}
	return out
}

var _ Provider = (*StripeProvider)(nil)
