package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"farmsense-backend-go/internal/db"
	"farmsense-backend-go/internal/events"
	"farmsense-backend-go/internal/models"
	"farmsense-backend-go/internal/payments"
)

// BillingConfig carries the billing settings the service needs.
type BillingConfig struct {
	WebhookSecret string
	// AppURL is the public base URL used for redirect targets.
	AppURL string
	// PricePlans maps price IDs to plan names.
	PricePlans map[string]string
}

type billingService struct {
	users     db.UserRepository
	provider  payments.Provider
	cache     IdentityCache
	publisher events.Publisher
	cfg       BillingConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewBillingService creates a BillingService. cache and publisher may be nil.
func NewBillingService(users db.UserRepository, provider payments.Provider, cache IdentityCache, publisher events.Publisher, cfg BillingConfig, logger *zap.Logger) BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	cfg.AppURL = strings.TrimSuffix(cfg.AppURL, "/")
	return &billingService{
		users:     users,
		provider:  provider,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *billingService) CreateCheckoutSession(ctx context.Context, priceID, userID string) (*payments.CheckoutSession, error) {
	if priceID == "" || userID == "" {
		return nil, &ValidationError{Message: "priceId and userId are required"}
	}

	params := payments.CheckoutParams{
		PriceID:    priceID,
		UserID:     userID,
		SuccessURL: s.cfg.AppURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.AppURL + "/pricing",
	}
	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		params.Email = user.Email
		if user.Subscription != nil {
			params.CustomerID = user.Subscription.CustomerID
		}
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("load user %s for checkout: %w", userID, err)
	}

	cs, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, &UpstreamError{Service: "stripe", Reason: ReasonRequestFailed, Err: err}
	}
	s.logger.Info("Checkout session created",
		zap.String("user_id", userID), zap.String("price_id", priceID), zap.String("session_id", cs.ID))
	return cs, nil
}

func (s *billingService) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	return user.Subscription, nil
}

func (s *billingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return "", fmt.Errorf("%w: user %s", ErrBillingCustomerNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	if user.Subscription == nil || user.Subscription.CustomerID == "" {
		return "", fmt.Errorf("%w: user %s", ErrBillingCustomerNotFound, userID)
	}

	url, err := s.provider.CreatePortalSession(ctx, user.Subscription.CustomerID, s.cfg.AppURL+"/dashboard")
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrBillingCustomerNotFound, err)
		}
		return "", &UpstreamError{Service: "stripe", Reason: ReasonRequestFailed, Err: err}
	}
	return url, nil
}

func (s *billingService) VerifyPayment(ctx context.Context, sessionID string) (*PaymentVerification, error) {
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Message: "session_id is required"}
	}
	cs, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCheckoutSessionNotFound, sessionID)
		}
		return nil, &UpstreamError{Service: "stripe", Reason: ReasonRequestFailed, Err: err}
	}
	return &PaymentVerification{
		Status:        cs.Status,
		PaymentStatus: cs.PaymentStatus,
		CustomerEmail: cs.CustomerEmail,
	}, nil
}

// HandleWebhook verifies the payload and projects the event onto the user
// record. Events that name no known user are acknowledged without a write.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := payments.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
		}
		return &ValidationError{Message: "malformed webhook event"}
	}
	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	switch ev.Type {
	case payments.EventCheckoutCompleted:
		return s.checkoutCompleted(ctx, log, ev)
	case payments.EventSubscriptionUpdated:
		return s.subscriptionChanged(ctx, log, ev, "")
	case payments.EventSubscriptionDeleted:
		return s.subscriptionChanged(ctx, log, ev, models.SubscriptionCanceled)
	default:
		log.Debug("Ignoring webhook event")
		return nil
	}
}

func (s *billingService) checkoutCompleted(ctx context.Context, log *zap.Logger, ev *payments.Event) error {
	cs := ev.Checkout
	if cs == nil {
		log.Warn("Checkout event carries no session object")
		return nil
	}
	userID := cs.UserID()
	if userID == "" {
		log.Warn("Checkout session carries no user reference", zap.String("session_id", cs.ID))
		return nil
	}

	sub, err := s.checkoutSubscription(ctx, cs)
	if err != nil {
		return err
	}

	status := models.SubscriptionActive
	patch := models.SubscriptionPatch{Status: &status}
	if cs.CustomerID != "" {
		patch.CustomerID = &cs.CustomerID
	}
	if sub != nil {
		patch.SubscriptionID = &sub.ID
		if !sub.CurrentPeriodEnd.IsZero() {
			patch.CurrentPeriodEnd = &sub.CurrentPeriodEnd
		}
		if patch.CustomerID == nil && sub.CustomerID != "" {
			patch.CustomerID = &sub.CustomerID
		}
	}
	if plan, ok := s.resolvePlan(sub, cs.Metadata); ok {
		name := string(plan)
		patch.Plan = &name
		patch.UserPlan = &plan
	} else {
		log.Warn("Could not resolve plan for checkout", zap.String("session_id", cs.ID))
	}

	if err := s.users.UpdateSubscription(ctx, userID, patch); err != nil {
		return fmt.Errorf("update subscription for user %s: %w", userID, err)
	}
	log.Info("Subscription activated", zap.String("user_id", userID))
	s.afterWrite(ctx, log, userID, ev.Type, patch)
	return nil
}

// checkoutSubscription fetches the subscription a checkout created, falling
// back to the customer's latest subscription.
func (s *billingService) checkoutSubscription(ctx context.Context, cs *payments.CheckoutSession) (*payments.Subscription, error) {
	var (
		sub *payments.Subscription
		err error
	)
	switch {
	case cs.SubscriptionID != "":
		sub, err = s.provider.GetSubscription(ctx, cs.SubscriptionID)
	case cs.CustomerID != "":
		sub, err = s.provider.LatestSubscription(ctx, cs.CustomerID)
	default:
		return nil, nil
	}
	if errors.Is(err, payments.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &UpstreamError{Service: "stripe", Reason: ReasonRequestFailed, Err: err}
	}
	return sub, nil
}

func (s *billingService) subscriptionChanged(ctx context.Context, log *zap.Logger, ev *payments.Event, status string) error {
	sub := ev.Subscription
	if sub == nil {
		log.Warn("Subscription event carries no subscription object")
		return nil
	}
	userID, err := s.resolveUser(ctx, sub)
	if err != nil {
		return err
	}
	if userID == "" {
		log.Warn("No user for subscription", zap.String("subscription_id", sub.ID), zap.String("customer_id", sub.CustomerID))
		return nil
	}

	if status == "" {
		status = sub.Status
	}
	patch := models.SubscriptionPatch{Status: &status}
	if ev.Type == payments.EventSubscriptionUpdated && !sub.CurrentPeriodEnd.IsZero() {
		patch.CurrentPeriodEnd = &sub.CurrentPeriodEnd
	}
	if err := s.users.UpdateSubscription(ctx, userID, patch); err != nil {
		return fmt.Errorf("update subscription for user %s: %w", userID, err)
	}
	log.Info("Subscription status updated", zap.String("user_id", userID), zap.String("status", status))
	s.afterWrite(ctx, log, userID, ev.Type, patch)
	return nil
}

// resolveUser finds the user of a subscription by metadata, then by the
// stored customer reference. It returns "" when neither matches.
func (s *billingService) resolveUser(ctx context.Context, sub *payments.Subscription) (string, error) {
	if id := sub.Metadata["userId"]; id != "" {
		return id, nil
	}
	if sub.CustomerID == "" {
		return "", nil
	}
	user, err := s.users.FindByCustomerID(ctx, sub.CustomerID)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find user by customer %s: %w", sub.CustomerID, err)
	}
	return user.ID, nil
}

func (s *billingService) resolvePlan(sub *payments.Subscription, metadata map[string]string) (models.Plan, bool) {
	if sub != nil {
		if name, ok := s.cfg.PricePlans[sub.PriceID]; ok {
			if plan, ok := models.ParsePlan(name); ok {
				return plan, true
			}
		}
	}
	if plan, ok := models.ParsePlan(strings.ToLower(metadata["plan"])); ok {
		return plan, true
	}
	if sub != nil {
		if plan, ok := models.ParsePlan(strings.ToLower(sub.Metadata["plan"])); ok {
			return plan, true
		}
		if plan, ok := models.ParsePlan(strings.ToLower(sub.PriceNickname)); ok {
			return plan, true
		}
	}
	return "", false
}

func (s *billingService) afterWrite(ctx context.Context, log *zap.Logger, userID, eventType string, patch models.SubscriptionPatch) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			log.Warn("Failed to invalidate cached identity", zap.String("user_id", userID), zap.Error(err))
		}
	}
	change := events.SubscriptionChanged{UserID: userID, EventType: eventType, OccurredAt: s.now()}
	if patch.Status != nil {
		change.Status = *patch.Status
	}
	if patch.Plan != nil {
		change.Plan = *patch.Plan
	}
	if err := s.publisher.PublishSubscriptionChanged(ctx, change); err != nil {
		log.Warn("Failed to publish subscription change", zap.String("user_id", userID), zap.Error(err))
	}
}
