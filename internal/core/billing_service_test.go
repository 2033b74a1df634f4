package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"farmsense-backend-go/internal/db/dbtest"
	"farmsense-backend-go/internal/events"
	"farmsense-backend-go/internal/models"
	"farmsense-backend-go/internal/payments"
)

const webhookSecret = "whsec_core_test"

type recordingPublisher struct {
	events []events.SubscriptionChanged
}

func (p *recordingPublisher) PublishSubscriptionChanged(_ context.Context, ev events.SubscriptionChanged) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type billingFixture struct {
	svc       BillingService
	repo      *dbtest.MemoryUserRepository
	provider  *fakePayments
	cache     *memCache
	publisher *recordingPublisher
}

func newBilling(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		repo:      dbtest.NewMemoryUserRepository(),
		provider:  newFakePayments(),
		cache:     newMemCache(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewBillingService(f.repo, f.provider, f.cache, f.publisher, BillingConfig{
		WebhookSecret: webhookSecret,
		AppURL:        "https://farmsense.test/",
		PricePlans:    map[string]string{"price_pro": "pro", "price_ent": "enterprise"},
	}, nil)
	return f
}

func signedEvent(t *testing.T, eventType, object string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"id":"evt_test","object":"event","api_version":"2024-06-20","type":%q,"data":{"object":%s}}`, eventType, object))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return payload, signed.Header
}

const checkoutObject = `{"id":"cs_1","object":"checkout.session","customer":"cus_1","subscription":"sub_1","metadata":{"userId":"u1"}}`

func (f *billingFixture) seedSubscription() time.Time {
	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	f.provider.subscriptions["sub_1"] = &payments.Subscription{
		ID: "sub_1", CustomerID: "cus_1", Status: "active", PriceID: "price_pro", CurrentPeriodEnd: end,
	}
	return end
}

func TestCheckoutCompletedActivatesSubscription(t *testing.T) {
	f := newBilling(t)
	end := f.seedSubscription()
	f.repo.Put(models.NewUser("u1", "ana@farm.io", "Ana", time.Now()))

	payload, sig := signedEvent(t, payments.EventCheckoutCompleted, checkoutObject)
	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))

	u, err := f.repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, u.Plan)
	assert.Equal(t, &models.Subscription{
		CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "active", Plan: "pro", CurrentPeriodEnd: end,
	}, u.Subscription)
	assert.Equal(t, "ana@farm.io", u.Email)

	assert.Equal(t, []string{"u1"}, f.cache.invalidated)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "pro", f.publisher.events[0].Plan)
}

func TestCheckoutCompletedIsIdempotent(t *testing.T) {
	f := newBilling(t)
	f.seedSubscription()
	payload, sig := signedEvent(t, payments.EventCheckoutCompleted, checkoutObject)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	first, _ := f.repo.GetByID(context.Background(), "u1")
	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	second, _ := f.repo.GetByID(context.Background(), "u1")

	assert.Equal(t, first.Subscription, second.Subscription)
	assert.Equal(t, first.Plan, second.Plan)
}

func TestCheckoutCompletedWithoutUserIsNoop(t *testing.T) {
	f := newBilling(t)
	payload, sig := signedEvent(t, payments.EventCheckoutCompleted, `{"id":"cs_1","object":"checkout.session","customer":"cus_1"}`)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	assert.Equal(t, 0, f.repo.Len())
}

func TestCheckoutCompletedFallsBackToMetadataPlan(t *testing.T) {
	f := newBilling(t)
	payload, sig := signedEvent(t, payments.EventCheckoutCompleted,
		`{"id":"cs_2","object":"checkout.session","client_reference_id":"u2","metadata":{"plan":"Enterprise"}}`)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	u, err := f.repo.GetByID(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, models.PlanEnterprise, u.Plan)
	assert.Equal(t, "active", u.Subscription.Status)
}

func TestCheckoutCompletedStripeFailureIsRetried(t *testing.T) {
	f := newBilling(t)
	f.provider.err = errors.New("stripe down")
	payload, sig := signedEvent(t, payments.EventCheckoutCompleted, checkoutObject)

	err := f.svc.HandleWebhook(context.Background(), payload, sig)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, 0, f.repo.Len())
}

func TestSubscriptionUpdatedByCustomerLookup(t *testing.T) {
	f := newBilling(t)
	f.repo.Put(&models.User{ID: "u1", Plan: models.PlanPro, Subscription: &models.Subscription{
		CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "active", Plan: "pro",
	}})
	payload, sig := signedEvent(t, payments.EventSubscriptionUpdated,
		`{"id":"sub_1","object":"subscription","customer":"cus_1","status":"past_due","current_period_end":1798761600}`)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	u, _ := f.repo.GetByID(context.Background(), "u1")
	assert.Equal(t, "past_due", u.Subscription.Status)
	assert.Equal(t, time.Unix(1798761600, 0).UTC(), u.Subscription.CurrentPeriodEnd)
	assert.Equal(t, "pro", u.Subscription.Plan)
	assert.Equal(t, models.PlanPro, u.Plan)
}

func TestSubscriptionDeletedThenLookupShowsCanceled(t *testing.T) {
	f := newBilling(t)
	f.repo.Put(&models.User{ID: "u1", Plan: models.PlanPro, Subscription: &models.Subscription{
		CustomerID: "cus_1", SubscriptionID: "sub_1", Status: "active", Plan: "pro",
	}})
	payload, sig := signedEvent(t, payments.EventSubscriptionDeleted,
		`{"id":"sub_1","object":"subscription","customer":"cus_1","status":"canceled","metadata":{"userId":"u1"}}`)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	sub, err := f.svc.GetSubscription(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCanceled, sub.Status)
	assert.Equal(t, "sub_1", sub.SubscriptionID)
}

func TestSubscriptionEventForUnknownCustomerIsNoop(t *testing.T) {
	f := newBilling(t)
	payload, sig := signedEvent(t, payments.EventSubscriptionDeleted,
		`{"id":"sub_9","object":"subscription","customer":"cus_unknown","status":"canceled"}`)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
	assert.Equal(t, 0, f.repo.Len())
	assert.Empty(t, f.publisher.events)
}

func TestUnknownEventTypeIsAcknowledged(t *testing.T) {
	f := newBilling(t)
	payload, sig := signedEvent(t, "invoice.paid", `{"id":"in_1","object":"invoice"}`)
	assert.NoError(t, f.svc.HandleWebhook(context.Background(), payload, sig))
}

func TestWebhookSignatureMutationTouchesNoStore(t *testing.T) {
	spy := &repoSpy{}
	svc := NewBillingService(spy, newFakePayments(), nil, nil, BillingConfig{WebhookSecret: webhookSecret}, nil)
	payload, sig := signedEvent(t, payments.EventSubscriptionDeleted,
		`{"id":"sub_1","object":"subscription","customer":"cus_1","metadata":{"userId":"u1"}}`)

	mutated := append([]byte(nil), payload...)
	mutated[len(mutated)/2] ^= 0x20

	err := svc.HandleWebhook(context.Background(), mutated, sig)
	assert.ErrorIs(t, err, ErrWebhookSignature)
	spy.AssertNotCalled(t, "UpdateSubscription", mock.Anything, mock.Anything, mock.Anything)
	spy.AssertNotCalled(t, "FindByCustomerID", mock.Anything, mock.Anything)
	assert.Empty(t, spy.Calls)
}

func TestCreateCheckoutSessionReusesCustomer(t *testing.T) {
	f := newBilling(t)
	f.repo.Put(&models.User{ID: "u1", Email: "ana@farm.io", Subscription: &models.Subscription{CustomerID: "cus_1"}})

	cs, err := f.svc.CreateCheckoutSession(context.Background(), "price_pro", "u1")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", cs.ID)

	require.Len(t, f.provider.checkouts, 1)
	params := f.provider.checkouts[0]
	assert.Equal(t, "cus_1", params.CustomerID)
	assert.Equal(t, "u1", params.UserID)
	assert.Equal(t, "https://farmsense.test/pricing", params.CancelURL)

	_, err = f.svc.CreateCheckoutSession(context.Background(), "", "u1")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestGetSubscriptionWithoutRecordIsNil(t *testing.T) {
	f := newBilling(t)
	sub, err := f.svc.GetSubscription(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestCreatePortalSession(t *testing.T) {
	f := newBilling(t)
	f.repo.Put(&models.User{ID: "u1", Subscription: &models.Subscription{CustomerID: "cus_1"}})
	f.repo.Put(&models.User{ID: "u2"})

	url, err := f.svc.CreatePortalSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/cus_1", url)

	_, err = f.svc.CreatePortalSession(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrBillingCustomerNotFound)
}

func TestVerifyPayment(t *testing.T) {
	f := newBilling(t)
	f.provider.sessions["cs_1"] = &payments.CheckoutSession{ID: "cs_1", Status: "complete", PaymentStatus: "paid", CustomerEmail: "ana@farm.io"}

	v, err := f.svc.VerifyPayment(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, &PaymentVerification{Status: "complete", PaymentStatus: "paid", CustomerEmail: "ana@farm.io"}, v)

	_, err = f.svc.VerifyPayment(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrCheckoutSessionNotFound)
}
