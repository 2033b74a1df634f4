package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"farmsense-backend-go/internal/identity"
	"farmsense-backend-go/internal/models"
	"farmsense-backend-go/internal/payments"
)

type account struct {
	uid         string
	password    string
	displayName string
	disabled    bool
}

// fakeIdentity is an in-memory identity provider. Tokens are "token-<uid>".
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]*account
	next     int

	signIns   int
	verifies  int
	deleted   []string
	signedOut []string
	resets    []string

	verifyDelay time.Duration
	signOutErr  error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{accounts: map[string]*account{}}
}

func (f *fakeIdentity) add(email, password, uid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = &account{uid: uid, password: password}
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*identity.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signIns++
	acc, ok := f.accounts[email]
	switch {
	case !ok:
		return nil, identity.NewError(identity.OpSignIn, identity.KindUserNotFound, errors.New("EMAIL_NOT_FOUND"))
	case acc.disabled:
		return nil, identity.NewError(identity.OpSignIn, identity.KindUserDisabled, errors.New("USER_DISABLED"))
	case acc.password != password:
		return nil, identity.NewError(identity.OpSignIn, identity.KindWrongPassword, errors.New("INVALID_PASSWORD"))
	}
	return &identity.Credential{
		UID:         acc.uid,
		Email:       email,
		DisplayName: acc.displayName,
		IDToken:     "token-" + acc.uid,
		ExpiresIn:   time.Hour,
	}, nil
}

func (f *fakeIdentity) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return "", identity.NewError(identity.OpSignUp, identity.KindEmailInUse, errors.New("EMAIL_EXISTS"))
	}
	f.next++
	uid := fmt.Sprintf("uid-%d", f.next)
	f.accounts[email] = &account{uid: uid, password: password, displayName: displayName}
	return uid, nil
}

func (f *fakeIdentity) DeleteAccount(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, acc := range f.accounts {
		if acc.uid == uid {
			delete(f.accounts, email)
		}
	}
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeIdentity) SignOut(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, uid)
	return f.signOutErr
}

func (f *fakeIdentity) SendPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; !ok {
		return identity.NewError(identity.OpResetPassword, identity.KindUserNotFound, errors.New("EMAIL_NOT_FOUND"))
	}
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeIdentity) VerifyIDToken(ctx context.Context, idToken string) (*identity.Claims, error) {
	f.mu.Lock()
	f.verifies++
	delay := f.verifyDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for email, acc := range f.accounts {
		if "token-"+acc.uid == idToken {
			return &identity.Claims{UID: acc.uid, Email: email, ExpiresAt: time.Now().Add(time.Hour)}, nil
		}
	}
	return nil, identity.NewError(identity.OpVerifyToken, identity.KindInvalidToken, errors.New("invalid token"))
}

// fakePayments is an in-memory billing provider.
type fakePayments struct {
	mu            sync.Mutex
	subscriptions map[string]*payments.Subscription
	sessions      map[string]*payments.CheckoutSession
	checkouts     []payments.CheckoutParams
	portals       []string
	err           error
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		subscriptions: map[string]*payments.Subscription{},
		sessions:      map[string]*payments.CheckoutSession{},
	}
}

func (f *fakePayments) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.checkouts = append(f.checkouts, params)
	id := fmt.Sprintf("cs_test_%d", len(f.checkouts))
	return &payments.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (f *fakePayments) GetCheckoutSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.sessions[sessionID]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return cs, nil
}

func (f *fakePayments) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.portals = append(f.portals, customerID)
	return "https://billing.stripe.test/" + customerID, nil
}

func (f *fakePayments) GetSubscription(ctx context.Context, subscriptionID string) (*payments.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return sub, nil
}

func (f *fakePayments) LatestSubscription(ctx context.Context, customerID string) (*payments.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subscriptions {
		if sub.CustomerID == customerID {
			return sub, nil
		}
	}
	return nil, payments.ErrNotFound
}

// repoSpy fails the test on any call that was not expected.
type repoSpy struct {
	mock.Mock
}

func (r *repoSpy) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := r.Called(ctx, userID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (r *repoSpy) Create(ctx context.Context, user *models.User) error {
	return r.Called(ctx, user).Error(0)
}

func (r *repoSpy) UpdateSubscription(ctx context.Context, userID string, patch models.SubscriptionPatch) error {
	return r.Called(ctx, userID, patch).Error(0)
}

func (r *repoSpy) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) error {
	return r.Called(ctx, userID, req).Error(0)
}

func (r *repoSpy) FindByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	args := r.Called(ctx, customerID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

// memCache is an in-memory IdentityCache.
type memCache struct {
	mu          sync.Mutex
	users       map[string]*models.User
	invalidated []string
}

func newMemCache() *memCache { return &memCache{users: map[string]*models.User{}} }

func (c *memCache) Get(ctx context.Context, userID string) (*models.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[userID]
	return u, ok, nil
}

func (c *memCache) Set(ctx context.Context, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user.ID] = user
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}
