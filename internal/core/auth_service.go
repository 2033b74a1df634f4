package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"farmsense-backend-go/internal/db"
	"farmsense-backend-go/internal/identity"
	"farmsense-backend-go/internal/models"
)

const minPasswordLength = 6

// DemoUserID identifies the placeholder identity served under the demo
// prefix.
const DemoUserID = "demo"

// DemoUser returns the fixed placeholder identity used in demo mode.
func DemoUser() *models.User {
	return &models.User{
		ID:          DemoUserID,
		Email:       "demo@farmsense.app",
		DisplayName: "Demo Farmer",
		Role:        models.RoleFarmer,
		Plan:        models.PlanPro,
		Profile: &models.Profile{
			FarmName: "Green Valley Farm",
			Location: "Central Valley, CA",
			Size:     "120 acres",
			Crops:    []string{"wheat", "corn", "tomatoes"},
		},
		Subscription: &models.Subscription{Status: models.SubscriptionActive, Plan: string(models.PlanPro)},
	}
}

type rehydration struct {
	user      *models.User
	expiresAt time.Time
}

type authService struct {
	provider   identity.Provider
	users      db.UserRepository
	cache      IdentityCache
	demoPrefix string
	logger     *zap.Logger
	flight     singleflight.Group
	now        func() time.Time
}

// NewAuthService creates an AuthService. cache may be nil.
func NewAuthService(provider identity.Provider, users db.UserRepository, cache IdentityCache, demoPrefix string, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		provider:   provider,
		users:      users,
		cache:      cache,
		demoPrefix: strings.TrimSuffix(demoPrefix, "/"),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) SignIn(ctx context.Context, sess *Session, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &ValidationError{Message: "Email and password are required"}
	}
	if err := sess.Begin(); err != nil {
		return nil, err
	}

	cred, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		sess.Abort()
		return nil, err
	}
	user, err := s.loadIdentity(ctx, cred.UID, cred.Email, cred.DisplayName)
	if err != nil {
		sess.Abort()
		return nil, err
	}

	sess.Populate(user, cred.IDToken, s.now().Add(cred.ExpiresIn))
	s.logger.Info("User signed in", zap.String("user_id", user.ID))
	return user, nil
}

func (s *authService) SignUp(ctx context.Context, sess *Session, req models.SignUpRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	switch {
	case email == "":
		return nil, &ValidationError{Field: "email", Message: "Email is required"}
	case req.Password == "":
		return nil, &ValidationError{Field: "password", Message: "Password is required"}
	case req.Password != req.ConfirmPassword:
		return nil, &ValidationError{Field: "confirmPassword", Message: "Passwords do not match"}
	case len(req.Password) < minPasswordLength:
		return nil, identity.NewError(identity.OpSignUp, identity.KindWeakPassword, nil)
	}
	if err := sess.Begin(); err != nil {
		return nil, err
	}

	user, cred, err := s.provision(ctx, email, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		sess.Abort()
		return nil, err
	}

	s.remember(ctx, user)
	sess.Populate(user, cred.IDToken, s.now().Add(cred.ExpiresIn))
	s.logger.Info("User signed up", zap.String("user_id", user.ID))
	return user, nil
}

// provision creates the provider account and the user record. When the
// account already exists but has no record and the password matches, the
// record is created for it instead of failing.
func (s *authService) provision(ctx context.Context, email, password, displayName string) (*models.User, *identity.Credential, error) {
	var cred *identity.Credential
	resumed := false

	uid, err := s.provider.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		kind, _ := identity.KindOf(err)
		if kind != identity.KindEmailInUse {
			return nil, nil, err
		}
		existing, signInErr := s.provider.SignInWithPassword(ctx, email, password)
		if signInErr != nil {
			return nil, nil, err
		}
		if _, getErr := s.users.GetByID(ctx, existing.UID); !errors.Is(getErr, db.ErrNotFound) {
			if getErr != nil {
				s.logger.Warn("Could not check for existing user record", zap.String("user_id", existing.UID), zap.Error(getErr))
			}
			return nil, nil, err
		}
		s.logger.Info("Resuming sign-up for account without user record", zap.String("user_id", existing.UID))
		uid, cred, resumed = existing.UID, existing, true
		if displayName == "" {
			displayName = existing.DisplayName
		}
	}

	user := models.NewUser(uid, email, displayName, s.now())
	if err := s.users.Create(ctx, user); err != nil {
		if resumed && errors.Is(err, db.ErrAlreadyExists) {
			return s.existingIdentity(ctx, cred)
		}
		if !resumed {
			if delErr := s.provider.DeleteAccount(ctx, uid); delErr != nil {
				s.logger.Error("Failed to delete account after user record write failed",
					zap.String("user_id", uid), zap.Error(delErr))
			}
		}
		return nil, nil, identity.NewError(identity.OpSignUp, identity.KindUnknown, fmt.Errorf("create user record: %w", err))
	}

	if cred == nil {
		cred, err = s.provider.SignInWithPassword(ctx, email, password)
		if err != nil {
			return nil, nil, identity.NewError(identity.OpSignUp, identity.KindUnknown, err)
		}
	}
	return user, cred, nil
}

func (s *authService) existingIdentity(ctx context.Context, cred *identity.Credential) (*models.User, *identity.Credential, error) {
	user, err := s.loadIdentity(ctx, cred.UID, cred.Email, cred.DisplayName)
	if err != nil {
		return nil, nil, identity.NewError(identity.OpSignUp, identity.KindUnknown, err)
	}
	return user, cred, nil
}

func (s *authService) Logout(ctx context.Context, sess *Session) error {
	snap := sess.Snapshot()
	if snap.User != nil && !snap.Demo {
		if err := s.provider.SignOut(ctx, snap.User.ID); err != nil {
			s.logger.Warn("Failed to revoke provider session", zap.String("user_id", snap.User.ID), zap.Error(err))
		}
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, snap.User.ID); err != nil {
				s.logger.Warn("Failed to invalidate cached identity", zap.String("user_id", snap.User.ID), zap.Error(err))
			}
		}
	}
	sess.Clear()
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	return s.provider.SendPasswordReset(ctx, email)
}

func (s *authService) Rehydrate(ctx context.Context, sess *Session, token string) (*models.User, error) {
	if err := sess.Begin(); err != nil {
		return nil, err
	}

	v, err, shared := s.flight.Do(token, func() (interface{}, error) {
		claims, err := s.provider.VerifyIDToken(ctx, token)
		if err != nil {
			return nil, err
		}
		user, err := s.loadIdentity(ctx, claims.UID, claims.Email, claims.DisplayName)
		if err != nil {
			return nil, err
		}
		return rehydration{user: user, expiresAt: claims.ExpiresAt}, nil
	})
	if err != nil {
		if kind, ok := identity.KindOf(err); ok && kind == identity.KindInvalidToken {
			sess.Clear()
			return nil, err
		}
		sess.Abort()
		return nil, err
	}
	if shared {
		s.logger.Debug("Rehydration shared with concurrent request")
	}

	r := v.(rehydration)
	sess.Populate(r.user, token, r.expiresAt)
	return r.user, nil
}

func (s *authService) EnterDemo(sess *Session) *models.User {
	user := DemoUser()
	sess.EnterDemo(user)
	return user
}

// IsDemoPath reports whether path is the demo prefix or below it. Full URLs
// such as a Referer value are reduced to their path first.
func (s *authService) IsDemoPath(path string) bool {
	if s.demoPrefix == "" || path == "" {
		return false
	}
	if u, err := url.Parse(path); err == nil && u.Path != "" {
		path = u.Path
	}
	return path == s.demoPrefix || strings.HasPrefix(path, s.demoPrefix+"/")
}

// loadIdentity merges the stored record with defaults. A missing record
// yields a defaults-only identity that is not cached.
func (s *authService) loadIdentity(ctx context.Context, uid, email, displayName string) (*models.User, error) {
	if s.cache != nil {
		user, ok, err := s.cache.Get(ctx, uid)
		if err != nil {
			s.logger.Warn("Identity cache read failed", zap.String("user_id", uid), zap.Error(err))
		} else if ok {
			return user, nil
		}
	}

	user, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, db.ErrNotFound) {
		return models.NewUser(uid, email, displayName, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uid, err)
	}
	user.ApplyDefaults()
	if user.Email == "" {
		user.Email = email
	}
	if user.DisplayName == "" {
		user.DisplayName = displayName
	}
	s.remember(ctx, user)
	return user, nil
}

func (s *authService) remember(ctx context.Context, user *models.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, user); err != nil {
		s.logger.Warn("Identity cache write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}
