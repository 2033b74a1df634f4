// Package identity adapts the external identity provider to the closed
// error taxonomy used by the rest of the service.
package identity

import (
	"context"
	"time"
)

// Credential is the result of a successful password sign-in.
type Credential struct {
	UID         string
	Email       string
	DisplayName string
	IDToken     string
	ExpiresIn   time.Duration
}

// Claims are the verified contents of an ID token.
type Claims struct {
	UID         string
	Email       string
	DisplayName string
	ExpiresAt   time.Time
}

// Provider is the identity provider as seen by the auth service. Every
// returned error is an *Error.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Credential, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (uid string, err error)
	DeleteAccount(ctx context.Context, uid string) error
	// SignOut revokes the refresh tokens of uid.
	SignOut(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
	VerifyIDToken(ctx context.Context, idToken string) (*Claims, error)
}
