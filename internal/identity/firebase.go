package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// FirebaseProvider implements Provider with the Firebase Admin SDK for
// account administration and token verification, and the Identity Toolkit
// REST API for the password flows the Admin SDK does not offer.
type FirebaseProvider struct {
	admin   *auth.Client
	toolkit *identitytoolkit.Service
}

// NewFirebaseProvider creates a FirebaseProvider. apiKey is the Web API key
// of the Firebase project.
func NewFirebaseProvider(ctx context.Context, admin *auth.Client, apiKey string) (*FirebaseProvider, error) {
	if admin == nil {
		return nil, errors.New("firebase auth client is nil")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit.NewService: %w", err)
	}
	return &FirebaseProvider{admin: admin, toolkit: svc}, nil
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*Credential, error) {
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, NewError(OpSignIn, classify(err), err)
	}
	return &Credential{
		UID:         resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IdToken,
		ExpiresIn:   time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

func (p *FirebaseProvider) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	rec, err := p.admin.CreateUser(ctx, params)
	if err != nil {
		return "", NewError(OpSignUp, classify(err), err)
	}
	return rec.UID, nil
}

func (p *FirebaseProvider) DeleteAccount(ctx context.Context, uid string) error {
	if err := p.admin.DeleteUser(ctx, uid); err != nil {
		return NewError(OpSignUp, classify(err), err)
	}
	return nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		return NewError(OpSignOut, classify(err), err)
	}
	return nil
}

func (p *FirebaseProvider) SendPasswordReset(ctx context.Context, email string) error {
	_, err := p.toolkit.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}).Context(ctx).Do()
	if err != nil {
		return NewError(OpResetPassword, classify(err), err)
	}
	return nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, idToken string) (*Claims, error) {
	token, err := p.admin.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, NewError(OpVerifyToken, KindInvalidToken, err)
	}
	claims := &Claims{UID: token.UID, ExpiresAt: time.Unix(token.Expires, 0)}
	if email, ok := token.Claims["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		claims.DisplayName = name
	}
	return claims, nil
}

// classify maps a provider error onto an ErrorKind.
func classify(err error) ErrorKind {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return kindForCode(apiErr.Message)
	}
	switch {
	case auth.IsEmailAlreadyExists(err):
		return KindEmailInUse
	case auth.IsUserNotFound(err):
		return KindUserNotFound
	}
	// The Admin SDK validates arguments locally before calling the API.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "email"):
		return KindInvalidEmail
	case strings.Contains(msg, "password"):
		return KindWeakPassword
	}
	return KindUnknown
}

// kindForCode maps an Identity Toolkit error message such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func kindForCode(message string) ErrorKind {
	code := strings.TrimSpace(message)
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return KindInvalidEmail
	case "USER_DISABLED":
		return KindUserDisabled
	case "EMAIL_NOT_FOUND":
		return KindUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "MISSING_PASSWORD":
		return KindWrongPassword
	case "EMAIL_EXISTS":
		return KindEmailInUse
	case "OPERATION_NOT_ALLOWED", "PASSWORD_LOGIN_DISABLED":
		return KindOperationNotAllowed
	case "WEAK_PASSWORD":
		return KindWeakPassword
	case "INVALID_ID_TOKEN", "TOKEN_EXPIRED", "USER_NOT_FOUND":
		return KindInvalidToken
	}
	return KindUnknown
}

var _ Provider = (*FirebaseProvider)(nil)
