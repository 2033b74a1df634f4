package identity

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of identity failures surfaced to callers.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidEmail
	KindUserDisabled
	KindUserNotFound
	KindWrongPassword
	KindEmailInUse
	KindOperationNotAllowed
	KindWeakPassword
	KindInvalidToken
)

var kindNames = map[ErrorKind]string{
	KindUnknown:             "unknown",
	KindInvalidEmail:        "invalid_email",
	KindUserDisabled:        "user_disabled",
	KindUserNotFound:        "user_not_found",
	KindWrongPassword:       "wrong_password",
	KindEmailInUse:          "email_in_use",
	KindOperationNotAllowed: "operation_not_allowed",
	KindWeakPassword:        "weak_password",
	KindInvalidToken:        "invalid_token",
}

var kindMessages = map[ErrorKind]string{
	KindUnknown:             "An error occurred. Please try again.",
	KindInvalidEmail:        "Invalid email address.",
	KindUserDisabled:        "This account has been disabled.",
	KindUserNotFound:        "No account found with this email.",
	KindWrongPassword:       "Incorrect password.",
	KindEmailInUse:          "An account with this email already exists.",
	KindOperationNotAllowed: "Email/password accounts are not enabled.",
	KindWeakPassword:        "Password should be at least 6 characters.",
	KindInvalidToken:        "Your session has expired. Please sign in again.",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Message is the stable user-facing text for the kind.
func (k ErrorKind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Operation names an identity operation with its own allowed failure set.
type Operation string

const (
	OpSignIn        Operation = "sign_in"
	OpSignUp        Operation = "sign_up"
	OpResetPassword Operation = "reset_password"
	OpVerifyToken   Operation = "verify_token"
	OpSignOut       Operation = "sign_out"
)

var allowedKinds = map[Operation]map[ErrorKind]bool{
	OpSignIn: {
		KindInvalidEmail: true, KindUserDisabled: true, KindUserNotFound: true, KindWrongPassword: true,
	},
	OpSignUp: {
		KindEmailInUse: true, KindInvalidEmail: true, KindOperationNotAllowed: true, KindWeakPassword: true,
	},
	OpResetPassword: {
		KindInvalidEmail: true, KindUserNotFound: true,
	},
	OpVerifyToken: {
		KindInvalidToken: true, KindUserDisabled: true,
	},
}

// Error is an identity provider failure narrowed to its operation's
// allowed kinds. The provider error is kept for logging only.
type Error struct {
	Op   Operation
	Kind ErrorKind
	Err  error
}

// NewError builds an Error for op, collapsing kinds outside the
// operation's set to KindUnknown.
func NewError(op Operation, kind ErrorKind, err error) *Error {
	if !allowedKinds[op][kind] {
		kind = KindUnknown
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("identity %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the user-facing text; it never contains provider output.
func (e *Error) Message() string { return e.Kind.Message() }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Kind, true
	}
	return KindUnknown, false
}
