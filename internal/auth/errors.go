package auth

import "errors"

// Error codes surfaced to clients.
const (
	CodeEmailInUse       = "auth/email-already-in-use"
	CodeInvalidEmail     = "auth/invalid-email"
	CodeWeakPassword     = "auth/weak-password"
	CodeWrongCredentials = "auth/wrong-credentials"
	CodeUserNotFound     = "auth/user-not-found"
	CodeInvalidToken     = "auth/invalid-token"
)

// Error is an identity failure with a stable code.
type Error struct {
	Code string
}

func (e *Error) Error() string { return e.Code }

// Is matches on code so wrapped copies compare equal.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

var (
	ErrEmailInUse       = &Error{Code: CodeEmailInUse}
	ErrInvalidEmail     = &Error{Code: CodeInvalidEmail}
	ErrWeakPassword     = &Error{Code: CodeWeakPassword}
	ErrWrongCredentials = &Error{Code: CodeWrongCredentials}
	ErrUserNotFound     = &Error{Code: CodeUserNotFound}
	ErrInvalidToken     = &Error{Code: CodeInvalidToken}
)

var messages = map[string]string{
	CodeEmailInUse:       "⚠️ Email already registered. Try logging in.",
	CodeInvalidEmail:     "⚠️ Invalid email format.",
	CodeWeakPassword:     "⚠️ Password too weak (min 6 characters).",
	CodeWrongCredentials: "❌ Wrong email or password.",
	CodeUserNotFound:     "❌ Wrong email or password.",
	CodeInvalidToken:     "⚠️ Your session has expired. Please log in again.",
}

// Message maps an error to the text shown to the user.
func Message(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		if msg, ok := messages[authErr.Code]; ok {
			return msg
		}
	}
	return "⚠️ Something went wrong. Please try again."
}

// Code extracts the auth code of err, or "" if it is not an identity error.
func Code(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}
