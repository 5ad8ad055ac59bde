package auth

import (
	"regexp"
	"strings"
)

const minPasswordLength = 6

var (
	emailPattern    = regexp.MustCompile(`\S+@\S+\.\S+`)
	fullNamePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
)

// SignUpRequest is the registration form.
type SignUpRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// SignInRequest is the login form.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FieldErrors maps form fields to messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes the coded errors behind the credential fields, so
// errors.Is(err, ErrInvalidEmail) holds for a rejected form.
func (e FieldErrors) Unwrap() []error {
	var errs []error
	if _, ok := e["email"]; ok {
		errs = append(errs, ErrInvalidEmail)
	}
	if _, ok := e["password"]; ok {
		errs = append(errs, ErrWeakPassword)
	}
	return errs
}

// Validate checks the registration form before any remote call.
func (r SignUpRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	switch {
	case strings.TrimSpace(r.FullName) == "":
		errs["fullName"] = "Full Name is required."
	case !fullNamePattern.MatchString(r.FullName):
		errs["fullName"] = "Full Name can only contain letters and spaces."
	}
	if r.Password != r.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match."
	}
	validateCredentials(errs, r.Email, r.Password)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the login form before any remote call.
func (r SignInRequest) Validate() FieldErrors {
	errs := FieldErrors{}
	validateCredentials(errs, r.Email, r.Password)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateCredentials(errs FieldErrors, email, password string) {
	if !ValidEmail(email) {
		errs["email"] = "Valid email is required."
	}
	if len(password) < minPasswordLength {
		errs["password"] = "Password must be at least 6 characters."
	}
}

// ValidEmail applies the loose something@something.something rule.
func ValidEmail(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}
