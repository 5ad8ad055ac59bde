package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edgex-labs/edgex/backend/internal/store"
)

func newTestService() *Service {
	return NewService(store.NewMemory(), Config{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})
}

func signUpRequest() SignUpRequest {
	return SignUpRequest{FullName: "Asha Roy", Email: "asha@example.com", Password: "secret1", ConfirmPassword: "secret1"}
}

func TestSignUpThenSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	session, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "Asha Roy", session.User.FullName)
	assert.NotEqual(t, "secret1", session.User.PasswordHash)

	signedIn, err := svc.SignIn(ctx, SignInRequest{Email: "ASHA@example.com", Password: "secret1"})
	require.NoError(t, err)

	u, err := svc.Verify(ctx, signedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, u.ID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, signUpRequest())
	require.ErrorIs(t, err, ErrEmailInUse)
	assert.Equal(t, "⚠️ Email already registered. Try logging in.", Message(err))
}

func TestSignInWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrWrongCredentials)
	assert.Equal(t, "❌ Wrong email or password.", Message(err))

	_, err = svc.SignIn(ctx, SignInRequest{Email: "nobody@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrWrongCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	session, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, session.Token))
	_, err = svc.Verify(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := newTestService().Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, CodeInvalidToken, Code(err))
}

func TestExpiredTokenIsRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := issuer.Issue("u1", "a@b.co")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Minute).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	var events []EventType
	unsubscribe := svc.Subscribe(func(e Event) { events = append(events, e.Type) })

	session, err := svc.SignUp(ctx, signUpRequest())
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, session.Token))

	unsubscribe()
	_, err = svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventSignedIn, EventSignedOut}, events)
}

func TestValidation(t *testing.T) {
	req := SignUpRequest{FullName: "R2-D2", Email: "nope", Password: "123", ConfirmPassword: "1234"}
	errs := req.Validate()
	require.NotNil(t, errs)
	assert.Equal(t, "Full Name can only contain letters and spaces.", errs["fullName"])
	assert.Equal(t, "Passwords do not match.", errs["confirmPassword"])
	assert.Equal(t, "Valid email is required.", errs["email"])
	assert.Equal(t, "Password must be at least 6 characters.", errs["password"])

	_, err := newTestService().SignUp(context.Background(), req)
	var fieldErrs FieldErrors
	assert.True(t, errors.As(err, &fieldErrs))
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Equal(t, CodeInvalidEmail, Code(err))

	assert.Nil(t, SignInRequest{Email: "a@b.co", Password: "secret1"}.Validate())
	assert.Equal(t, "Full Name is required.", SignUpRequest{FullName: "  "}.Validate()["fullName"])
}

func TestValidationCodes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.SignIn(ctx, SignInRequest{Email: "asha@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.NotErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, CodeWeakPassword, Code(err))

	_, err = svc.SignIn(ctx, SignInRequest{Email: "asha", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.NotErrorIs(t, err, ErrWeakPassword)

	req := signUpRequest()
	req.FullName = ""
	_, err = svc.SignUp(ctx, req)
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Empty(t, Code(err))
}
