package auth

import (
	"bitwise74/blog-api/db/dbtest"
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/cooldown"
	"bitwise74/blog-api/internal/mail"
	"bitwise74/blog-api/internal/otp"
	"bitwise74/blog-api/pkg/security"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	msgs []*mail.Message
	err  error
}

func (f *fakeMailer) Dispatch(_ context.Context, m *mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeMailer) Close() error { return nil }

func (f *fakeMailer) Last() *mail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.msgs) == 0 {
		return nil
	}

	return f.msgs[len(f.msgs)-1]
}

type env struct {
	svc    *Service
	db     *gorm.DB
	mailer *fakeMailer
	now    *time.Time
}

func newEnv(t *testing.T, limiter cooldown.Limiter) *env {
	t.Helper()

	db := dbtest.New(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	argon := security.New()
	argon.Memory = 1024
	argon.Iterations = 1

	e := &env{db: db, mailer: &fakeMailer{}, now: &now}
	e.svc = New(Options{
		DB:       db,
		Argon:    argon,
		Tokens:   security.NewIssuer("secret", time.Hour, 24*time.Hour),
		OTP:      otp.New(otp.NewGormStore(db), otp.Config{Now: func() time.Time { return *e.now }}),
		Mailer:   e.mailer,
		Cooldown: limiter,
	})

	return e
}

func (e *env) signup(t *testing.T, email string) {
	t.Helper()

	_, _, err := e.svc.Signup(context.Background(), SignupInput{
		Email:           email,
		Password:        "password123",
		PasswordConfirm: "password123",
		FirstName:       "Ann",
		LastName:        "Smith",
	})
	require.NoError(t, err)
}

func (e *env) codeFromMail(t *testing.T) string {
	t.Helper()

	m := e.mailer.Last()
	require.NotNil(t, m)

	var code otpRow
	require.NoError(t, e.db.Table("password_reset_otps").Where("used = ?", false).Order("id desc").Take(&code).Error)
	require.Contains(t, m.Text, code.Code)

	return code.Code
}

type otpRow struct {
	Code string
}

type countingHasher struct {
	hasher
	hashes int
}

func (c *countingHasher) GenerateFromPassword(p string) (string, error) {
	c.hashes++
	return c.hasher.GenerateFromPassword(p)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestSignup(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	user, pair, err := e.svc.Signup(ctx, SignupInput{
		Email:           "a@example.com",
		Password:        "password123",
		PasswordConfirm: "password123",
		FirstName:       "  Ann ",
		LastName:        "Smith",
	})
	require.NoError(t, err)
	assert.Len(t, user.ID, 16)
	assert.Equal(t, "Ann", user.FirstName)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	_, _, err = e.svc.Signup(ctx, SignupInput{
		Email:           "a@example.com",
		Password:        "password456",
		PasswordConfirm: "password456",
		FirstName:       "Bob",
		LastName:        "Smith",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
}

func TestSignupValidation(t *testing.T) {
	e := newEnv(t, nil)

	cases := []struct {
		in    SignupInput
		field string
	}{
		{SignupInput{Email: "bad", Password: "password123", PasswordConfirm: "password123", FirstName: "A", LastName: "B"}, "email"},
		{SignupInput{Email: "a@example.com", Password: "short", PasswordConfirm: "short", FirstName: "A", LastName: "B"}, "password"},
		{SignupInput{Email: "a@example.com", Password: "password123", PasswordConfirm: "password124", FirstName: "A", LastName: "B"}, "password_confirm"},
		{SignupInput{Email: "a@example.com", Password: "password123", PasswordConfirm: "password123", FirstName: " ", LastName: "B"}, "first_name"},
		{SignupInput{Email: "a@example.com", Password: "password123", PasswordConfirm: "password123", FirstName: "A"}, "last_name"},
	}

	for _, c := range cases {
		_, _, err := e.svc.Signup(context.Background(), c.in)

		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr), c.field)
		assert.Equal(t, c.field, verr.Field)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	user, pair, err := e.svc.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)

	_, _, err = e.svc.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = e.svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = e.svc.Login(ctx, "A@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "emails are case sensitive")

	access, err := e.svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, err = e.svc.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))

	_, err = e.svc.Refresh(ctx, "")
	assert.True(t, apperr.IsValidation(err))
}

func TestPasswordResetFlow(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	_, err := e.svc.RequestPasswordReset(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUnknownEmail)

	issued, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)
	code := e.codeFromMail(t)
	assert.Equal(t, issued.Code, code)
	assert.Contains(t, e.mailer.Last().Text, "10 minutes")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: wrong, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	assert.ErrorIs(t, err, ErrInvalidOTP)

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	require.NoError(t, err)

	_, _, err = e.svc.Login(ctx, "a@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = e.svc.Login(ctx, "a@example.com", "newpassword")
	require.NoError(t, err)

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: code, NewPassword: "another-one", ConfirmPassword: "another-one",
	})
	assert.ErrorIs(t, err, ErrInvalidOTP, "a code works once")
}

func TestPasswordResetSupersededCode(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	first, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	*e.now = e.now.Add(time.Minute)

	second, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	if first.Code != second.Code {
		err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
			Email: "a@example.com", OTPCode: first.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
		})
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: second.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	require.NoError(t, err)
}

func TestPasswordResetExpiredCode(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	issued, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	*e.now = e.now.Add(11 * time.Minute)

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: issued.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	assert.ErrorIs(t, err, otp.ErrExpired)

	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "OTP has expired. Please request a new one.", verr.Message)

	// The password is unchanged
	_, _, err = e.svc.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)
}

func TestConfirmValidation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	cases := []struct {
		in    ConfirmInput
		field string
	}{
		{ConfirmInput{Email: "x", OTPCode: "123456", NewPassword: "password1", ConfirmPassword: "password1"}, "email"},
		{ConfirmInput{Email: "a@example.com", OTPCode: "12345", NewPassword: "password1", ConfirmPassword: "password1"}, "otp_code"},
		{ConfirmInput{Email: "a@example.com", OTPCode: "123456", NewPassword: "short", ConfirmPassword: "short"}, "new_password"},
		{ConfirmInput{Email: "a@example.com", OTPCode: "123456", NewPassword: "password1", ConfirmPassword: "password2"}, "confirm_password"},
		{ConfirmInput{Email: "nobody@example.com", OTPCode: "123456", NewPassword: "password1", ConfirmPassword: "password1"}, "email"},
	}

	for _, c := range cases {
		err := e.svc.ConfirmPasswordReset(ctx, c.in)

		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr), c.field)
		assert.Equal(t, c.field, verr.Field)
	}
}

func TestPasswordResetCooldown(t *testing.T) {
	limiter := cooldown.NewMemory(time.Minute)
	t.Cleanup(func() { limiter.Close() })

	e := newEnv(t, limiter)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	_, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	_, err = e.svc.RequestPasswordReset(ctx, "a@example.com")
	assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
}

func TestPasswordResetCooldownReleasedOnIssueFailure(t *testing.T) {
	limiter := cooldown.NewMemory(time.Minute)
	t.Cleanup(func() { limiter.Close() })

	e := newEnv(t, limiter)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	working := e.svc.otp
	e.svc.otp = otp.New(otp.NewGormStore(e.db), otp.Config{Rand: failingReader{}})

	_, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrTooManyRequests)

	e.svc.otp = working

	_, err = e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err, "a failed issue doesn't start the cooldown")

	_, err = e.svc.RequestPasswordReset(ctx, "a@example.com")
	assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
}

func TestConfirmWrongCodeSkipsHashing(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	h := &countingHasher{hasher: e.svc.argon}
	e.svc.argon = h

	issued, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if issued.Code == wrong {
		wrong = "111111"
	}

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: wrong, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	assert.ErrorIs(t, err, ErrInvalidOTP)

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "nobody@example.com", OTPCode: issued.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	assert.ErrorIs(t, err, ErrUnknownEmail)

	*e.now = e.now.Add(11 * time.Minute)
	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: issued.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	assert.ErrorIs(t, err, otp.ErrExpired)

	assert.Zero(t, h.hashes)

	*e.now = e.now.Add(-11 * time.Minute)
	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: issued.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.hashes)
}

func TestPasswordResetSurvivesMailerFailure(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.signup(t, "a@example.com")

	e.mailer.err = mail.ErrQueueFull

	issued, err := e.svc.RequestPasswordReset(ctx, "a@example.com")
	require.NoError(t, err)

	err = e.svc.ConfirmPasswordReset(ctx, ConfirmInput{
		Email: "a@example.com", OTPCode: issued.Code, NewPassword: "newpassword", ConfirmPassword: "newpassword",
	})
	require.NoError(t, err, "the code stays valid when the mail couldn't be queued")
}
