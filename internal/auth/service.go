// Package auth holds the account flows: signup, login, token refresh and
// password reset through one-time codes.
package auth

import (
	"bitwise74/blog-api/internal/apperr"
	"bitwise74/blog-api/internal/cooldown"
	"bitwise74/blog-api/internal/mail"
	"bitwise74/blog-api/internal/model"
	"bitwise74/blog-api/internal/otp"
	"bitwise74/blog-api/pkg/security"
	"bitwise74/blog-api/pkg/validators"
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	userIDCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	userIDLength  = 16
)

var (
	ErrEmailTaken         = fmt.Errorf("email %w", apperr.ErrConflict)
	ErrInvalidCredentials = apperr.Validation("", "Invalid credentials")
	ErrUnknownEmail       = apperr.Validation("email", "No user found with this email address")
	ErrInvalidOTP         = apperr.Validation("otp_code", "Invalid OTP code")
	ErrInvalidRefresh     = apperr.New(apperr.ErrUnauthorized, "Refresh token invalid or expired")
)

type Options struct {
	DB       *gorm.DB
	Argon    *security.ArgonHash
	Tokens   *security.Issuer
	OTP      *otp.Manager
	Mailer   mail.Dispatcher
	Cooldown cooldown.Limiter // Optional
}

// hasher is the part of security.ArgonHash the service needs
type hasher interface {
	GenerateFromPassword(password string) (string, error)
	VerifyPasswd(password, hash string) (bool, error)
}

type Service struct {
	db       *gorm.DB
	argon    hasher
	tokens   *security.Issuer
	otp      *otp.Manager
	mailer   mail.Dispatcher
	cooldown cooldown.Limiter
}

func New(o Options) *Service {
	return &Service{
		db:       o.DB,
		argon:    o.Argon,
		tokens:   o.Tokens,
		otp:      o.OTP,
		mailer:   o.Mailer,
		cooldown: o.Cooldown,
	}
}

type SignupInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*model.User, *security.TokenPair, error) {
	if err := validators.EmailValidator(in.Email); err != nil {
		return nil, nil, apperr.Validation("email", err.Error())
	}

	if err := validators.PasswordPairValidator(in.Password, in.PasswordConfirm); err != nil {
		field := "password"
		if errors.Is(err, validators.ErrPasswordMismatch) {
			field = "password_confirm"
		}

		return nil, nil, apperr.Validation(field, err.Error())
	}

	first, err := validators.NameValidator(in.FirstName)
	if err != nil {
		return nil, nil, apperr.Validation("first_name", err.Error())
	}

	last, err := validators.NameValidator(in.LastName)
	if err != nil {
		return nil, nil, apperr.Validation("last_name", err.Error())
	}

	hash, err := s.argon.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password, %w", err)
	}

	userID, err := gonanoid.Generate(userIDCharset, userIDLength)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	user := &model.User{
		ID:           userID,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    first,
		LastName:     last,
	}

	// The unique index decides, two signups racing for one email can't both win
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, fmt.Errorf("%w, %w", ErrEmailTaken, apperr.Validation("email", "A user with this email already exists"))
		}

		return nil, nil, fmt.Errorf("failed to create user, %w", err)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *security.TokenPair, error) {
	if email == "" || password == "" {
		return nil, nil, apperr.Validation("", "Must include email and password")
	}

	user, err := s.userByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}

		return nil, nil, err
	}

	ok, err := s.argon.VerifyPasswd(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh trades a refresh token for a new access token
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		return "", apperr.Validation("refresh", "refresh is required")
	}

	userID, err := s.tokens.Verify(refresh, security.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w, %w", ErrInvalidRefresh, err)
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(model.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return "", fmt.Errorf("failed to check if user exists, %w", err)
	}

	if n == 0 {
		return "", ErrInvalidRefresh
	}

	return s.tokens.Issue(userID, security.AccessToken)
}

// RequestPasswordReset issues a fresh code for the account behind email and
// queues the mail carrying it. A failed hand-off to the mailer is logged, the
// code stays issued and the user can ask again.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*model.PasswordResetOTP, error) {
	if err := validators.EmailValidator(email); err != nil {
		return nil, apperr.Validation("email", err.Error())
	}

	user, err := s.userByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrUnknownEmail
		}

		return nil, err
	}

	if s.cooldown != nil {
		if err := cooldown.Check(ctx, s.cooldown, user.Email); err != nil {
			return nil, err
		}
	}

	code, err := s.otp.Issue(ctx, user.ID)
	if err != nil {
		// No code went out, the user may retry right away
		if s.cooldown != nil {
			if rerr := s.cooldown.Release(ctx, user.Email); rerr != nil {
				zap.L().Error("Failed to release password reset cooldown",
					zap.String("user_id", user.ID),
					zap.Error(rerr))
			}
		}

		return nil, err
	}

	msg := mail.PasswordReset(user.Email, user.DisplayName(), code.Code, s.otp.Expiry())
	if err := s.mailer.Dispatch(ctx, msg); err != nil {
		zap.L().Error("Failed to queue password reset mail",
			zap.String("user_id", user.ID),
			zap.Error(fmt.Errorf("%w, %w", apperr.ErrDelivery, err)))
	}

	return code, nil
}

type ConfirmInput struct {
	Email           string
	OTPCode         string
	NewPassword     string
	ConfirmPassword string
}

// ConfirmPasswordReset checks the code and sets the new password. Checking,
// updating the password and consuming the code happen in one transaction,
// so a code can only ever change the password once.
func (s *Service) ConfirmPasswordReset(ctx context.Context, in ConfirmInput) error {
	if err := validators.EmailValidator(in.Email); err != nil {
		return apperr.Validation("email", err.Error())
	}

	if !otp.ValidCode(in.OTPCode) {
		return apperr.Validation("otp_code", fmt.Sprintf("otp_code must be exactly %d digits", otp.CodeLength))
	}

	if err := validators.PasswordPairValidator(in.NewPassword, in.ConfirmPassword); err != nil {
		field := "new_password"
		if errors.Is(err, validators.ErrPasswordMismatch) {
			field = "confirm_password"
		}

		return apperr.Validation(field, err.Error())
	}

	// Wrong guesses are turned away before paying for a hash. The check is
	// repeated under lock below.
	if _, _, err := s.checkCode(ctx, s.db.WithContext(ctx), s.otp, in.Email, in.OTPCode); err != nil {
		return err
	}

	hash, err := s.argon.GenerateFromPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := s.otp.WithStore(otp.NewGormStore(tx))

		user, code, err := s.checkCode(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), m, in.Email, in.OTPCode)
		if err != nil {
			return err
		}

		err = tx.Model(model.User{}).
			Where("id = ?", user.ID).
			Update("password_hash", hash).
			Error
		if err != nil {
			return fmt.Errorf("failed to update password, %w", err)
		}

		return m.Consume(ctx, code)
	})
}

// checkCode finds the user behind email and their unused code matching otpCode
func (s *Service) checkCode(ctx context.Context, tx *gorm.DB, m *otp.Manager, email, otpCode string) (*model.User, *model.PasswordResetOTP, error) {
	user, err := s.userByEmail(tx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil, ErrUnknownEmail
		}

		return nil, nil, err
	}

	code, err := m.Validate(ctx, user.ID, otpCode)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrNotFound):
			return nil, nil, ErrInvalidOTP
		case errors.Is(err, otp.ErrExpired):
			return nil, nil, fmt.Errorf("%w, %w", err, apperr.Validation("otp_code", "OTP has expired. Please request a new one."))
		default:
			return nil, nil, err
		}
	}

	return user, code, nil
}

func (s *Service) userByEmail(tx *gorm.DB, email string) (*model.User, error) {
	var user model.User

	err := tx.Where("email = ?", email).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", apperr.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return &user, nil
}
