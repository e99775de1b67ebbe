package validators

import "errors"

const (
	PasswordMinLength = 8
	PasswordMaxLength = 255
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordMismatch = errors.New("passwords don't match")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < PasswordMinLength {
		return ErrPasswordTooShort
	}

	if len(p) > PasswordMaxLength {
		return ErrPasswordTooLong
	}

	return nil
}

// PasswordPairValidator validates p and checks the confirmation matches it
func PasswordPairValidator(p, confirm string) error {
	if err := PasswordValidator(p); err != nil {
		return err
	}

	if p != confirm {
		return ErrPasswordMismatch
	}

	return nil
}
