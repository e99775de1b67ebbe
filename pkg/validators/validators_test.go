package validators

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailValidator(t *testing.T) {
	assert.NoError(t, EmailValidator("a@example.com"))
	assert.ErrorIs(t, EmailValidator(""), ErrEmailEmpty)
	assert.ErrorIs(t, EmailValidator("nope"), ErrEmailInvalid)
	assert.ErrorIs(t, EmailValidator("Bob <bob@example.com>"), ErrEmailInvalid)
}

func TestPasswordValidators(t *testing.T) {
	assert.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	assert.ErrorIs(t, PasswordValidator("1234567"), ErrPasswordTooShort)
	assert.NoError(t, PasswordValidator("12345678"))
	assert.ErrorIs(t, PasswordValidator(strings.Repeat("a", 256)), ErrPasswordTooLong)

	assert.NoError(t, PasswordPairValidator("12345678", "12345678"))
	assert.ErrorIs(t, PasswordPairValidator("12345678", "12345679"), ErrPasswordMismatch)
	assert.ErrorIs(t, PasswordPairValidator("short", "short"), ErrPasswordTooShort)
}

func TestContentValidators(t *testing.T) {
	title, err := TitleValidator("  Hello  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello", title)

	_, err = TitleValidator("   Hey    ")
	assert.ErrorIs(t, err, ErrTitleTooShort, "whitespace doesn't count")

	_, err = PostBodyValidator("too short")
	assert.ErrorIs(t, err, ErrBodyTooShort)

	body, err := PostBodyValidator(" long enough ")
	require.NoError(t, err)
	assert.Equal(t, "long enough", body)

	_, err = CommentValidator(" ab ")
	assert.ErrorIs(t, err, ErrCommentTooShort)

	_, err = CommentValidator(strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, ErrCommentTooLong)

	c, err := CommentValidator(strings.Repeat("ż", 1000))
	require.NoError(t, err, "length is counted in characters")
	assert.NotEmpty(t, c)

	_, err = NameValidator("  ")
	assert.ErrorIs(t, err, ErrNameEmpty)

	_, err = NameValidator(strings.Repeat("n", 151))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

type sample struct {
	Email   string `json:"email" binding:"required,email"`
	OTPCode string `json:"otp_code" binding:"required,len=6,numeric"`
	Name    string `json:"name" binding:"notblank"`
}

func TestBindingMessages(t *testing.T) {
	require.NoError(t, Register())
	require.NoError(t, Register())

	err := binding.Validator.ValidateStruct(sample{Email: "a@example.com", OTPCode: "123456", Name: "   "})
	field, msg := Message(err)
	assert.Equal(t, "name", field)
	assert.Equal(t, "name is required", msg)

	err = binding.Validator.ValidateStruct(sample{Email: "a@example.com", OTPCode: "123", Name: "x"})
	field, msg = Message(err)
	assert.Equal(t, "otp_code", field)
	assert.Equal(t, "otp_code must be exactly 6 characters long", msg)

	err = binding.Validator.ValidateStruct(sample{Email: "bad", OTPCode: "123456", Name: "x"})
	field, _ = Message(err)
	assert.Equal(t, "email", field)

	assert.NoError(t, binding.Validator.ValidateStruct(sample{Email: "a@example.com", OTPCode: "123456", Name: "x"}))

	field, msg = Message(assert.AnError)
	assert.Empty(t, field)
	assert.Equal(t, "Malformed request body", msg)
}
