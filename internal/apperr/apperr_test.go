package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	wrappedNotFound := fmt.Errorf("otp %w", ErrNotFound)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation("email", "bad"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("signup, %w", Validation("", "bad")), http.StatusBadRequest},
		{"expired", fmt.Errorf("otp %w", ErrExpired), http.StatusBadRequest},
		{"not found", wrappedNotFound, http.StatusNotFound},
		{"conflict", ErrConflict, http.StatusConflict},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"throttled", ErrTooManyRequests, http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"delivery", ErrDelivery, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(tc.err))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "email: already taken", Validation("email", "already taken").Error())
	assert.Equal(t, "passwords don't match", Validation("", "passwords don't match").Error())
}

func TestMessage(t *testing.T) {
	forbidden := New(ErrForbidden, "You can only edit your own posts")

	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "You can only edit your own posts", Message(fmt.Errorf("update, %w", forbidden)))
	assert.ErrorIs(t, forbidden, ErrForbidden)
	assert.Equal(t, http.StatusForbidden, Status(forbidden))

	assert.Equal(t, "bad", Message(Validation("email", "bad")))
	assert.Equal(t, "post not found", Message(fmt.Errorf("post %w", ErrNotFound)))
	assert.Equal(t, "Internal server error", Message(errors.New("pq: connection refused")))
}

func TestField(t *testing.T) {
	assert.Equal(t, "email", Field(fmt.Errorf("x, %w", Validation("email", "bad"))))
	assert.Equal(t, "", Field(ErrNotFound))
}
