package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastArgon() *ArgonHash {
	a := New()
	a.Memory = 1024
	a.Iterations = 1
	return a
}

func TestArgonRoundTrip(t *testing.T) {
	a := fastArgon()

	hash, err := a.GenerateFromPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=2$"))

	ok, err := a.VerifyPasswd("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := a.GenerateFromPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")

	// Parameters are read from the hash, not the hasher
	ok, err = New().VerifyPasswd("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgonRejectsGarbage(t *testing.T) {
	a := fastArgon()

	for _, h := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=x,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$AAAA",
	} {
		_, err := a.VerifyPasswd("pw", h)
		assert.ErrorIs(t, err, ErrInvalidHash, h)
	}
}

func TestIssuerPair(t *testing.T) {
	i := NewIssuer("secret", time.Minute, time.Hour)

	pair, err := i.IssuePair("user_a")
	require.NoError(t, err)

	id, err := i.Verify(pair.Access, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user_a", id)

	id, err = i.Verify(pair.Refresh, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user_a", id)

	_, err = i.Verify(pair.Refresh, AccessToken)
	assert.ErrorIs(t, err, ErrTokenWrongUse)

	_, err = i.Verify(pair.Access, RefreshToken)
	assert.ErrorIs(t, err, ErrTokenWrongUse)

	_, err = i.IssuePair("")
	assert.Error(t, err)
}

func TestIssuerRejectsForeignAndExpiredTokens(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	i := NewIssuer("secret", time.Minute, time.Hour)
	i.now = func() time.Time { return now }

	access, err := i.Issue("user_a", AccessToken)
	require.NoError(t, err)

	other := NewIssuer("other", time.Minute, time.Hour)
	other.now = i.now

	_, err = other.Verify(access, AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = i.Verify("not.a.token", AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	now = now.Add(2 * time.Minute)
	_, err = i.Verify(access, AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
