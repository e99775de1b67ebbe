package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrTokenInvalid  = errors.New("token invalid")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenWrongUse = errors.New("token used for the wrong purpose")
)

type Claims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// Issuer signs and verifies HS256 access and refresh tokens
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL is how long access tokens stay valid
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) IssuePair(userID string) (*TokenPair, error) {
	refresh, err := i.Issue(userID, RefreshToken)
	if err != nil {
		return nil, err
	}

	access, err := i.Issue(userID, AccessToken)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Refresh: refresh, Access: access}, nil
}

func (i *Issuer) Issue(userID string, typ TokenType) (string, error) {
	if userID == "" {
		return "", errors.New("no user ID provided")
	}

	ttl := i.accessTTL
	if typ == RefreshToken {
		ttl = i.refreshTTL
	}

	now := i.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token, %w", err)
	}

	return signed, nil
}

// Verify parses tokenStr and returns the user ID it was issued for. Tokens of
// another type than typ are rejected.
func (i *Issuer) Verify(tokenStr string, typ TokenType) (string, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}

		return "", fmt.Errorf("%w, %w", ErrTokenInvalid, err)
	}

	if claims.Type != typ {
		return "", ErrTokenWrongUse
	}

	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
