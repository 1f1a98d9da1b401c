package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "gophchat session token v1"

// DeriveKey stretches the configured secret into a 32-byte HS256 key.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("empty secret")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of freshly issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Issue(c Claim) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserID:   c.ID,
		Username: c.Username,
		Type:     c.Type,
	})

	tokenString, err := token.SignedString(i.key)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (i *Issuer) Parse(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Session verifies the token and returns its session view.
func (i *Issuer) Session(tokenString string) (*SessionView, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	v := Project(claims)
	return &v, nil
}

// NearExpiry reports whether less than half of the token lifetime remains.
func (i *Issuer) NearExpiry(c *TokenClaims) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return c.ExpiresAt.Sub(i.now()) < i.ttl/2
}

// Reissue verifies the token and signs the same identity with a fresh
// expiry.
func (i *Issuer) Reissue(tokenString string) (string, *TokenClaims, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return "", nil, err
	}
	fresh, err := i.Issue(claims.Claim())
	if err != nil {
		return "", nil, err
	}
	next, err := i.Parse(fresh)
	if err != nil {
		return "", nil, err
	}
	return fresh, next, nil
}
