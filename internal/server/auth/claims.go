// Package auth issues and verifies session tokens and projects them into the
// session view served to clients.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserType classifies an account for entitlements. Only regular users exist.
type UserType string

const UserTypeRegular UserType = "regular"

// Claim is the identity produced by a successful sign-in.
type Claim struct {
	ID       string
	Username string
	Type     UserType
}

// TokenClaims is the signed payload of a session token.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   string   `json:"id"`
	Username string   `json:"username"`
	Type     UserType `json:"type"`
}

// Claim returns the identity carried by the token.
func (c *TokenClaims) Claim() Claim {
	return Claim{ID: c.UserID, Username: c.Username, Type: c.Type}
}

type SessionUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Type     UserType `json:"type"`
	Name     string   `json:"name"`
}

// SessionView is the client-visible session.
type SessionView struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}

// Project copies the identity fields of a token into a session view. The
// display name is always the username.
func Project(c *TokenClaims) SessionView {
	v := SessionView{
		User: SessionUser{
			ID:       c.UserID,
			Username: c.Username,
			Type:     c.Type,
			Name:     c.Username,
		},
	}
	if c.ExpiresAt != nil {
		v.Expires = c.ExpiresAt.Time
	}
	return v
}
