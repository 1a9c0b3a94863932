package authgate

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes carried in the purpose claim
const (
	PurposeSession      = "session"
	PurposeEmailConfirm = "email_confirm"
)

// AuthClaims represents the structured claims of a locally issued token
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	EmailVerified() bool
	Purpose() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID            string `json:"uid,omitempty"`
	UserEmail      string `json:"email,omitempty"`
	UserRole       string `json:"role,omitempty"`
	EmailConfirmed bool   `json:"email_verified,omitempty"`
	TokenPurpose   string `json:"purpose,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID, falling back to the subject
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the account email
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the global role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// EmailVerified reports whether the address was confirmed when the token
// was minted
func (c *JWTClaims) EmailVerified() bool {
	return c.EmailConfirmed
}

// Purpose returns the token purpose, defaulting to session
func (c *JWTClaims) Purpose() string {
	if c.TokenPurpose == "" {
		return PurposeSession
	}
	return c.TokenPurpose
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID assigns a jti when the claims carry none
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = newTokenID()
	}
}
