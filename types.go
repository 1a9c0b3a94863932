package authgate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes of a provider-issued auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetEmail() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
	IsEmailConfirmed() bool
	GetData() map[string]any
}

// SessionEventType identifies why the identity client emitted an event
type SessionEventType string

const (
	SessionSignedIn  SessionEventType = "signed_in"
	SessionSignedOut SessionEventType = "signed_out"
	SessionRefreshed SessionEventType = "refreshed"
)

// SessionEvent is delivered to session-change subscribers. Session is nil
// after a sign out.
type SessionEvent struct {
	Type    SessionEventType
	Session Session
}

// Unsubscribe tears down a subscription. Safe to call more than once.
type Unsubscribe func()

// IdentityClient is the identity provider boundary. Tokens and credential
// verification are owned by the implementation; callers consume sessions
// as opaque values.
type IdentityClient interface {
	SignUp(ctx context.Context, email, username, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context) error
	ResendConfirmation(ctx context.Context, email string) error
	CurrentSession(ctx context.Context) (Session, error)
	OnSessionChange(fn func(SessionEvent)) Unsubscribe
}

// EmailConfirmer is implemented by identity clients that can consume a
// confirmation token minted at sign up. Returns the confirmed user id.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) (string, error)
}

// ProfileStore is the profile boundary, keyed by user identifier
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	GetRole(ctx context.Context, userID string) (Role, error)
	CompleteOnboarding(ctx context.Context, userID string) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetTokenExpiration() int
	GetConfirmationExpiration() int
	GetIssuer() string
	GetAudience() []string
}

// TokenService issues and validates local session tokens
type TokenService interface {
	Generate(user *User, role Role) (string, error)
	GenerateConfirmation(user *User) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(token string) (AuthClaims, error)
}

// ConfirmationSender delivers the email-confirmation link. The default
// implementation only logs; wire a mailer in production.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, email, token string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHGATE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHGATE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHGATE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHGATE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
