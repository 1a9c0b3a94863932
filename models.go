package authgate

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the user's coarse authorization tag
type Role = string

const (
	// RoleAdmin can reach the admin surface
	RoleAdmin Role = "admin"
	// RoleUser is the default role for every account after the first
	RoleUser Role = "user"
	// RoleNone marks an unknown or unauthenticated role
	RoleNone Role = ""
)

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	switch role {
	case RoleAdmin, RoleUser:
		return role, true
	default:
		return RoleNone, false
	}
}

// User is the identity record behind the local identity client
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email            string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username         string     `bun:"username,notnull" json:"username,omitempty"`
	PasswordHash     string     `bun:"password_hash" json:"password_hash,omitempty"`
	EmailConfirmedAt *time.Time `bun:"email_confirmed_at,nullzero" json:"email_confirmed_at,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt        *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsEmailConfirmed reports whether the confirmation link was followed
func (u *User) IsEmailConfirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// Profile carries the authorization and onboarding data joined into auth
// snapshots. UserID carries a uniqueness constraint; the first-write race
// during registration bootstrap is serialized by it.
type Profile struct {
	bun.BaseModel       `bun:"table:user_profiles,alias:prf"`
	ID                  uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID              uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Role                Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	DisplayName         string     `bun:"display_name" json:"display_name,omitempty"`
	AvatarURL           string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	OnboardingCompleted bool       `bun:"onboarding_completed" json:"onboarding_completed,omitempty"`
	CreatedAt           *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
