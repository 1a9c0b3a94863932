package authgate

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProfileProvider adapts the Profiles repository to the string-keyed
// ProfileStore boundary consumed by the aggregator.
type ProfileProvider struct {
	profiles Profiles
	logger   Logger
}

var _ ProfileStore = (*ProfileProvider)(nil)
var _ ProfileEditor = (*ProfileProvider)(nil)

// NewProfileProvider will create a new ProfileProvider
func NewProfileProvider(profiles Profiles) *ProfileProvider {
	return &ProfileProvider{
		profiles: profiles,
		logger:   defLogger{},
	}
}

func (p *ProfileProvider) WithLogger(l Logger) *ProfileProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// GetProfile returns the profile for the user, or nil when none exists
func (p *ProfileProvider) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid user identifier")
	}

	profile, err := p.profiles.GetByUserID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to fetch user profile")
	}

	return profile, nil
}

// GetRole returns the user's role, or RoleNone when no profile exists
func (p *ProfileProvider) GetRole(ctx context.Context, userID string) (Role, error) {
	profile, err := p.GetProfile(ctx, userID)
	if err != nil {
		return RoleNone, err
	}

	if profile == nil {
		return RoleNone, nil
	}

	role, ok := ParseRole(string(profile.Role))
	if !ok {
		p.logger.Warn("profile carries an unknown role", "user_id", userID, "role", profile.Role)
		return RoleNone, nil
	}

	return role, nil
}

// UpdateDisplay sets the user's display name and avatar
func (p *ProfileProvider) UpdateDisplay(ctx context.Context, userID, displayName, avatarURL string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid user identifier")
	}

	if err := p.profiles.UpdateDisplay(ctx, id, displayName, avatarURL); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update profile display")
	}

	return nil
}

// CompleteOnboarding marks the one-time setup flow finished for the user
func (p *ProfileProvider) CompleteOnboarding(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid user identifier")
	}

	if err := p.profiles.CompleteOnboarding(ctx, id); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to complete onboarding")
	}

	return nil
}
