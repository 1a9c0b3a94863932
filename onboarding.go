package authgate

import (
	"context"

	"github.com/goliatone/go-errors"
)

// OnboardingStep identifies a page of the post-signup flow.
type OnboardingStep string

const (
	StepWelcome     OnboardingStep = "welcome"
	StepProfile     OnboardingStep = "profile"
	StepPreferences OnboardingStep = "preferences"
	StepComplete    OnboardingStep = "complete"
)

// onboardingSteps fixes the walk order of the flow.
var onboardingSteps = []OnboardingStep{
	StepWelcome,
	StepProfile,
	StepPreferences,
	StepComplete,
}

// skippableSteps can be jumped over without input.
var skippableSteps = map[OnboardingStep]bool{
	StepPreferences: true,
}

// OnboardingFlow walks a user through the ordered setup steps and marks
// the profile complete at the end.
type OnboardingFlow struct {
	profiles ProfileStore
	state    *Aggregator
	logger   Logger
}

func NewOnboardingFlow(profiles ProfileStore, state *Aggregator) *OnboardingFlow {
	return &OnboardingFlow{
		profiles: profiles,
		state:    state,
		logger:   defLogger{},
	}
}

func (f *OnboardingFlow) WithLogger(l Logger) *OnboardingFlow {
	if l != nil {
		f.logger = l
	}
	return f
}

// Steps returns the ordered step list.
func (f *OnboardingFlow) Steps() []OnboardingStep {
	steps := make([]OnboardingStep, len(onboardingSteps))
	copy(steps, onboardingSteps)
	return steps
}

// Next returns the step after current, or current when already at the end.
func (f *OnboardingFlow) Next(current OnboardingStep) OnboardingStep {
	for i, step := range onboardingSteps {
		if step == current && i < len(onboardingSteps)-1 {
			return onboardingSteps[i+1]
		}
	}
	return current
}

// Previous returns the step before current, or current when at the start.
func (f *OnboardingFlow) Previous(current OnboardingStep) OnboardingStep {
	for i, step := range onboardingSteps {
		if step == current && i > 0 {
			return onboardingSteps[i-1]
		}
	}
	return current
}

// GoTo validates a requested step, falling back to the first step for
// unknown values.
func (f *OnboardingFlow) GoTo(step OnboardingStep) OnboardingStep {
	for _, s := range onboardingSteps {
		if s == step {
			return s
		}
	}
	return onboardingSteps[0]
}

// CanSkip reports whether the step may be skipped without input.
func (f *OnboardingFlow) CanSkip(step OnboardingStep) bool {
	return skippableSteps[step]
}

// ProfileEditor is implemented by profile stores that can update
// display fields during the profile step.
type ProfileEditor interface {
	UpdateDisplay(ctx context.Context, userID, displayName, avatarURL string) error
}

// SaveProfile persists the profile step's display fields.
func (f *OnboardingFlow) SaveProfile(ctx context.Context, userID, displayName, avatarURL string) error {
	if userID == "" {
		return errors.New("user id is required", errors.CategoryBadInput)
	}

	editor, ok := f.profiles.(ProfileEditor)
	if !ok {
		return errors.New("profile store does not support display updates", errors.CategoryOperation)
	}

	if err := editor.UpdateDisplay(ctx, userID, displayName, avatarURL); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update profile display")
	}

	return nil
}

// Complete marks the user's onboarding done and refreshes auth state so
// route gating sees the change immediately.
func (f *OnboardingFlow) Complete(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required", errors.CategoryBadInput)
	}

	if err := f.profiles.CompleteOnboarding(ctx, userID); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to complete onboarding")
	}

	if f.state != nil {
		f.state.Refresh(ctx)
	}

	return nil
}
