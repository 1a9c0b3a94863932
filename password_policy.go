package authgate

import "regexp"

// StrengthTier is the coarse strength bucket shown next to the meter
type StrengthTier string

const (
	StrengthWeak   StrengthTier = "weak"
	StrengthFair   StrengthTier = "fair"
	StrengthGood   StrengthTier = "good"
	StrengthStrong StrengthTier = "strong"
)

// PasswordRequirement is a single policy predicate and its outcome
type PasswordRequirement struct {
	ID        string
	Label     string
	Satisfied bool
}

// PasswordAssessment is the stateless evaluation of a candidate password.
// Acceptable and Strength use different thresholds on purpose: a password
// meeting length plus three other categories is acceptable even when the
// tier still reads fair or good.
type PasswordAssessment struct {
	Requirements   []PasswordRequirement
	SatisfiedCount int
	Score          int
	Strength       StrengthTier
	Acceptable     bool
}

var (
	hasUppercase = regexp.MustCompile(`[A-Z]`)
	hasLowercase = regexp.MustCompile(`[a-z]`)
	hasDigit     = regexp.MustCompile(`[0-9]`)
	hasSymbol    = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// passwordChecks run in a fixed, documented order
var passwordChecks = []struct {
	id    string
	label string
	test  func(string) bool
}{
	{"length", "At least 8 characters", func(p string) bool { return len(p) >= 8 }},
	{"uppercase", "One uppercase letter", hasUppercase.MatchString},
	{"lowercase", "One lowercase letter", hasLowercase.MatchString},
	{"number", "One number", hasDigit.MatchString},
	{"special", "One special character (!@#$%^&*)", hasSymbol.MatchString},
}

// AssessPassword evaluates password against the policy. Pure and cheap;
// safe to call on every keystroke.
func AssessPassword(password string) PasswordAssessment {
	requirements := make([]PasswordRequirement, 0, len(passwordChecks))
	satisfied := 0

	for _, check := range passwordChecks {
		met := check.test(password)
		if met {
			satisfied++
		}
		requirements = append(requirements, PasswordRequirement{
			ID:        check.id,
			Label:     check.label,
			Satisfied: met,
		})
	}

	score := satisfied * 100 / len(passwordChecks)

	var strength StrengthTier
	switch {
	case score < 40:
		strength = StrengthWeak
	case score < 60:
		strength = StrengthFair
	case score < 80:
		strength = StrengthGood
	default:
		strength = StrengthStrong
	}

	return PasswordAssessment{
		Requirements:   requirements,
		SatisfiedCount: satisfied,
		Score:          score,
		Strength:       strength,
		Acceptable:     satisfied >= 4 && len(password) >= 8,
	}
}

// StrengthLabel returns the display text for a tier
func StrengthLabel(tier StrengthTier) string {
	switch tier {
	case StrengthWeak:
		return "Weak"
	case StrengthFair:
		return "Fair"
	case StrengthGood:
		return "Good"
	case StrengthStrong:
		return "Strong"
	default:
		return "Enter password"
	}
}
