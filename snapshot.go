package authgate

// Snapshot is the immutable auth state published by the Aggregator. It is
// replaced wholesale, never mutated in place, so readers always observe a
// consistent view.
//
// Invariant: when IsAuthenticated is false every dependent field holds its
// unauthenticated default. Use Unauthenticated or Normalize to enforce it.
type Snapshot struct {
	IsLoading             bool
	IsAuthenticated       bool
	IsEmailConfirmed      bool
	IsOnboardingCompleted bool
	Role                  Role
	UserID                string
}

// LoadingSnapshot is published while the initial session resolution is in
// flight; the evaluator suspends decisions against it.
func LoadingSnapshot() Snapshot {
	return Snapshot{IsLoading: true}
}

// Unauthenticated returns the zero-session snapshot. Dependent fields are
// reset so no stale values from a prior session can leak through.
func Unauthenticated() Snapshot {
	return Snapshot{}
}

// Normalize clears profile-derived fields when there is no session,
// returning a copy that honors the snapshot invariant.
func (s Snapshot) Normalize() Snapshot {
	if s.IsAuthenticated {
		return s
	}
	return Snapshot{IsLoading: s.IsLoading}
}

// HasRole reports whether the snapshot carries the given role
func (s Snapshot) HasRole(role Role) bool {
	return s.IsAuthenticated && s.Role != RoleNone && s.Role == role
}
