package authgate

import (
	"net/url"
	"strings"
)

// ReturnToParam is the query parameter carrying the preserved destination
// across the sign-in detour. It is the only persisted navigation state.
const ReturnToParam = "returnTo"

// RouteRequirement declares what a navigation target demands. Immutable,
// attached at route registration time.
type RouteRequirement struct {
	RequireAuth           bool
	RequireEmailConfirmed bool
	RequireOnboarding     bool
	// AllowedRoles restricts access to the listed roles; nil means any
	AllowedRoles []Role
}

// DecisionAction is the evaluator verdict kind
type DecisionAction int

const (
	// ActionWait means the snapshot is still loading; callers render an
	// indeterminate state instead of deciding
	ActionWait DecisionAction = iota
	// ActionAllow permits the navigation
	ActionAllow
	// ActionRedirect denies the navigation and names the detour target
	ActionRedirect
)

// Decision is the evaluator output
type Decision struct {
	Action DecisionAction
	Target string
}

// Wait suspends evaluation until a settled snapshot is available
func Wait() Decision { return Decision{Action: ActionWait} }

// Allow permits the navigation
func Allow() Decision { return Decision{Action: ActionAllow} }

// RedirectTo denies the navigation, redirecting to target
func RedirectTo(target string) Decision {
	return Decision{Action: ActionRedirect, Target: target}
}

// RoutePaths names the well-known detour destinations
type RoutePaths struct {
	SignIn       string
	SignUp       string
	VerifyEmail  string
	Onboarding   string
	Unauthorized string
	Dashboard    string
}

// DefaultRoutePaths returns the standard route surface
func DefaultRoutePaths() RoutePaths {
	return RoutePaths{
		SignIn:       "/auth/login",
		SignUp:       "/auth/register",
		VerifyEmail:  "/auth/verify-email",
		Onboarding:   "/onboarding",
		Unauthorized: "/unauthorized",
		Dashboard:    "/dashboard",
	}
}

func (p RoutePaths) withDefaults() RoutePaths {
	def := DefaultRoutePaths()
	if p.SignIn == "" {
		p.SignIn = def.SignIn
	}
	if p.SignUp == "" {
		p.SignUp = def.SignUp
	}
	if p.VerifyEmail == "" {
		p.VerifyEmail = def.VerifyEmail
	}
	if p.Onboarding == "" {
		p.Onboarding = def.Onboarding
	}
	if p.Unauthorized == "" {
		p.Unauthorized = def.Unauthorized
	}
	if p.Dashboard == "" {
		p.Dashboard = def.Dashboard
	}
	return p
}

// Evaluator is the single access-decision function shared by the route
// guard and any navigation-effect caller. It is pure: no side effects, no
// hidden state, safe to call repeatedly with identical inputs.
type Evaluator struct {
	paths RoutePaths
}

// NewEvaluator builds an evaluator; zero-value path fields fall back to
// DefaultRoutePaths.
func NewEvaluator(paths RoutePaths) *Evaluator {
	return &Evaluator{paths: paths.withDefaults()}
}

// Paths exposes the resolved route paths
func (e *Evaluator) Paths() RoutePaths {
	return e.paths
}

// Evaluate decides whether currentPath is permitted for the snapshot.
// Checks short circuit in a fixed priority: session presence gates every
// profile-derived check, email confirmation gates onboarding, role gating
// is the narrowest restriction and runs last. The auth-page bounce runs
// after the primary gates so a partially onboarded user landing on the
// sign-in page is routed forward, not allowed to linger.
func (e *Evaluator) Evaluate(snap Snapshot, req RouteRequirement, currentPath string) Decision {
	if snap.IsLoading {
		return Wait()
	}

	if req.RequireAuth && !snap.IsAuthenticated {
		return RedirectTo(e.SignInRedirect(currentPath))
	}

	if req.RequireEmailConfirmed && snap.IsAuthenticated && !snap.IsEmailConfirmed {
		return RedirectTo(e.paths.VerifyEmail)
	}

	if req.RequireOnboarding && snap.IsAuthenticated && snap.IsEmailConfirmed && !snap.IsOnboardingCompleted {
		return RedirectTo(e.paths.Onboarding)
	}

	if len(req.AllowedRoles) > 0 && snap.IsAuthenticated && snap.Role != RoleNone && !roleAllowed(snap.Role, req.AllowedRoles) {
		return RedirectTo(e.paths.Unauthorized)
	}

	if snap.IsAuthenticated && e.isAuthPage(currentPath) {
		return RedirectTo(e.ResumeTarget(currentPath))
	}

	return Allow()
}

// SignInRedirect builds the sign-in detour URL, embedding the encoded
// current path (including query) for post-login resumption.
func (e *Evaluator) SignInRedirect(currentPath string) string {
	params := url.Values{}
	params.Set(ReturnToParam, currentPath)
	return e.paths.SignIn + "?" + params.Encode()
}

// ResumeTarget consumes the returnTo parameter from currentPath. Missing,
// undecodable, or unsafe values fall back to the dashboard.
func (e *Evaluator) ResumeTarget(currentPath string) string {
	if target, ok := ReturnToFromPath(currentPath); ok {
		return target
	}
	return e.paths.Dashboard
}

func (e *Evaluator) isAuthPage(currentPath string) bool {
	path := currentPath
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path == e.paths.SignIn || path == e.paths.SignUp
}

func roleAllowed(role Role, allowed []Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// EncodeReturnTo encodes a destination for the returnTo parameter
func EncodeReturnTo(path string) string {
	return url.QueryEscape(path)
}

// DecodeReturnTo decodes a captured destination and validates it. The
// value arrives via URL and is attacker influenceable; only relative
// same-origin paths survive.
func DecodeReturnTo(encoded string) (string, bool) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", false
	}
	return SanitizeReturnPath(decoded)
}

// ReturnToFromPath extracts and validates the returnTo parameter carried
// by a full path-plus-query string.
func ReturnToFromPath(currentPath string) (string, bool) {
	u, err := url.Parse(currentPath)
	if err != nil {
		return "", false
	}

	raw := u.Query().Get(ReturnToParam)
	if raw == "" {
		return "", false
	}

	return SanitizeReturnPath(raw)
}

// SanitizeReturnPath rejects anything that is not a relative same-origin
// path: absolute URLs, scheme-relative //host forms, and backslash
// variants would otherwise enable an open redirect.
func SanitizeReturnPath(path string) (string, bool) {
	if path == "" || path[0] != '/' {
		return "", false
	}

	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return "", false
	}

	u, err := url.Parse(path)
	if err != nil {
		return "", false
	}

	if u.IsAbs() || u.Host != "" {
		return "", false
	}

	return path, true
}
