// Package authgate provides the client-facing authentication and
// authorization layer for a web application: registration, sign-in,
// email verification, password policy enforcement, role gating, and
// onboarding-state gating over a pluggable identity backend.
//
// Access decisions:
//   - Evaluator is a pure function from an auth Snapshot and a route's
//     declared RouteRequirement to a Decision (allow, redirect, or wait).
//     Both the HTTP guard middleware and any navigation-effect caller go
//     through the same evaluator so redirect rules cannot drift between
//     call sites.
//
// Auth state:
//   - Aggregator owns the only shared mutable resource, the Snapshot. It
//     subscribes to the identity client's session-change stream, joins in
//     profile data (role, onboarding flag), and publishes immutable
//     snapshot replacements. Readers subscribe; stale profile responses
//     for superseded sessions are discarded.
//
// Boundaries:
//   - IdentityClient and ProfileStore describe the hosted backend. A
//     local implementation backed by Bun repositories and HS256 tokens is
//     included so the module is usable without an external provider.
package authgate
