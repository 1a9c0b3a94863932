package authgate

import (
	"context"

	"github.com/goliatone/go-featuregate/gate"
)

const featureGateActorType = "user"

// SessionClaimsProvider derives feature gate actor claims from the
// session claims stored in the request context.
type SessionClaimsProvider struct {
	extractor func(context.Context) (AuthClaims, bool)
}

// NewSessionClaimsProvider builds a claims provider backed by GetClaims.
func NewSessionClaimsProvider() *SessionClaimsProvider {
	return &SessionClaimsProvider{extractor: GetClaims}
}

// WithClaimsExtractor overrides how session claims are pulled from context.
func (p *SessionClaimsProvider) WithClaimsExtractor(extractor func(context.Context) (AuthClaims, bool)) *SessionClaimsProvider {
	if extractor != nil {
		p.extractor = extractor
	}
	return p
}

// ClaimsFromContext implements gate.ClaimsProvider.
func (p *SessionClaimsProvider) ClaimsFromContext(ctx context.Context) (gate.ActorClaims, error) {
	if p == nil || p.extractor == nil {
		return gate.ActorClaims{}, nil
	}
	claims, ok := p.extractor(ctx)
	if !ok || claims == nil {
		return gate.ActorClaims{}, nil
	}
	actor := gate.ActorClaims{SubjectID: claims.UserID()}
	if role := claims.Role(); role != "" {
		actor.Roles = []string{role}
	}
	return actor, nil
}

// ActorRefFromSession builds an ActorRef for feature resolution audit trails.
func ActorRefFromSession(session Session) gate.ActorRef {
	if session == nil {
		return gate.ActorRef{}
	}
	ref := gate.ActorRef{ID: session.GetUserID(), Type: featureGateActorType}
	if role, ok := session.GetData()["role"].(string); ok {
		ref.Name = role
	}
	return ref
}

var _ gate.ClaimsProvider = (*SessionClaimsProvider)(nil)
