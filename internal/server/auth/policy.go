// Package auth holds the verifier eligibility predicate and the signed
// capability tokens that carry its inputs.
package auth

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

// Authorizer decides whether a profile may submit verifications.
type Authorizer interface {
	CanVerify(ctx context.Context, p *models.Profile) bool
}

// Policy grants verification to profiles at MinLevel or above, to verifier
// and admin roles, and to staff.
type Policy struct {
	MinLevel int
}

func DefaultPolicy() Policy {
	return Policy{MinLevel: 3}
}

func (p Policy) CanVerify(_ context.Context, prof *models.Profile) bool {
	if prof == nil {
		return false
	}
	if prof.Staff || prof.Role == models.RoleVerifier || prof.Role == models.RoleAdmin {
		return true
	}
	return prof.Level >= p.MinLevel
}

// AuthorizerFunc adapts a plain function to Authorizer.
type AuthorizerFunc func(ctx context.Context, p *models.Profile) bool

func (f AuthorizerFunc) CanVerify(ctx context.Context, p *models.Profile) bool {
	return f(ctx, p)
}
