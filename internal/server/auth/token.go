package auth

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type tokenKey struct{}

// WithToken attaches a capability token to ctx for TokenAuthorizer.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey{}).(string)
	return tok, ok && tok != ""
}

// TokenAuthorizer applies Policy to the claims of the token carried by ctx
// instead of the stored profile. The token must belong to the profile being
// checked. Without a token the stored profile is checked as is.
type TokenAuthorizer struct {
	Policy Authorizer
	Secret []byte
}

func (a TokenAuthorizer) CanVerify(ctx context.Context, p *models.Profile) bool {
	tok, ok := tokenFrom(ctx)
	if !ok {
		return a.Policy.CanVerify(ctx, p)
	}
	if p == nil {
		return false
	}
	claims, err := ParseToken(tok, a.Secret)
	if err != nil || claims.UserID != p.UserID {
		return false
	}
	return a.Policy.CanVerify(ctx, claims.Profile())
}
