package auth

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_CanVerify(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		name string
		p    *models.Profile
		want bool
	}{
		{"nil", nil, false},
		{"new user", &models.Profile{Level: 1, Role: models.RoleUser}, false},
		{"level two", &models.Profile{Level: 2, Role: models.RoleUser}, false},
		{"level three", &models.Profile{Level: 3, Role: models.RoleUser}, true},
		{"level five", &models.Profile{Level: 5, Role: models.RoleUser}, true},
		{"verifier role", &models.Profile{Level: 1, Role: models.RoleVerifier}, true},
		{"admin role", &models.Profile{Level: 1, Role: models.RoleAdmin}, true},
		{"staff override", &models.Profile{Level: 1, Role: models.RoleUser, Staff: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanVerify(context.Background(), tt.p))
		})
	}
}

func TestPolicy_CustomLevel(t *testing.T) {
	p := Policy{MinLevel: 5}
	assert.False(t, p.CanVerify(context.Background(), &models.Profile{Level: 4}))
	assert.True(t, p.CanVerify(context.Background(), &models.Profile{Level: 5}))
}

func TestAuthorizerFunc(t *testing.T) {
	var a Authorizer = AuthorizerFunc(func(context.Context, *models.Profile) bool { return true })
	assert.True(t, a.CanVerify(context.Background(), nil))
}
