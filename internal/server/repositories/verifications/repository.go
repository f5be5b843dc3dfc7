package verifications

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, v *models.Verification) (*models.Verification, error)
	Get(ctx context.Context, id string) (*models.Verification, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Verification, error)
	Update(ctx context.Context, v *models.Verification) error
	// ListByVerifier returns the verifier's history, newest first.
	ListByVerifier(ctx context.Context, verifierID string) ([]*models.Verification, error)
	ListByPlanting(ctx context.Context, plantingID string) ([]*models.Verification, error)
	// ListByState returns verifications in state, newest first. An empty
	// state lists all of them.
	ListByState(ctx context.Context, state models.VerificationState) ([]*models.Verification, error)
}
