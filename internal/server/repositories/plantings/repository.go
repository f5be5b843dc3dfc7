package plantings

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Planting) (*models.Planting, error)
	Get(ctx context.Context, id string) (*models.Planting, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Planting, error)
	Update(ctx context.Context, p *models.Planting) error
	// ListByState returns plantings in submission order (submitted_at, id).
	ListByState(ctx context.Context, state models.PlantingState) ([]*models.Planting, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Planting, error)
	// AssignZone links the given plantings to zoneID.
	AssignZone(ctx context.Context, zoneID string, ids []string) error
}
