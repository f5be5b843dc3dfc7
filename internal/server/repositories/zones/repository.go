package zones

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, z *models.Zone) (*models.Zone, error)
	Get(ctx context.Context, id string) (*models.Zone, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Zone, error)
	Update(ctx context.Context, z *models.Zone) error
	ListActive(ctx context.Context) ([]*models.Zone, error)
}
