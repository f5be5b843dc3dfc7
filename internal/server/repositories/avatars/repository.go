package avatars

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Avatar) (*models.Avatar, error)
	Get(ctx context.Context, id string) (*models.Avatar, error)
	// List returns all avatars ordered by required level, then id.
	List(ctx context.Context) ([]*models.Avatar, error)
}
