package profiles

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	// Leaderboard lists non-staff profiles by points, highest first.
	Leaderboard(ctx context.Context, limit int) ([]*models.Profile, error)
	// CountAbove counts non-staff profiles with more than points.
	CountAbove(ctx context.Context, points int) (int, error)
}
