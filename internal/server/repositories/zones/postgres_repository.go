package zones

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const zoneColumns = `id, name, description, terrain, lat, lng, radius_km, member_count,
	dominant_species, auto_generated, active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanZone(row scanner) (*models.Zone, error) {
	z := &models.Zone{}
	err := row.Scan(&z.ID, &z.Name, &z.Description, &z.Terrain, &z.Lat, &z.Lng, &z.RadiusKm,
		&z.MemberCount, &z.DominantSpecies, &z.AutoGenerated, &z.Active, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return z, nil
}

func (r *PostgresRepository) Create(ctx context.Context, z *models.Zone) (*models.Zone, error) {
	query :=
		`INSERT INTO zones (` + zoneColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		z.ID, z.Name, z.Description, z.Terrain, z.Lat, z.Lng, z.RadiusKm,
		z.MemberCount, z.DominantSpecies, z.AutoGenerated, z.Active, z.CreatedAt, z.UpdatedAt)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return z, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Zone, error) {
	z, err := scanZone(r.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return z, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Zone, error) {
	z, err := scanZone(r.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return z, nil
}

// Update writes the mutable fields. The centroid and radius are fixed at
// creation.
func (r *PostgresRepository) Update(ctx context.Context, z *models.Zone) error {
	query :=
		`UPDATE zones
		 SET name = $2, description = $3, terrain = $4, member_count = $5,
		     dominant_species = $6, active = $7, updated_at = $8
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		z.ID, z.Name, z.Description, z.Terrain, z.MemberCount, z.DominantSpecies, z.Active, z.UpdatedAt)
	if err != nil {
		return dbx.MapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.Zone, error) {
	query := `SELECT ` + zoneColumns + ` FROM zones WHERE active ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var out []*models.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, dbx.MapError(err)
		}
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.MapError(err)
	}
	return out, nil
}
