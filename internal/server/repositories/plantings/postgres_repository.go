package plantings

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

const plantingColumns = `id, submitter_id, photo_key, lat, lng, species, description,
	points, state, submitted_at, validated_at, reviewer_id, admin_notes,
	oxygen_kg_year, co2_kg_year, impact_updated_at, zone_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlanting(row scanner) (*models.Planting, error) {
	p := &models.Planting{}
	err := row.Scan(&p.ID, &p.SubmitterID, &p.PhotoKey, &p.Lat, &p.Lng, &p.Species, &p.Description,
		&p.Points, &p.State, &p.SubmittedAt, &p.ValidatedAt, &p.ReviewerID, &p.AdminNotes,
		&p.OxygenKgYear, &p.CO2KgYear, &p.ImpactUpdatedAt, &p.ZoneID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Planting, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var out []*models.Planting
	for rows.Next() {
		p, err := scanPlanting(rows)
		if err != nil {
			return nil, dbx.MapError(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.MapError(err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Planting) (*models.Planting, error) {
	query :=
		`INSERT INTO plantings (` + plantingColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.SubmitterID, p.PhotoKey, p.Lat, p.Lng, p.Species, p.Description,
		p.Points, p.State, p.SubmittedAt, p.ValidatedAt, p.ReviewerID, p.AdminNotes,
		p.OxygenKgYear, p.CO2KgYear, p.ImpactUpdatedAt, p.ZoneID)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Planting, error) {
	query := `SELECT ` + plantingColumns + ` FROM plantings WHERE id = $1`

	p, err := scanPlanting(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Planting, error) {
	query := `SELECT ` + plantingColumns + ` FROM plantings WHERE id = $1 FOR UPDATE`

	p, err := scanPlanting(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Planting) error {
	query :=
		`UPDATE plantings
		 SET species = $2, description = $3, points = $4, state = $5,
		     validated_at = $6, reviewer_id = $7, admin_notes = $8,
		     oxygen_kg_year = $9, co2_kg_year = $10, impact_updated_at = $11, zone_id = $12
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Species, p.Description, p.Points, p.State,
		p.ValidatedAt, p.ReviewerID, p.AdminNotes,
		p.OxygenKgYear, p.CO2KgYear, p.ImpactUpdatedAt, p.ZoneID)
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

func (r *PostgresRepository) ListByState(ctx context.Context, state models.PlantingState) ([]*models.Planting, error) {
	query :=
		`SELECT ` + plantingColumns + ` FROM plantings
		 WHERE state = $1
		 ORDER BY submitted_at, id`

	return r.list(ctx, query, state)
}

func (r *PostgresRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Planting, error) {
	query :=
		`SELECT ` + plantingColumns + ` FROM plantings
		 WHERE submitter_id = $1
		 ORDER BY submitted_at DESC, id`

	return r.list(ctx, query, submitterID)
}

func (r *PostgresRepository) AssignZone(ctx context.Context, zoneID string, ids []string) error {
	query := `UPDATE plantings SET zone_id = $1 WHERE id = $2`

	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, query, zoneID, id); err != nil {
			return dbx.MapError(err)
		}
	}
	return nil
}
