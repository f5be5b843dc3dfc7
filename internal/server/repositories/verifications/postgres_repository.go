package verifications

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

const verificationColumns = `id, planting_id, verifier_id, photo_key, location_photo_key,
	lat, lng, notes, state, submitted_at, reviewer_id, reviewed_at, admin_notes, points_awarded`

type scanner interface {
	Scan(dest ...any) error
}

func scanVerification(row scanner) (*models.Verification, error) {
	v := &models.Verification{}
	err := row.Scan(&v.ID, &v.PlantingID, &v.VerifierID, &v.PhotoKey, &v.LocationPhotoKey,
		&v.Lat, &v.Lng, &v.Notes, &v.State, &v.SubmittedAt, &v.ReviewerID, &v.ReviewedAt,
		&v.AdminNotes, &v.PointsAwarded)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Verification) (*models.Verification, error) {
	query :=
		`INSERT INTO verifications (` + verificationColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.PlantingID, v.VerifierID, v.PhotoKey, v.LocationPhotoKey,
		v.Lat, v.Lng, v.Notes, v.State, v.SubmittedAt, v.ReviewerID, v.ReviewedAt,
		v.AdminNotes, v.PointsAwarded)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return v, nil
}

func (r *PostgresRepository) get(ctx context.Context, query, id string) (*models.Verification, error) {
	v, err := scanVerification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return v, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Verification, error) {
	return r.get(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Verification, error) {
	return r.get(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) Update(ctx context.Context, v *models.Verification) error {
	query :=
		`UPDATE verifications
		 SET state = $2, reviewer_id = $3, reviewed_at = $4, admin_notes = $5, points_awarded = $6
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.State, v.ReviewerID, v.ReviewedAt, v.AdminNotes, v.PointsAwarded)
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

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Verification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var out []*models.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, dbx.MapError(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.MapError(err)
	}
	return out, nil
}

func (r *PostgresRepository) ListByVerifier(ctx context.Context, verifierID string) ([]*models.Verification, error) {
	query :=
		`SELECT ` + verificationColumns + ` FROM verifications
		 WHERE verifier_id = $1
		 ORDER BY submitted_at DESC, id`

	return r.list(ctx, query, verifierID)
}

func (r *PostgresRepository) ListByPlanting(ctx context.Context, plantingID string) ([]*models.Verification, error) {
	query :=
		`SELECT ` + verificationColumns + ` FROM verifications
		 WHERE planting_id = $1
		 ORDER BY submitted_at, id`

	return r.list(ctx, query, plantingID)
}

func (r *PostgresRepository) ListByState(ctx context.Context, state models.VerificationState) ([]*models.Verification, error) {
	if state == "" {
		query := `SELECT ` + verificationColumns + ` FROM verifications ORDER BY submitted_at DESC, id`
		return r.list(ctx, query)
	}

	query :=
		`SELECT ` + verificationColumns + ` FROM verifications
		 WHERE state = $1
		 ORDER BY submitted_at DESC, id`

	return r.list(ctx, query, string(state))
}
