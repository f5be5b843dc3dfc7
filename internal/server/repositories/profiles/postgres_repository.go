package profiles

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

const profileColumns = `user_id, points, level, role, avatar_id, staff,
	verifications_performed, verifications_approved, verification_points,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(&p.UserID, &p.Points, &p.Level, &p.Role, &p.AvatarID, &p.Staff,
		&p.VerificationsPerformed, &p.VerificationsApproved, &p.VerificationPoints,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query :=
		`INSERT INTO profiles (` + profileColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Points, p.Level, p.Role, p.AvatarID, p.Staff,
		p.VerificationsPerformed, p.VerificationsApproved, p.VerificationPoints,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 FOR UPDATE`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Profile) error {
	query :=
		`UPDATE profiles
		 SET points = $2, level = $3, role = $4, avatar_id = $5, staff = $6,
		     verifications_performed = $7, verifications_approved = $8,
		     verification_points = $9, updated_at = $10
		 WHERE user_id = $1`

	res, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Points, p.Level, p.Role, p.AvatarID, p.Staff,
		p.VerificationsPerformed, p.VerificationsApproved, p.VerificationPoints,
		p.UpdatedAt)
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

func (r *PostgresRepository) Leaderboard(ctx context.Context, limit int) ([]*models.Profile, error) {
	query :=
		`SELECT ` + profileColumns + ` FROM profiles
		 WHERE NOT staff
		 ORDER BY points DESC, user_id
		 LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
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

func (r *PostgresRepository) CountAbove(ctx context.Context, points int) (int, error) {
	query := `SELECT COUNT(*) FROM profiles WHERE NOT staff AND points > $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, points).Scan(&n); err != nil {
		return 0, dbx.MapError(err)
	}
	return n, nil
}
