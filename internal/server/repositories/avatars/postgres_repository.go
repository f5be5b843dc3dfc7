package avatars

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
	query :=
		`INSERT INTO avatars (id, name, emoji, required_level, description)
		 VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Name, a.Emoji, a.RequiredLevel, a.Description); err != nil {
		return nil, dbx.MapError(err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Avatar, error) {
	query := `SELECT id, name, emoji, required_level, description FROM avatars WHERE id = $1`

	a := &models.Avatar{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.Emoji, &a.RequiredLevel, &a.Description)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	return a, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Avatar, error) {
	query :=
		`SELECT id, name, emoji, required_level, description FROM avatars
		 ORDER BY required_level, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbx.MapError(err)
	}
	defer rows.Close()

	var out []*models.Avatar
	for rows.Next() {
		a := &models.Avatar{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Emoji, &a.RequiredLevel, &a.Description); err != nil {
			return nil, dbx.MapError(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.MapError(err)
	}
	return out, nil
}
