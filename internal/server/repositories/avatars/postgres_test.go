package avatars

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO avatars \(id, name, emoji, required_level, description\)`).
		WithArgs("seed", "Seed", "🌱", 1, "Every forest starts here").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Create(context.Background(), &models.Avatar{
		ID: "seed", Name: "Seed", Emoji: "🌱", RequiredLevel: 1, Description: "Every forest starts here",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO avatars`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "avatars_pkey"})

	_, err := repo.Create(context.Background(), &models.Avatar{ID: "seed"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM avatars WHERE id = \$1`).
		WithArgs("shrub").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "emoji", "required_level", "description"}).
			AddRow("shrub", "Shrub", "🌳", 3, ""))

	a, err := repo.Get(context.Background(), "shrub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.RequiredLevel != 3 || a.Name != "Shrub" {
		t.Fatalf("unexpected avatar: %+v", a)
	}

	mock.ExpectQuery(`SELECT .* FROM avatars WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestList_Ordered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM avatars ORDER BY required_level, id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "emoji", "required_level", "description"}).
			AddRow("seed", "Seed", "🌱", 1, "").
			AddRow("sprout", "Sprout", "🌿", 2, ""))

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "seed" || list[1].ID != "sprout" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM avatars`).WillReturnError(errors.New("db is down"))

	if _, err := repo.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
