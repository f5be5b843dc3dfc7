package zones

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var (
	ts      = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	columns = []string{"id", "name", "description", "terrain", "lat", "lng", "radius_km", "member_count",
		"dominant_species", "auto_generated", "active", "created_at", "updated_at"}
)

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	z := &models.Zone{ID: "z1", Name: "Reforestation zone - 10 trees", Terrain: "urban", Lat: 7.065, Lng: -73.852,
		RadiusKm: 1, MemberCount: 10, DominantSpecies: "roble", AutoGenerated: true, Active: true,
		CreatedAt: ts, UpdatedAt: ts}

	mock.ExpectExec(`INSERT INTO zones \(id, .*updated_at\) VALUES \(\$1, .*\$13\)`).
		WithArgs("z1", "Reforestation zone - 10 trees", "", "urban", 7.065, -73.852, 1.0, 10,
			"roble", true, true, ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Create(context.Background(), z)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM zones WHERE id = \$1$`).
		WithArgs("z1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("z1", "Z", "", "urban", "7.065000", "-73.852000", 1.0, 10, "roble", true, true, ts, ts))

	z, err := repo.Get(context.Background(), "z1")
	require.NoError(t, err)
	assert.Equal(t, 7.065, z.Lat)
	assert.Equal(t, 10, z.MemberCount)
	assert.True(t, z.AutoGenerated)

	mock.ExpectQuery(`SELECT .* FROM zones WHERE id = \$1 FOR UPDATE`).
		WithArgs("z2").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetForUpdate(context.Background(), "z2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	z := &models.Zone{ID: "z1", Name: "Z", Terrain: "urban", MemberCount: 12, DominantSpecies: "roble", UpdatedAt: ts}

	mock.ExpectExec(`UPDATE zones SET name = \$2, .* WHERE id = \$1`).
		WithArgs("z1", "Z", "", "urban", 12, "roble", false, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), z))

	mock.ExpectExec(`UPDATE zones`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), z), common.ErrorNotFound)
}

func TestListActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM zones WHERE active ORDER BY created_at, id`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("z1", "A", "", "urban", "1", "1", 1.0, 10, "roble", true, true, ts, ts).
			AddRow("z2", "B", "", "rural", "2", "2", 1.0, 11, "pino", false, true, ts, ts))

	list, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "z2", list[1].ID)

	mock.ExpectQuery(`SELECT .* FROM zones`).WillReturnError(errors.New("db is down"))
	_, err = repo.ListActive(context.Background())
	assert.EqualError(t, err, "db error: db is down")
}
