package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openZonesDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_zones?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS zones (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM zones`)
	require.NoError(t, err)
	return db
}

func zoneCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM zones`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := openZonesDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO zones(name) VALUES ('riverside')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, zoneCount(t, db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := openZonesDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO zones(name) VALUES ('park')`)
		require.NoError(t, e)
		return errors.New("member count mismatch")
	})
	require.Error(t, err)
	require.Equal(t, 0, zoneCount(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := openZonesDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, zoneCount(t, db))
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO zones(name) VALUES ('hill')`)
		require.NoError(t, e)
		panic("clustering blew up")
	})
}

func TestWithTx_ClosedDB(t *testing.T) {
	db := openZonesDB(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err)
}
