package server

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/auth"
	"github.com/dmitrijs2005/reforest/internal/server/config"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	return c
}

func withMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	orig := openDB
	openDB = func(string) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { openDB = orig })
	return mock
}

func TestNewApp_WiresServices(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectPing()
	mock.ExpectClose()

	var logs bytes.Buffer
	app, err := NewApp(context.Background(), testConfig(), &logs)
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	if app.Verification == nil || app.Profiles == nil || app.Impact == nil || app.Clusterer == nil || app.Photos == nil {
		t.Fatalf("services not wired: %+v", app)
	}
	if c := app.Clusterer.Config(); c.SearchRadiusKm != 1.0 || c.MinMembers != 10 || c.ToleranceKm != 1.5 {
		t.Fatalf("clusterer config not applied: %+v", c)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewApp_PingError(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	_, err := NewApp(context.Background(), testConfig(), &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected ping error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("db not closed after failed ping: %v", err)
	}
}

func TestNewApp_ConfigErrors(t *testing.T) {
	withMockDB(t)

	cfg := testConfig()
	cfg.LogLevel = "loud"
	if _, err := NewApp(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected log level error")
	}

	cfg = testConfig()
	bad := filepath.Join(t.TempDir(), "rates.yaml")
	if err := os.WriteFile(bad, []byte("roble: {young: 1}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.SpeciesRatesFile = bad
	if _, err := NewApp(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected rate table error for a table without a default row")
	}
}

func TestIssueToken(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectPing()

	app, err := NewApp(context.Background(), testConfig(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"user_id", "points", "level", "role", "avatar_id", "staff",
		"verifications_performed", "verifications_approved", "verification_points",
		"created_at", "updated_at"}).
		AddRow("vera", 300, 3, "verifier", nil, false, 4, 3, 240, ts, ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = $1")).WithArgs("vera").WillReturnRows(rows)

	tok, err := app.IssueToken(context.Background(), "vera")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	claims, err := auth.ParseToken(tok, []byte(app.Config.SecretKey))
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.UserID != "vera" || claims.Level != 3 || claims.Role != models.RoleVerifier {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestCheckToken(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectPing()

	app, err := NewApp(context.Background(), testConfig(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewApp error: %v", err)
	}
	secret := []byte(app.Config.SecretKey)
	now := time.Now()

	tok, err := auth.GenerateToken(&models.Profile{UserID: "vera", Role: models.RoleVerifier, Level: 1}, secret, time.Hour, now)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	p, ok, err := app.CheckToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("CheckToken error: %v", err)
	}
	if !ok || p.UserID != "vera" || p.Role != models.RoleVerifier {
		t.Fatalf("verifier token: ok=%v profile=%+v", ok, p)
	}

	tok, err = auth.GenerateToken(&models.Profile{UserID: "ana", Role: models.RoleUser, Level: 1}, secret, time.Hour, now)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	if _, ok, err := app.CheckToken(context.Background(), tok); err != nil || ok {
		t.Fatalf("level 1 user token: ok=%v err=%v", ok, err)
	}

	if _, _, err := app.CheckToken(context.Background(), "garbage"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}
