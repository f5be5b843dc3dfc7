// Package server wires configuration, storage and the services into an App
// used by the reforest command.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/auth"
	"github.com/dmitrijs2005/reforest/internal/server/clustering"
	"github.com/dmitrijs2005/reforest/internal/server/config"
	"github.com/dmitrijs2005/reforest/internal/server/gamification"
	"github.com/dmitrijs2005/reforest/internal/server/impact"
	"github.com/dmitrijs2005/reforest/internal/server/jobs"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/photos"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/reforest/internal/server/services"
	"github.com/dmitrijs2005/reforest/internal/timex"
	_ "github.com/jackc/pgx/v5/stdlib"
)

var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	Config *config.Config
	Logger logging.Logger
	Clock  timex.Clock

	DB    *sql.DB
	Repos repomanager.RepositoryManager

	Verification *services.VerificationService
	Profiles     *services.ProfileService
	Impact       *services.ImpactService
	Clusterer    *clustering.Clusterer
	Photos       *photos.S3Store
	Authorizer   auth.TokenAuthorizer
}

// NewApp connects to the database and builds the services. Log output goes
// to w.
func NewApp(ctx context.Context, cfg *config.Config, w io.Writer) (*App, error) {
	logger, err := logging.New(cfg.LogBackend, cfg.LogLevel, cfg.LogFormat, w)
	if err != nil {
		return nil, err
	}

	rates := impact.DefaultRates()
	if cfg.SpeciesRatesFile != "" {
		if rates, err = impact.LoadRateTable(cfg.SpeciesRatesFile); err != nil {
			return nil, err
		}
	}

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	clock := timex.SystemClock{}
	repos := repomanager.NewPostgresRepositoryManager()
	tx := dbx.NewSQLTransactor(db, nil)

	clusterer := clustering.NewClusterer(db, tx, repos, clustering.Config{
		SearchRadiusKm: cfg.ZoneSearchRadiusKm,
		MinMembers:     cfg.ZoneMinMembers,
		ToleranceKm:    cfg.ZoneToleranceKm,
	}, clock, logger)

	authorizer := auth.TokenAuthorizer{
		Policy: auth.Policy{MinLevel: cfg.VerifierMinLevel},
		Secret: []byte(cfg.SecretKey),
	}
	deps := services.Deps{
		DB:            db,
		Tx:            tx,
		Repos:         repos,
		Engine:        gamification.MustEngine(gamification.DefaultLevels()),
		Estimator:     impact.NewEstimator(rates),
		Clusterer:     clusterer,
		Authorizer:    authorizer,
		Clock:         clock,
		Logger:        logger,
		DefaultPoints: cfg.DefaultPlantingPoints,
		VerifierLevel: cfg.VerifierMinLevel,
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Clock:        clock,
		DB:           db,
		Repos:        repos,
		Verification: services.NewVerificationService(deps),
		Profiles:     services.NewProfileService(deps),
		Impact:       services.NewImpactService(deps),
		Clusterer:    clusterer,
		Photos:       photos.NewS3Store(cfg, clock),
		Authorizer:   authorizer,
	}, nil
}

func (app *App) Migrate(ctx context.Context) error {
	if err := app.Repos.RunMigrations(ctx, app.DB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	app.Logger.Info(ctx, "migrations applied")
	return nil
}

// Schedule runs the periodic jobs until ctx is cancelled or the process
// receives SIGINT, SIGTERM or SIGQUIT.
func (app *App) Schedule(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	runner, err := jobs.NewRunner(app.Logger)
	if err != nil {
		return err
	}
	if err := runner.Add(ctx, jobs.ImpactRefreshTask(app.Impact, app.Config.ImpactRefreshInterval), true); err != nil {
		return err
	}
	rebuild := jobs.ZoneRebuildTask(app.Clusterer, app.Config.ZoneRebuildInterval,
		app.Config.ZoneSearchRadiusKm, app.Config.ZoneMinMembers)
	if err := runner.Add(ctx, rebuild, false); err != nil {
		return err
	}
	if runner.Jobs() == 0 {
		return fmt.Errorf("no jobs enabled")
	}

	app.Logger.Info(ctx, "scheduler started", "jobs", runner.Jobs())
	return runner.Run(ctx)
}

// IssueToken signs a capability token carrying the profile's verifier
// eligibility inputs.
func (app *App) IssueToken(ctx context.Context, userID string) (string, error) {
	p, err := app.Repos.Profiles(app.DB).Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return auth.GenerateToken(p, []byte(app.Config.SecretKey), app.Config.TokenValidity, app.Clock.Now())
}

// CheckToken verifies a capability token and reports whether its claims
// grant verification.
func (app *App) CheckToken(ctx context.Context, token string) (*models.Profile, bool, error) {
	claims, err := auth.ParseToken(token, app.Authorizer.Secret)
	if err != nil {
		return nil, false, err
	}
	p := claims.Profile()
	return p, app.Authorizer.CanVerify(auth.WithToken(ctx, token), p), nil
}

func (app *App) Close() error {
	return app.DB.Close()
}
