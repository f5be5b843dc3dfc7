// Package services contains the review workflow for plantings and
// verifications plus the profile and impact operations built around it. All
// state changes run inside a dbx.Transactor unit of work and reload the rows
// they mutate with GetForUpdate.
package services

import (
	"context"

	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/auth"
	"github.com/dmitrijs2005/reforest/internal/server/clustering"
	"github.com/dmitrijs2005/reforest/internal/server/gamification"
	"github.com/dmitrijs2005/reforest/internal/server/impact"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/reforest/internal/timex"
	"github.com/google/uuid"
)

// Clusterer is notified after a planting validation has committed.
type Clusterer interface {
	OnPlantingValidated(ctx context.Context, p *models.Planting) (*clustering.Outcome, error)
}

// Deps are the collaborators shared by the services. DB is used for reads
// outside a transaction; Tx scopes every write.
type Deps struct {
	DB         dbx.DBTX
	Tx         dbx.Transactor
	Repos      repomanager.RepositoryManager
	Engine     *gamification.Engine
	Estimator  *impact.Estimator
	Clusterer  Clusterer
	Authorizer auth.Authorizer
	Clock      timex.Clock
	Logger     logging.Logger

	// DefaultPoints is awarded for a validated planting unless the
	// submission names its own value.
	DefaultPoints int
	// VerifierLevel is the level reported as unlocking verification.
	VerifierLevel int
}

// DefaultPlantingPoints is used when Deps.DefaultPoints is unset.
const DefaultPlantingPoints = 20

func (d *Deps) withDefaults() {
	if d.Engine == nil {
		d.Engine = gamification.MustEngine(gamification.DefaultLevels())
	}
	if d.Estimator == nil {
		d.Estimator = impact.NewEstimator(nil)
	}
	if d.Authorizer == nil {
		d.Authorizer = auth.DefaultPolicy()
	}
	if d.Clock == nil {
		d.Clock = timex.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.DefaultPoints == 0 {
		d.DefaultPoints = DefaultPlantingPoints
	}
	if d.VerifierLevel == 0 {
		d.VerifierLevel = auth.DefaultPolicy().MinLevel
	}
}

var newID = uuid.NewString
