package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/avatars"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/plantings"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/zones"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Profiles(db dbx.DBTX) profiles.Repository
	Avatars(db dbx.DBTX) avatars.Repository
	Plantings(db dbx.DBTX) plantings.Repository
	Verifications(db dbx.DBTX) verifications.Repository
	Zones(db dbx.DBTX) zones.Repository
}
