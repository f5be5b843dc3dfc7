// Package memory is an in-process RepositoryManager used by the service and
// clustering tests. Transactions are serialised and rolled back by restoring
// a snapshot.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/avatars"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/plantings"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/verifications"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/zones"
)

type data struct {
	profiles      map[string]models.Profile
	avatars       map[string]models.Avatar
	plantings     map[string]models.Planting
	verifications map[string]models.Verification
	zones         map[string]models.Zone
}

func newData() data {
	return data{
		profiles:      map[string]models.Profile{},
		avatars:       map[string]models.Avatar{},
		plantings:     map[string]models.Planting{},
		verifications: map[string]models.Verification{},
		zones:         map[string]models.Zone{},
	}
}

func (d data) clone() data {
	c := newData()
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.avatars {
		c.avatars[k] = v
	}
	for k, v := range d.plantings {
		c.plantings[k] = v
	}
	for k, v := range d.verifications {
		c.verifications[k] = v
	}
	for k, v := range d.zones {
		c.zones[k] = v
	}
	return c
}

// Store holds every record. Records are copied in and out, so callers only
// change stored state through Create/Update.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    data

	failures map[string]error
}

func NewStore() *Store {
	return &Store{d: newData(), failures: map[string]error{}}
}

// FailOn makes the named operation (e.g. "zones.ListActive") return err until
// cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

// WithinTx runs fn with exclusive access. A returned error or panic restores
// the state seen when the transaction began.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.d.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(ctx, nil)
}

func (s *Store) restore(d data) {
	s.mu.Lock()
	s.d = d
	s.mu.Unlock()
}

// Manager vends repositories over one Store. The DBTX handed to the
// factories is ignored.
type Manager struct {
	store *Store
}

func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *Manager) Profiles(dbx.DBTX) profiles.Repository { return &profileRepo{s: m.store} }

func (m *Manager) Avatars(dbx.DBTX) avatars.Repository { return &avatarRepo{s: m.store} }

func (m *Manager) Plantings(dbx.DBTX) plantings.Repository { return &plantingRepo{s: m.store} }

func (m *Manager) Verifications(dbx.DBTX) verifications.Repository {
	return &verificationRepo{s: m.store}
}

func (m *Manager) Zones(dbx.DBTX) zones.Repository { return &zoneRepo{s: m.store} }

func sortedPlantings(in []*models.Planting, desc bool) {
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i], in[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			if desc {
				return a.SubmittedAt.After(b.SubmittedAt)
			}
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.ID < b.ID
	})
}
