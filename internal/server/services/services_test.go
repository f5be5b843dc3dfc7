package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/clustering"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/memory"
	"github.com/dmitrijs2005/reforest/internal/timex"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	repos *memory.Manager
	deps  Deps
	svc   *VerificationService
	prof  *ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	n := 0
	orig := newID
	newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { newID = orig })

	store := memory.NewStore()
	repos := memory.NewManager(store)
	clock := timex.FixedClock{T: now}
	deps := Deps{
		Tx:            store,
		Repos:         repos,
		Clusterer:     clustering.NewClusterer(nil, store, repos, clustering.DefaultConfig(), clock, logging.Nop()),
		Clock:         clock,
		DefaultPoints: 20,
	}

	f := &fixture{
		store: store,
		repos: repos,
		deps:  deps,
		svc:   NewVerificationService(deps),
		prof:  NewProfileService(deps),
	}
	_, err := f.prof.SeedAvatars(context.Background())
	require.NoError(t, err)
	return f
}

func (f *fixture) addProfile(t *testing.T, p models.Profile) *models.Profile {
	t.Helper()
	if p.Level == 0 {
		p.Level = f.svc.Engine.LevelFor(p.Points)
	}
	if p.Role == "" {
		p.Role = models.RoleUser
	}
	out, err := f.repos.Profiles(nil).Create(context.Background(), &p)
	require.NoError(t, err)
	return out
}

func (f *fixture) addPlanting(t *testing.T, p models.Planting) *models.Planting {
	t.Helper()
	if p.State == "" {
		p.State = models.PlantingPending
	}
	if p.Points == 0 {
		p.Points = 20
	}
	if p.SubmittedAt.IsZero() {
		p.SubmittedAt = now
	}
	out, err := f.repos.Plantings(nil).Create(context.Background(), &p)
	require.NoError(t, err)
	return out
}

func (f *fixture) addVerification(t *testing.T, v models.Verification) *models.Verification {
	t.Helper()
	if v.State == "" {
		v.State = models.VerificationPending
	}
	v.SubmittedAt = now
	out, err := f.repos.Verifications(nil).Create(context.Background(), &v)
	require.NoError(t, err)
	return out
}

func (f *fixture) profile(t *testing.T, id string) *models.Profile {
	t.Helper()
	p, err := f.repos.Profiles(nil).Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) planting(t *testing.T, id string) *models.Planting {
	t.Helper()
	p, err := f.repos.Plantings(nil).Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) verification(t *testing.T, id string) *models.Verification {
	t.Helper()
	v, err := f.repos.Verifications(nil).Get(context.Background(), id)
	require.NoError(t, err)
	return v
}
