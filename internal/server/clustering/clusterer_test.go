package clustering

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/memory"
	"github.com/dmitrijs2005/reforest/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	repos *memory.Manager
	c     *Clusterer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := memory.NewManager(store)
	c := NewClusterer(nil, store, repos, DefaultConfig(), timex.FixedClock{T: now}, logging.Nop())
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("zone-%d", n)
	}
	return &fixture{store: store, repos: repos, c: c}
}

// seed stores validated plantings spaced 0.0004° (~45 m) apart in latitude,
// all within 500 m of each other.
func (f *fixture) seed(t *testing.T, prefix string, n int, lat, lng float64) []*models.Planting {
	t.Helper()
	var out []*models.Planting
	for i := 0; i < n; i++ {
		p := &models.Planting{
			ID:          fmt.Sprintf("%s-%02d", prefix, i),
			SubmitterID: "u1",
			Lat:         lat + float64(i)*0.0004,
			Lng:         lng,
			Species:     "roble",
			State:       models.PlantingValidated,
			SubmittedAt: now.Add(time.Duration(i) * time.Minute),
		}
		_, err := f.repos.Plantings(nil).Create(context.Background(), p)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func (f *fixture) activeZones(t *testing.T) []*models.Zone {
	t.Helper()
	zs, err := f.repos.Zones(nil).ListActive(context.Background())
	require.NoError(t, err)
	return zs
}

func TestOnPlantingValidated_TenPlantingsCreateZone(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)

	out, err := f.c.OnPlantingValidated(context.Background(), ps[9])
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, out.Action)
	assert.Equal(t, 10, out.Candidates)

	zones := f.activeZones(t)
	require.Len(t, zones, 1)
	z := zones[0]
	assert.Equal(t, 10, z.MemberCount)
	assert.InDelta(t, 7.0668, z.Lat, 1e-6)
	assert.InDelta(t, -73.8520, z.Lng, 1e-6)
	assert.Equal(t, 1.0, z.RadiusKm)
	assert.Equal(t, "roble", z.DominantSpecies)
	assert.Equal(t, "Reforestation zone - 10 trees", z.Name)
	assert.True(t, z.AutoGenerated)
	assert.Equal(t, "urban", z.Terrain)

	for _, p := range ps {
		got, err := f.repos.Plantings(nil).Get(context.Background(), p.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ZoneID)
		assert.Equal(t, z.ID, *got.ZoneID)
	}
}

func TestOnPlantingValidated_BelowMinimumIsNoop(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, "p", 9, 7.0650, -73.8520)

	out, err := f.c.OnPlantingValidated(context.Background(), ps[8])
	require.NoError(t, err)

	assert.Equal(t, ActionNone, out.Action)
	assert.Equal(t, 9, out.Candidates)
	assert.Empty(t, f.activeZones(t))
}

func TestOnPlantingValidated_RefreshesNearbyZone(t *testing.T) {
	f := newFixture(t)
	first := f.seed(t, "a", 10, 7.0650, -73.8520)
	_, err := f.c.OnPlantingValidated(context.Background(), first[9])
	require.NoError(t, err)

	// a second batch starting ~1.1 km north: outside the zone radius, but its
	// centroid is within 1.5 km of the zone centre
	second := f.seed(t, "b", 10, 7.0770, -73.8520)
	out, err := f.c.OnPlantingValidated(context.Background(), second[0])
	require.NoError(t, err)

	assert.Equal(t, ActionRefreshed, out.Action)
	assert.Equal(t, 10, out.Candidates)
	zones := f.activeZones(t)
	require.Len(t, zones, 1)
	assert.Equal(t, "zone-1", zones[0].ID)
	assert.Equal(t, 10, zones[0].MemberCount, "recount of validated plantings within the zone radius")
	assert.Equal(t, now, zones[0].UpdatedAt)

	got, err := f.repos.Plantings(nil).Get(context.Background(), second[9].ID)
	require.NoError(t, err)
	require.NotNil(t, got.ZoneID)
	assert.Equal(t, "zone-1", *got.ZoneID)
}

func TestOnPlantingValidated_PlantingInsideZoneJoinsIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)
	_, err := f.c.OnPlantingValidated(ctx, ps[9])
	require.NoError(t, err)

	eleventh := &models.Planting{
		ID:          "p-10",
		SubmitterID: "u2",
		Lat:         7.0652,
		Lng:         -73.8521,
		Species:     "ceiba",
		State:       models.PlantingValidated,
		SubmittedAt: now,
	}
	_, err = f.repos.Plantings(nil).Create(ctx, eleventh)
	require.NoError(t, err)

	out, err := f.c.OnPlantingValidated(ctx, eleventh)
	require.NoError(t, err)

	assert.Equal(t, ActionJoined, out.Action)
	assert.Equal(t, 1, out.Candidates)
	zones := f.activeZones(t)
	require.Len(t, zones, 1, "joining never creates a zone")
	assert.Equal(t, "zone-1", zones[0].ID)
	assert.Equal(t, 11, zones[0].MemberCount)

	got, err := f.repos.Plantings(nil).Get(ctx, "p-10")
	require.NoError(t, err)
	require.NotNil(t, got.ZoneID)
	assert.Equal(t, "zone-1", *got.ZoneID)
}

func TestOnPlantingValidated_JoinIgnoresInactiveZones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)
	out, err := f.c.OnPlantingValidated(ctx, ps[9])
	require.NoError(t, err)
	require.NoError(t, f.c.Deactivate(ctx, out.Zone.ID))

	lone := &models.Planting{ID: "lone", SubmitterID: "u2", Lat: 7.0652, Lng: -73.8521, State: models.PlantingValidated}
	_, err = f.repos.Plantings(nil).Create(ctx, lone)
	require.NoError(t, err)

	out, err = f.c.OnPlantingValidated(ctx, lone)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)

	got, err := f.repos.Plantings(nil).Get(ctx, "lone")
	require.NoError(t, err)
	assert.Nil(t, got.ZoneID)
}

func TestOnPlantingValidated_JoinFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)
	_, err := f.c.OnPlantingValidated(ctx, ps[9])
	require.NoError(t, err)

	extra := &models.Planting{ID: "extra", SubmitterID: "u2", Lat: 7.0652, Lng: -73.8521, State: models.PlantingValidated}
	_, err = f.repos.Plantings(nil).Create(ctx, extra)
	require.NoError(t, err)
	f.store.FailOn("plantings.AssignZone", errors.New("boom"))

	_, err = f.c.OnPlantingValidated(ctx, extra)
	require.Error(t, err)
	assert.Equal(t, 10, f.activeZones(t)[0].MemberCount, "recount rolled back with the assignment")
}

func TestOnPlantingValidated_FarGroupCreatesSecondZone(t *testing.T) {
	f := newFixture(t)
	a := f.seed(t, "a", 10, 7.0650, -73.8520)
	b := f.seed(t, "b", 10, 7.1650, -73.8520)

	_, err := f.c.OnPlantingValidated(context.Background(), a[0])
	require.NoError(t, err)
	out, err := f.c.OnPlantingValidated(context.Background(), b[0])
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, out.Action)
	assert.Len(t, f.activeZones(t), 2)
}

func TestOnPlantingValidated_IgnoresZonedAndUnvalidated(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)
	ctx := context.Background()

	z := "elsewhere"
	ps[0].ZoneID = &z
	require.NoError(t, f.repos.Plantings(nil).Update(ctx, ps[0]))
	ps[1].State = models.PlantingPending
	require.NoError(t, f.repos.Plantings(nil).Update(ctx, ps[1]))

	out, err := f.c.OnPlantingValidated(ctx, ps[9])
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
	assert.Equal(t, 8, out.Candidates)
}

func TestOnPlantingValidated_InvalidCoordinates(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.OnPlantingValidated(context.Background(), &models.Planting{ID: "x", Lat: 95})

	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestOnPlantingValidated_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)
	f.store.FailOn("plantings.AssignZone", errors.New("boom"))

	_, err := f.c.OnPlantingValidated(context.Background(), ps[0])

	assert.Error(t, err)
	assert.Empty(t, f.activeZones(t), "zone creation rolled back with the assignment")
}

func TestRebuildAll(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", 12, 7.0650, -73.8520)
	f.seed(t, "b", 10, 7.2650, -73.8520)
	f.seed(t, "c", 3, 7.4650, -73.8520)

	report, err := f.c.RebuildAll(context.Background(), 1.0, 10)
	require.NoError(t, err)

	assert.Equal(t, 25, report.Plantings)
	assert.Equal(t, 3, report.Groups)
	assert.Equal(t, 2, report.Qualifying)
	assert.Equal(t, 2, report.Created)
	assert.Zero(t, report.Failed)

	zones := f.activeZones(t)
	require.Len(t, zones, 2)

	// a second rebuild refreshes rather than duplicates
	report, err = f.c.RebuildAll(context.Background(), 1.0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Refreshed)
	assert.Zero(t, report.Created)
	assert.Len(t, f.activeZones(t), 2)
}

func TestRebuildAll_TalliesGroupFailures(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", 10, 7.0650, -73.8520)
	f.store.FailOn("zones.Create", errors.New("disk full"))

	report, err := f.c.RebuildAll(context.Background(), 1.0, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.ErrorContains(t, report.Errors[0], "disk full")
}

func TestRebuildAll_RejectsBadArguments(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.RebuildAll(context.Background(), 0, 10)
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = f.c.RebuildAll(context.Background(), 1, 0)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRebuildAll_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("plantings.ListByState", errors.New("db is down"))

	_, err := f.c.RebuildAll(context.Background(), 1.0, 10)
	assert.Error(t, err)
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)
	ps := f.seed(t, "p", 10, 7.0650, -73.8520)
	out, err := f.c.OnPlantingValidated(context.Background(), ps[0])
	require.NoError(t, err)

	require.NoError(t, f.c.Deactivate(context.Background(), out.Zone.ID))
	require.NoError(t, f.c.Deactivate(context.Background(), out.Zone.ID))

	assert.Empty(t, f.activeZones(t))
	z, err := f.repos.Zones(nil).Get(context.Background(), out.Zone.ID)
	require.NoError(t, err)
	assert.False(t, z.Active)

	assert.ErrorIs(t, f.c.Deactivate(context.Background(), "nope"), common.ErrorNotFound)
}
