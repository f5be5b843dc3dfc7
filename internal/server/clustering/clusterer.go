package clustering

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/geo"
	"github.com/dmitrijs2005/reforest/internal/logging"
	"github.com/dmitrijs2005/reforest/internal/server/models"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/plantings"
	"github.com/dmitrijs2005/reforest/internal/server/repositories/zones"
	"github.com/dmitrijs2005/reforest/internal/timex"
	"github.com/google/uuid"
)

const defaultTerrain = "urban"

type Config struct {
	// SearchRadiusKm bounds a group around its seed and is stored as the
	// radius of zones created from it.
	SearchRadiusKm float64
	MinMembers     int
	// ToleranceKm is how far from a group's centroid an existing zone may be
	// and still absorb the group.
	ToleranceKm float64
}

func DefaultConfig() Config {
	return Config{SearchRadiusKm: 1.0, MinMembers: 10, ToleranceKm: 1.5}
}

// Stores is the part of the repository manager the clusterer needs.
type Stores interface {
	Plantings(db dbx.DBTX) plantings.Repository
	Zones(db dbx.DBTX) zones.Repository
}

type Action string

const (
	ActionNone      Action = "none"
	ActionCreated   Action = "created"
	ActionRefreshed Action = "refreshed"
	ActionJoined    Action = "joined"
)

// Outcome describes what one clustering step did.
type Outcome struct {
	Action     Action
	Zone       *models.Zone
	Candidates int
}

type RebuildReport struct {
	Plantings  int
	Groups     int
	Qualifying int
	Created    int
	Refreshed  int
	Failed     int
	Errors     []error
}

type Clusterer struct {
	db     dbx.DBTX
	tx     dbx.Transactor
	stores Stores
	cfg    Config
	clock  timex.Clock
	log    logging.Logger
	newID  func() string
}

func NewClusterer(db dbx.DBTX, tx dbx.Transactor, stores Stores, cfg Config, clock timex.Clock, log logging.Logger) *Clusterer {
	return &Clusterer{
		db:     db,
		tx:     tx,
		stores: stores,
		cfg:    cfg,
		clock:  clock,
		log:    log,
		newID:  uuid.NewString,
	}
}

func (c *Clusterer) Config() Config { return c.cfg }

// OnPlantingValidated places p, now validated. A planting inside the radius
// of an active zone joins the nearest such zone and the zone is recounted.
// Otherwise p may complete a group of unzoned validated plantings large
// enough to form a zone, or to be absorbed by one within tolerance.
func (c *Clusterer) OnPlantingValidated(ctx context.Context, p *models.Planting) (*Outcome, error) {
	if !geo.Valid(p.Point()) {
		return nil, common.NewValidationError("coordinates", fmt.Sprintf("planting %s has invalid coordinates", p.ID))
	}

	var out *Outcome
	err := c.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		validated, err := c.stores.Plantings(tx).ListByState(ctx, models.PlantingValidated)
		if err != nil {
			return err
		}

		self := p
		for _, v := range validated {
			if v.ID == p.ID {
				self = v
				break
			}
		}
		if self == p {
			validated = append(validated, p)
		}

		if self.ZoneID == nil {
			active, err := c.stores.Zones(tx).ListActive(ctx)
			if err != nil {
				return err
			}
			if z := containing(active, self.Point()); z != nil {
				out, err = c.join(ctx, tx, z.ID, self, validated)
				return err
			}
		}

		var unzoned []*models.Planting
		for _, v := range validated {
			if v.ZoneID == nil {
				unzoned = append(unzoned, v)
			}
		}

		candidates := Within(unzoned, p.Point(), c.cfg.SearchRadiusKm)
		if len(candidates) < c.cfg.MinMembers {
			out = &Outcome{Action: ActionNone, Candidates: len(candidates)}
			return nil
		}

		out, err = c.settle(ctx, tx, candidates, validated, c.cfg.SearchRadiusKm)
		return err
	})
	if err != nil {
		return nil, err
	}

	if out.Action != ActionNone {
		c.log.Info(ctx, "zone "+string(out.Action),
			"zone_id", out.Zone.ID, "planting_id", p.ID, "members", out.Zone.MemberCount)
	}
	return out, nil
}

// RebuildAll regroups every validated planting from scratch. Each qualifying
// group is settled in its own transaction; failures are tallied and the
// rebuild carries on.
func (c *Clusterer) RebuildAll(ctx context.Context, searchRadiusKm float64, minMembers int) (*RebuildReport, error) {
	if searchRadiusKm <= 0 {
		return nil, common.NewValidationError("radius", "search radius must be positive")
	}
	if minMembers < 1 {
		return nil, common.NewValidationError("min_members", "minimum member count must be at least 1")
	}

	validated, err := c.stores.Plantings(c.db).ListByState(ctx, models.PlantingValidated)
	if err != nil {
		return nil, err
	}

	groups := GroupGreedy(validated, searchRadiusKm)
	report := &RebuildReport{Plantings: len(validated), Groups: len(groups)}

	for _, group := range groups {
		if len(group) < minMembers {
			continue
		}
		report.Qualifying++

		var out *Outcome
		err := c.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			out, err = c.settle(ctx, tx, group, validated, searchRadiusKm)
			return err
		})
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("group seeded by %s: %w", group[0].ID, err))
			c.log.Warn(ctx, "zone rebuild group failed", "seed_id", group[0].ID, "size", len(group), "error", err)
			continue
		}

		switch out.Action {
		case ActionCreated:
			report.Created++
		case ActionRefreshed:
			report.Refreshed++
		}
	}

	c.log.Info(ctx, "zone rebuild finished",
		"plantings", report.Plantings, "groups", report.Groups, "created", report.Created,
		"refreshed", report.Refreshed, "failed", report.Failed)
	return report, nil
}

// Deactivate hides a zone. Zones are never deleted.
func (c *Clusterer) Deactivate(ctx context.Context, zoneID string) error {
	return c.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := c.stores.Zones(tx)
		z, err := repo.GetForUpdate(ctx, zoneID)
		if err != nil {
			return err
		}
		if !z.Active {
			return nil
		}
		z.Active = false
		z.UpdatedAt = c.clock.Now()
		return repo.Update(ctx, z)
	})
}

// join adds p to zone zoneID and recounts the zone against validated.
func (c *Clusterer) join(ctx context.Context, tx dbx.DBTX, zoneID string, p *models.Planting, validated []*models.Planting) (*Outcome, error) {
	zoneRepo := c.stores.Zones(tx)
	zone, err := zoneRepo.GetForUpdate(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	zone.MemberCount = len(Within(validated, zone.Center(), zone.RadiusKm))
	zone.UpdatedAt = c.clock.Now()
	if err := zoneRepo.Update(ctx, zone); err != nil {
		return nil, err
	}

	if err := c.stores.Plantings(tx).AssignZone(ctx, zone.ID, []string{p.ID}); err != nil {
		return nil, err
	}
	id := zone.ID
	p.ZoneID = &id

	return &Outcome{Action: ActionJoined, Zone: zone, Candidates: 1}, nil
}

// settle attaches group to the nearest active zone within tolerance of its
// centroid, or creates one. validated is the population a refreshed zone is
// recounted against.
func (c *Clusterer) settle(ctx context.Context, tx dbx.DBTX, group, validated []*models.Planting, radiusKm float64) (*Outcome, error) {
	center, ok := centroid(group)
	if !ok {
		return nil, errors.New("empty group")
	}

	zoneRepo := c.stores.Zones(tx)
	active, err := zoneRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	var zone *models.Zone
	action := ActionCreated

	if near := nearest(active, center, c.cfg.ToleranceKm); near != nil {
		zone, err = zoneRepo.GetForUpdate(ctx, near.ID)
		if err != nil {
			return nil, err
		}
		zone.MemberCount = len(Within(validated, zone.Center(), zone.RadiusKm))
		zone.UpdatedAt = now
		if err := zoneRepo.Update(ctx, zone); err != nil {
			return nil, err
		}
		action = ActionRefreshed
	} else {
		species := DominantSpecies(group)
		desc := fmt.Sprintf("Auto-generated zone with %d trees planted. Dominant species: %s.", len(group), species)
		zone = &models.Zone{
			ID:              c.newID(),
			Name:            fmt.Sprintf("Reforestation zone - %d trees", len(group)),
			Description:     desc,
			Terrain:         defaultTerrain,
			Lat:             center.Lat,
			Lng:             center.Lng,
			RadiusKm:        radiusKm,
			MemberCount:     len(group),
			DominantSpecies: species,
			AutoGenerated:   true,
			Active:          true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if zone, err = zoneRepo.Create(ctx, zone); err != nil {
			return nil, err
		}
	}

	if err := c.stores.Plantings(tx).AssignZone(ctx, zone.ID, ids(group)); err != nil {
		return nil, err
	}
	for _, p := range group {
		id := zone.ID
		p.ZoneID = &id
	}

	return &Outcome{Action: action, Zone: zone, Candidates: len(group)}, nil
}

// containing returns the active zone whose circle holds point, the closest
// centre winning.
func containing(zones []*models.Zone, point geo.Point) *models.Zone {
	var best *models.Zone
	bestDist := math.Inf(1)
	for _, z := range zones {
		d := geo.Distance(point, z.Center())
		if d <= z.RadiusKm && d < bestDist {
			best, bestDist = z, d
		}
	}
	return best
}

func nearest(zones []*models.Zone, center geo.Point, toleranceKm float64) *models.Zone {
	var best *models.Zone
	bestDist := math.Inf(1)
	for _, z := range zones {
		d := geo.Distance(center, z.Center())
		if d <= toleranceKm && d < bestDist {
			best, bestDist = z, d
		}
	}
	return best
}
