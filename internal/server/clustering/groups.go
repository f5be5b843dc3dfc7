// Package clustering groups validated plantings into reforestation zones.
package clustering

import (
	"github.com/dmitrijs2005/reforest/internal/geo"
	"github.com/dmitrijs2005/reforest/internal/server/impact"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

// fallbackSpecies tags a zone whose plantings carry no species.
const fallbackSpecies = "trees"

// Within returns the plantings whose distance to center is at most radiusKm,
// in input order.
func Within(plantings []*models.Planting, center geo.Point, radiusKm float64) []*models.Planting {
	var out []*models.Planting
	for _, p := range plantings {
		if geo.Distance(center, p.Point()) <= radiusKm {
			out = append(out, p)
		}
	}
	return out
}

// GroupGreedy partitions plantings in a single pass: the first unassigned
// planting seeds a group and takes every unassigned planting within radiusKm
// of the seed. Neighbours of neighbours are not chained in.
func GroupGreedy(plantings []*models.Planting, radiusKm float64) [][]*models.Planting {
	taken := make([]bool, len(plantings))
	var groups [][]*models.Planting

	for i, seed := range plantings {
		if taken[i] {
			continue
		}
		taken[i] = true
		group := []*models.Planting{seed}

		for j := i + 1; j < len(plantings); j++ {
			if taken[j] {
				continue
			}
			if geo.Distance(seed.Point(), plantings[j].Point()) <= radiusKm {
				taken[j] = true
				group = append(group, plantings[j])
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// DominantSpecies returns the most frequent species, comparing names in
// normalised form. Ties go to the species seen first, reported in its first
// spelling.
func DominantSpecies(plantings []*models.Planting) string {
	counts := map[string]int{}
	spelling := map[string]string{}
	var order []string

	for _, p := range plantings {
		if p.Species == "" {
			continue
		}
		key := impact.NormalizeSpecies(p.Species)
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			spelling[key] = p.Species
		}
		counts[key]++
	}
	if len(order) == 0 {
		return fallbackSpecies
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return spelling[best]
}

func centroid(plantings []*models.Planting) (geo.Point, bool) {
	points := make([]geo.Point, len(plantings))
	for i, p := range plantings {
		points[i] = p.Point()
	}
	c, ok := geo.Centroid(points)
	if !ok {
		return geo.Point{}, false
	}
	return geo.Round6(c), true
}

func ids(plantings []*models.Planting) []string {
	out := make([]string, len(plantings))
	for i, p := range plantings {
		out[i] = p.ID
	}
	return out
}
