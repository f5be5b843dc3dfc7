// Package geo provides the great-circle math used for verification distance
// checks and zone clustering. It works on a spherical Earth and performs no
// clamping of its inputs.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Distance returns the haversine distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// rounding can push h slightly outside [0,1] for antipodal points
	h = math.Min(math.Max(h, 0), 1)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceMeters is Distance expressed in metres.
func DistanceMeters(a, b Point) float64 {
	return Distance(a, b) * 1000
}

// Valid reports whether p lies within latitude [-90,90] and longitude [-180,180].
func Valid(p Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Round6 rounds both coordinates to six decimals, the stored precision.
func Round6(p Point) Point {
	return Point{Lat: roundTo(p.Lat, 6), Lng: roundTo(p.Lng, 6)}
}

// Centroid returns the arithmetic mean of points. ok is false for an empty slice.
func Centroid(points []Point) (c Point, ok bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	for _, p := range points {
		c.Lat += p.Lat
		c.Lng += p.Lng
	}
	n := float64(len(points))
	return Point{Lat: c.Lat / n, Lng: c.Lng / n}, true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
