// Package geo holds geographic value types shared by the indexing and search paths.
package geo

import "github.com/stormlens/tileindex/internal/domain"

const (
	// MinLat and MaxLat bound valid latitudes in degrees.
	MinLat = -90.0
	MaxLat = 90.0
	// MinLon and MaxLon bound valid longitudes in degrees.
	MinLon = -180.0
	MaxLon = 180.0
)

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Validate checks numeric ranges and edge ordering, reporting the first
// violated constraint with its value.
func (b Bounds) Validate() error {
	if b.West < MinLon || b.West > MaxLon {
		return domain.Invalid("invalid west longitude: %v", b.West)
	}
	if b.East < MinLon || b.East > MaxLon {
		return domain.Invalid("invalid east longitude: %v", b.East)
	}
	if b.South < MinLat || b.South > MaxLat {
		return domain.Invalid("invalid south latitude: %v", b.South)
	}
	if b.North < MinLat || b.North > MaxLat {
		return domain.Invalid("invalid north latitude: %v", b.North)
	}
	if b.West >= b.East {
		return domain.Invalid("west must be less than east")
	}
	if b.South >= b.North {
		return domain.Invalid("south must be less than north")
	}
	return nil
}

// Center returns the arithmetic midpoint of the box. This is the plain
// average of the edges, not a geodesic centroid.
func (b Bounds) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// Contains reports whether the point lies within the box, edges inclusive.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}
