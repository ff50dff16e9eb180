// Package geo holds the distance primitives shared by check-in, presence and
// venue sorting.
package geo

import (
	"math"
	"sort"
	"strings"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

const (
	earthRadiusMeters = 6371000.0

	// DefaultProximityRadius is the check-in / "same venue" threshold in meters.
	DefaultProximityRadius = 10.0

	coordinatePrecision = 1e7
)

// HaversineDistance returns the great-circle distance in meters.
func HaversineDistance(a, b models.Coordinate) float64 {
	lat1 := degreesToRadians(a.Latitude)
	lat2 := degreesToRadians(b.Latitude)
	deltaLat := degreesToRadians(b.Latitude - a.Latitude)
	deltaLon := degreesToRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// AreCoordinatesClose reports whether a and b are within radius meters. A
// non-positive radius falls back to DefaultProximityRadius.
func AreCoordinatesClose(a, b models.Coordinate, radius float64) bool {
	if radius <= 0 {
		radius = DefaultProximityRadius
	}
	return HaversineDistance(a, b) <= radius
}

// Round trims both components to 7 decimal places (~1cm).
func Round(c models.Coordinate) models.Coordinate {
	return models.Coordinate{
		Latitude:  math.Round(c.Latitude*coordinatePrecision) / coordinatePrecision,
		Longitude: math.Round(c.Longitude*coordinatePrecision) / coordinatePrecision,
	}
}

// WithDistances sets Distance on every venue relative to origin.
func WithDistances(origin models.Coordinate, venues []models.Venue) []models.Venue {
	for i := range venues {
		d := HaversineDistance(origin, venues[i].Location)
		venues[i].Distance = &d
	}
	return venues
}

// SortMode selects the ordering applied to a result list.
type SortMode string

const (
	SortByDistance SortMode = "distance"
	SortByRating   SortMode = "rating"
	SortByName     SortMode = "name"
)

// Sort orders venues in place. Venues without a distance or rating sink to
// the end; ties keep their incoming order.
func Sort(venues []models.Venue, mode SortMode) {
	switch mode {
	case SortByRating:
		sort.SliceStable(venues, func(i, j int) bool {
			return valueOr(venues[i].Rating, -1) > valueOr(venues[j].Rating, -1)
		})
	case SortByName:
		sort.SliceStable(venues, func(i, j int) bool {
			return strings.ToLower(venues[i].Name) < strings.ToLower(venues[j].Name)
		})
	default:
		sort.SliceStable(venues, func(i, j int) bool {
			return valueOr(venues[i].Distance, math.MaxFloat64) < valueOr(venues[j].Distance, math.MaxFloat64)
		})
	}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
