package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

func ptr(f float64) *float64 { return &f }

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.Coordinate
		expected float64
		delta    float64
	}{
		{
			name:     "same point",
			a:        models.Coordinate{Latitude: 37.7749, Longitude: -122.4194},
			b:        models.Coordinate{Latitude: 37.7749, Longitude: -122.4194},
			expected: 0,
			delta:    1e-9,
		},
		{
			name:     "0.001 degree latitude at the equator",
			a:        models.Coordinate{Latitude: 0, Longitude: 0},
			b:        models.Coordinate{Latitude: 0.001, Longitude: 0},
			expected: earthRadiusMeters * 0.001 * math.Pi / 180,
			delta:    0.01,
		},
		{
			name:     "one degree longitude at the equator",
			a:        models.Coordinate{Latitude: 0, Longitude: 0},
			b:        models.Coordinate{Latitude: 0, Longitude: 1},
			expected: 111194.93,
			delta:    1,
		},
		{
			name:     "symmetric",
			a:        models.Coordinate{Latitude: 0.001, Longitude: 0},
			b:        models.Coordinate{Latitude: 0, Longitude: 0},
			expected: 111.19,
			delta:    0.01,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, HaversineDistance(tc.a, tc.b), tc.delta)
		})
	}
}

func TestAreCoordinatesClose(t *testing.T) {
	origin := models.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

	assert.True(t, AreCoordinatesClose(origin, origin, 10))
	// ~5.5m north
	assert.True(t, AreCoordinatesClose(origin, models.Coordinate{Latitude: 37.77495, Longitude: -122.4194}, 10))
	// ~111m north
	assert.False(t, AreCoordinatesClose(origin, models.Coordinate{Latitude: 37.7759, Longitude: -122.4194}, 10))
	assert.True(t, AreCoordinatesClose(origin, models.Coordinate{Latitude: 37.7759, Longitude: -122.4194}, 200))
	// zero radius uses the default
	assert.True(t, AreCoordinatesClose(origin, models.Coordinate{Latitude: 37.77495, Longitude: -122.4194}, 0))
}

func TestRound(t *testing.T) {
	got := Round(models.Coordinate{Latitude: 37.774912345678, Longitude: -122.419412345678})
	assert.InDelta(t, 37.7749123, got.Latitude, 1e-12)
	assert.InDelta(t, -122.4194123, got.Longitude, 1e-12)
}

func TestSort(t *testing.T) {
	venues := []models.Venue{
		{ID: "far", Name: "beta", Distance: ptr(300), Rating: ptr(4.9)},
		{ID: "none", Name: "Alpha"},
		{ID: "near", Name: "gamma", Distance: ptr(10), Rating: ptr(3.1)},
	}

	Sort(venues, SortByDistance)
	assert.Equal(t, []string{"near", "far", "none"}, ids(venues))

	Sort(venues, SortByRating)
	assert.Equal(t, []string{"far", "near", "none"}, ids(venues))

	Sort(venues, SortByName)
	assert.Equal(t, []string{"none", "far", "near"}, ids(venues))
}

func TestWithDistances(t *testing.T) {
	origin := models.Coordinate{}
	venues := WithDistances(origin, []models.Venue{{ID: "a", Location: models.Coordinate{Latitude: 0.001}}})
	if assert.NotNil(t, venues[0].Distance) {
		assert.InDelta(t, 111.19, *venues[0].Distance, 0.01)
	}
}

func ids(venues []models.Venue) []string {
	out := make([]string, len(venues))
	for i, v := range venues {
		out[i] = v.ID
	}
	return out
}
