package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("DEFAULT_LATITUDE", "")
	t.Setenv("DEFAULT_LONGITUDE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)
	assert.Equal(t, 10.0, cfg.Session.ProximityRadius)
	assert.Equal(t, 10*time.Second, cfg.Session.PresenceInterval)
	assert.Equal(t, 10*time.Second, cfg.Discover.SearchTimeout)
	assert.Equal(t, 800*time.Millisecond, cfg.Discover.RadiusDebounce)
	assert.Equal(t, 3, cfg.Places.MaxPages)
	assert.Nil(t, cfg.DefaultLocation)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("PROXIMITY_RADIUS_METERS", "25.5")
	t.Setenv("DEFAULT_LATITUDE", "37.7749")
	t.Setenv("DEFAULT_LONGITUDE", "-122.4194")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Discover.SearchTimeout)
	assert.Equal(t, 25.5, cfg.Session.ProximityRadius)
	require.NotNil(t, cfg.DefaultLocation)
	assert.Equal(t, [2]float64{37.7749, -122.4194}, *cfg.DefaultLocation)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "relative base url", key: "API_BASE_URL", val: "not-a-url"},
		{name: "negative radius", key: "PROXIMITY_RADIUS_METERS", val: "-1"},
		{name: "zero pages", key: "PLACES_MAX_PAGES", val: "0"},
		{name: "bad default latitude", key: "DEFAULT_LATITUDE", val: "north"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DEFAULT_LONGITUDE", "1")
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
