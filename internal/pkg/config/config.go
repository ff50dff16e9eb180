package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PlacesConfig struct {
	APIKey        string
	BaseURL       string
	MaxPages      int
	PageDelay     time.Duration
	DefaultRadius int
}

type DirectionsConfig struct {
	APIKey  string
	BaseURL string
	Mode    string
}

type SessionConfig struct {
	ProximityRadius  float64
	PresenceInterval time.Duration
}

type DiscoverConfig struct {
	SearchTimeout  time.Duration
	RadiusDebounce time.Duration
}

type NATSConfig struct {
	URL             string
	PresenceSubject string
}

type ObservabilityConfig struct {
	MetricsAddr  string
	PprofAddr    string
	OTLPEndpoint string
}

// Config holds all client configuration.
type Config struct {
	Backend       BackendConfig
	Places        PlacesConfig
	Directions    DirectionsConfig
	Session       SessionConfig
	Discover      DiscoverConfig
	NATS          NATSConfig
	Observability ObservabilityConfig
	StorageDir    string
	ServerPort    string
	LogLevel      string

	// DefaultLocation, when set, seeds the geolocation source before the
	// device reports a position.
	DefaultLocation *[2]float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Backend: BackendConfig{
			BaseURL: getEnvOrDefault("API_BASE_URL", "http://localhost:8080"),
			Timeout: getEnvAsDuration("API_TIMEOUT", 30*time.Second),
		},
		Places: PlacesConfig{
			APIKey:        os.Getenv("GOOGLE_PLACES_API_KEY"),
			BaseURL:       getEnvOrDefault("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
			MaxPages:      getEnvAsInt("PLACES_MAX_PAGES", 3),
			PageDelay:     getEnvAsDuration("PLACES_PAGE_DELAY", 2*time.Second),
			DefaultRadius: getEnvAsInt("PLACES_DEFAULT_RADIUS", 1500),
		},
		Directions: DirectionsConfig{
			APIKey:  getEnvOrDefault("GOOGLE_DIRECTIONS_API_KEY", os.Getenv("GOOGLE_PLACES_API_KEY")),
			BaseURL: getEnvOrDefault("DIRECTIONS_BASE_URL", "https://maps.googleapis.com/maps/api/directions/json"),
			Mode:    getEnvOrDefault("DIRECTIONS_MODE", "walking"),
		},
		Session: SessionConfig{
			ProximityRadius:  getEnvAsFloat("PROXIMITY_RADIUS_METERS", 10),
			PresenceInterval: getEnvAsDuration("PRESENCE_INTERVAL", 10*time.Second),
		},
		Discover: DiscoverConfig{
			SearchTimeout:  getEnvAsDuration("SEARCH_TIMEOUT", 10*time.Second),
			RadiusDebounce: getEnvAsDuration("RADIUS_DEBOUNCE", 800*time.Millisecond),
		},
		NATS: NATSConfig{
			URL:             os.Getenv("NATS_URL"),
			PresenceSubject: getEnvOrDefault("NATS_PRESENCE_SUBJECT", "presence.checkins"),
		},
		Observability: ObservabilityConfig{
			MetricsAddr:  getEnvOrDefault("METRICS_ADDR", ":9092"),
			PprofAddr:    getEnvOrDefault("PPROF_ADDR", ":6060"),
			OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		},
		StorageDir: os.Getenv("STORAGE_DIR"),
		ServerPort: getEnvOrDefault("SERVER_PORT", "8091"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
	}

	latStr, lonStr := os.Getenv("DEFAULT_LATITUDE"), os.Getenv("DEFAULT_LONGITUDE")
	if latStr != "" && lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("DEFAULT_LATITUDE/DEFAULT_LONGITUDE must be numbers")
		}
		cfg.DefaultLocation = &[2]float64{lat, lon}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Session.ProximityRadius <= 0 {
		return fmt.Errorf("PROXIMITY_RADIUS_METERS must be positive")
	}
	if cfg.Places.MaxPages < 1 {
		return fmt.Errorf("PLACES_MAX_PAGES must be at least 1")
	}
	if cfg.Discover.SearchTimeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnvOrDefault(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}
