// Package directions fetches walking or driving paths through route stops
// from the Google Directions web service.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/pkg/cache"
)

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			StartLocation latLng    `json:"start_location"`
			EndLocation   latLng    `json:"end_location"`
			StartAddress  string    `json:"start_address"`
			EndAddress    string    `json:"end_address"`
			Distance      textValue `json:"distance"`
			Duration      textValue `json:"duration"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// Client requests directions and caches them per stop list and mode.
type Client struct {
	apiKey     string
	endpoint   string
	mode       string
	httpClient *http.Client
	cache      *cache.UnifiedCache[models.Directions]
	logger     *zap.Logger
}

// NewClient creates a directions client. endpoint is the full
// ".../directions/json" URL; routes is the response cache and may be nil.
func NewClient(apiKey, endpoint, mode string, routes *cache.UnifiedCache[models.Directions], logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = "walking"
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		mode:       mode,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      routes,
		logger:     logger,
	}
}

// Route returns directions from the first stop to the last, through the
// stops in between in order. At least two stops are required.
func (c *Client) Route(ctx context.Context, stops []models.Coordinate) (*models.Directions, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("%w: a route needs at least two stops", models.ErrValidation)
	}

	key, err := cache.NewKeyBuilder().Add("mode", c.mode).Add("stops", stops).Build()
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if d, ok := c.cache.Get(key); ok {
			return &d, nil
		}
	}

	ctx, span := otel.Tracer("DirectionsClient").Start(ctx, "Route", trace.WithAttributes(
		attribute.Int("stops", len(stops)),
		attribute.String("mode", c.mode),
	))
	defer span.End()

	d, err := c.fetch(ctx, stops)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directions request failed")
		c.logger.Warn("Directions request failed", zap.Int("stops", len(stops)), zap.Error(err))
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(key, *d)
	}
	span.SetAttributes(attribute.Int("legs", len(d.Legs)), attribute.Int("distance_m", d.DistanceMeters))
	span.SetStatus(codes.Ok, "")
	return d, nil
}

func (c *Client) fetch(ctx context.Context, stops []models.Coordinate) (*models.Directions, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: directions API key not set", models.ErrProviderUnavailable)
	}

	params := url.Values{}
	params.Set("origin", formatLatLng(stops[0]))
	params.Set("destination", formatLatLng(stops[len(stops)-1]))
	if len(stops) > 2 {
		waypoints := make([]string, 0, len(stops)-2)
		for _, s := range stops[1 : len(stops)-1] {
			waypoints = append(waypoints, formatLatLng(s))
		}
		params.Set("waypoints", strings.Join(waypoints, "|"))
	}
	params.Set("mode", c.mode)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directions request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Google Directions API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: Google Directions API error (status %d): %s", models.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var raw directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse Google Directions response: %w", err)
	}
	switch raw.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, fmt.Errorf("%w: no route between stops", models.ErrNotFound)
	default:
		return nil, fmt.Errorf("%w: status %s %s", models.ErrProviderUnavailable, raw.Status, raw.ErrorMessage)
	}
	if len(raw.Routes) == 0 {
		return nil, fmt.Errorf("%w: no route between stops", models.ErrNotFound)
	}

	route := raw.Routes[0]
	out := &models.Directions{Legs: make([]models.Leg, 0, len(route.Legs))}
	for _, l := range route.Legs {
		out.Legs = append(out.Legs, models.Leg{
			Start:           models.Coordinate{Latitude: l.StartLocation.Lat, Longitude: l.StartLocation.Lng},
			End:             models.Coordinate{Latitude: l.EndLocation.Lat, Longitude: l.EndLocation.Lng},
			StartAddress:    l.StartAddress,
			EndAddress:      l.EndAddress,
			DistanceMeters:  l.Distance.Value,
			DistanceText:    l.Distance.Text,
			DurationSeconds: l.Duration.Value,
			DurationText:    l.Duration.Text,
		})
		out.DistanceMeters += l.Distance.Value
		out.DurationSeconds += l.Duration.Value
	}

	if pts := route.OverviewPolyline.Points; pts != "" {
		path, err := DecodePath(pts)
		if err != nil {
			c.logger.Warn("Ignoring undecodable overview polyline", zap.Error(err))
		} else {
			out.Path = path
		}
	}
	return out, nil
}

// DecodePath decodes an encoded polyline into coordinates.
func DecodePath(encoded string) ([]models.Coordinate, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	path := make([]models.Coordinate, 0, len(coords))
	for _, c := range coords {
		path = append(path, models.Coordinate{Latitude: c[0], Longitude: c[1]})
	}
	return path, nil
}

func formatLatLng(c models.Coordinate) string {
	return fmt.Sprintf("%.7f,%.7f", c.Latitude, c.Longitude)
}
