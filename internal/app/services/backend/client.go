// Package backend is the HTTP client for the app's REST backend: auth, user
// presence, favorites and the standalone coordinate record.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/app/observability/metrics"
)

const (
	// DefaultNearbyRadius is the backend default for /users/nearby.
	DefaultNearbyRadius = 20.0
	// DefaultAtLocationRadius is the backend default for /users/at-location.
	DefaultAtLocationRadius = 10.0

	maxErrorBody = 4096
)

// TokenProvider supplies the bearer token, or "" when signed out.
type TokenProvider interface {
	Token(ctx context.Context) string
}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto the shared domain errors so callers can use
// errors.Is without knowing about HTTP.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrNotAuthenticated
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return models.ErrBadRequest
	default:
		return nil
	}
}

// bearerTransport attaches the stored token to every outgoing request.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenProvider
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.tokens.Token(req.Context()); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base.RoundTrip(req)
}

// Client talks to a single configured backend base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a client whose requests carry the token from tokens.
func NewClient(baseURL string, tokens TokenProvider, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &bearerTransport{base: http.DefaultTransport, tokens: tokens},
		},
		logger: logger,
	}, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, models.Credentials{Email: email, Password: password}, &out)
	if errors.Is(err, models.ErrNotAuthenticated) {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns the same shape as Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, models.Registration{Name: name, Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// DeleteAccount removes the account identified by email.
func (c *Client) DeleteAccount(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodDelete, "/auth/account", url.Values{"email": {email}}, nil, nil)
}

// Me resolves a stored session to the current server user.
func (c *Client) Me(ctx context.Context, email string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", url.Values{"email": {email}}, nil, &out); err != nil {
		return nil, err
	}
	return out.Normalize(), nil
}

// CheckIn sets the user's presence coordinate.
func (c *Client) CheckIn(ctx context.Context, email string, lat, lon float64) (*models.User, error) {
	q := url.Values{
		"email":     {email},
		"latitude":  {formatFloat(lat)},
		"longitude": {formatFloat(lon)},
	}
	var out models.User
	if err := c.do(ctx, http.MethodPost, "/users/checkin", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Normalize(), nil
}

// CheckOut clears the user's presence coordinate.
func (c *Client) CheckOut(ctx context.Context, email string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPost, "/users/checkout", url.Values{"email": {email}}, nil, &out); err != nil {
		return nil, err
	}
	return out.Normalize(), nil
}

// UsersNearby lists users near a point. A non-positive radius uses the
// backend default of 20 meters.
func (c *Client) UsersNearby(ctx context.Context, lat, lon, radius float64) ([]models.User, error) {
	if radius <= 0 {
		radius = DefaultNearbyRadius
	}
	return c.users(ctx, "/users/nearby", lat, lon, radius)
}

// UsersAtLocation lists users at a venue. A non-positive radius uses the
// backend default of 10 meters.
func (c *Client) UsersAtLocation(ctx context.Context, lat, lon, radius float64) ([]models.User, error) {
	if radius <= 0 {
		radius = DefaultAtLocationRadius
	}
	return c.users(ctx, "/users/at-location", lat, lon, radius)
}

func (c *Client) users(ctx context.Context, path string, lat, lon, radius float64) ([]models.User, error) {
	q := url.Values{
		"latitude":       {formatFloat(lat)},
		"longitude":      {formatFloat(lon)},
		"radiusInMeters": {formatFloat(radius)},
	}
	var out []models.User
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Normalize()
	}
	return out, nil
}

// Favorites lists the user's favorite venue references.
func (c *Client) Favorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	var out []models.Favorite
	if err := c.do(ctx, http.MethodGet, "/favorites/"+url.PathEscape(userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type addFavoriteRequest struct {
	LocationID string  `json:"locationId"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// AddFavorite stores a reference to venue for the user.
func (c *Client) AddFavorite(ctx context.Context, userID string, venue models.Venue) (*models.Favorite, error) {
	body := addFavoriteRequest{
		LocationID: venue.ID,
		Latitude:   venue.Location.Latitude,
		Longitude:  venue.Location.Longitude,
	}
	var out models.Favorite
	if err := c.do(ctx, http.MethodPost, "/favorites/"+url.PathEscape(userID), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFavorite deletes the favorite for locationID.
func (c *Client) RemoveFavorite(ctx context.Context, userID, locationID string) error {
	path := "/favorites/" + url.PathEscape(userID) + "/" + url.PathEscape(locationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Coordinate reads the user's standalone coordinate record.
func (c *Client) Coordinate(ctx context.Context, userID string) (*models.SharedCoordinate, error) {
	var out models.SharedCoordinate
	if err := c.do(ctx, http.MethodGet, "/coordinates/"+url.PathEscape(userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetCoordinate writes the user's standalone coordinate record.
func (c *Client) SetCoordinate(ctx context.Context, userID string, coord models.Coordinate) (*models.SharedCoordinate, error) {
	var out models.SharedCoordinate
	if err := c.do(ctx, http.MethodPost, "/coordinates/"+url.PathEscape(userID), nil, coord, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCoordinate deletes the user's standalone coordinate record.
func (c *Client) ClearCoordinate(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/coordinates/"+url.PathEscape(userID), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	route := routeName(path)
	ctx, span := otel.Tracer("BackendClient").Start(ctx, method+" "+route, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
	))
	defer span.End()

	start := time.Now()
	status, err := c.send(ctx, method, path, query, body, out)

	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	m := metrics.Get()
	m.BackendRequestsTotal.Add(ctx, 1, attrs)
	m.BackendRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		c.logger.Debug("Backend request failed",
			zap.String("method", method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend request failed")
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return 0, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u.Path = unescaped
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// routeName collapses ids out of the path so span and metric names stay
// low-cardinality.
func routeName(path string) string {
	switch {
	case strings.HasPrefix(path, "/favorites/"):
		if strings.Count(path, "/") > 2 {
			return "/favorites/{userId}/{locationId}"
		}
		return "/favorites/{userId}"
	case strings.HasPrefix(path, "/coordinates/"):
		return "/coordinates/{userId}"
	default:
		return path
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
