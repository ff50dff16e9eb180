// Package places wraps the Google Places web service and turns its nearby
// results into de-duplicated domain venues.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

const detailFields = "formatted_phone_number,opening_hours,rating,price_level,website,photos"

// PlaceResult is one raw record from a nearby search.
type PlaceResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
}

// Page is one page of nearby results.
type Page struct {
	Results       []PlaceResult
	NextPageToken string
}

type nearbyResponse struct {
	Results       []PlaceResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

type detailsResponse struct {
	Result struct {
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		OpeningHours         *struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours"`
		Rating     *float64 `json:"rating"`
		PriceLevel *int     `json:"price_level"`
		Website    string   `json:"website"`
		Photos     []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Client handles Google Places API requests. The API key travels in the
// query string.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Places client. baseURL is the ".../maps/api/place"
// prefix so tests can point it at a local server.
func NewClient(apiKey, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// NearbySearch returns one page of places of placeType around center. When
// pageToken is set the other parameters are ignored by the provider.
func (c *Client) NearbySearch(ctx context.Context, center models.Coordinate, radiusMeters int, placeType, pageToken string) (*Page, error) {
	params := url.Values{}
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	} else {
		params.Set("location", fmt.Sprintf("%.6f,%.6f", center.Latitude, center.Longitude))
		params.Set("radius", strconv.Itoa(radiusMeters))
		if placeType != "" {
			params.Set("type", placeType)
		}
	}

	var result nearbyResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}

	c.logger.Debug("Places nearby page",
		zap.String("type", placeType),
		zap.Int("results", len(result.Results)),
		zap.Bool("has_next", result.NextPageToken != ""))

	return &Page{Results: result.Results, NextPageToken: result.NextPageToken}, nil
}

// Details fetches the extended record for placeID in a single call.
func (c *Client) Details(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailFields)

	var result detailsResponse
	if err := c.get(ctx, "/details/json", params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}

	r := result.Result
	details := &models.PlaceDetails{
		Phone:      r.FormattedPhoneNumber,
		Rating:     r.Rating,
		PriceLevel: r.PriceLevel,
		Website:    r.Website,
	}
	if r.OpeningHours != nil {
		details.OpeningHours = r.OpeningHours.WeekdayText
	}
	for _, p := range r.Photos {
		if p.PhotoReference != "" {
			details.Photos = append(details.Photos, p.PhotoReference)
		}
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: places API key not set", models.ErrProviderUnavailable)
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call Google Places API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: Google Places API error (status %d): %s", models.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse Google Places response: %w", err)
	}
	return nil
}

func checkStatus(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "NOT_FOUND":
		return fmt.Errorf("%w: %s", models.ErrNotFound, message)
	default:
		return fmt.Errorf("%w: status %s %s", models.ErrProviderUnavailable, status, message)
	}
}
