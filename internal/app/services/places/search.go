package places

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/geo"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/app/observability/metrics"
)

// DefaultCategories are searched when a query names no category.
var DefaultCategories = []models.Category{
	models.CategoryBar,
	models.CategoryRestaurant,
	models.CategoryNightClub,
	models.CategoryCafe,
}

// inferencePriority decides the category of a result carrying several types.
var inferencePriority = []models.Category{
	models.CategoryNightClub,
	models.CategoryBar,
	models.CategoryRestaurant,
	models.CategoryCafe,
	models.CategoryMovieTheater,
	models.CategoryBowlingAlley,
}

// providerTypes maps categories whose provider name differs from ours.
var providerTypes = map[models.Category]string{
	models.CategoryHotel: "lodging",
}

// Provider is the subset of the places web service used by Searcher.
type Provider interface {
	NearbySearch(ctx context.Context, center models.Coordinate, radiusMeters int, placeType, pageToken string) (*Page, error)
	Details(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

// Query is one search request.
type Query struct {
	Center       models.Coordinate
	RadiusMeters int
	Categories   []models.Category
}

// Options tunes pagination.
type Options struct {
	MaxPages  int
	PageDelay time.Duration
}

// Searcher fans one query out per category and merges the pages.
type Searcher struct {
	provider Provider
	logger   *zap.Logger
	opts     Options
	details  *cache.Cache
}

// NewSearcher creates a Searcher. Detail records are cached for the
// lifetime of the Searcher.
func NewSearcher(provider Provider, opts Options, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	return &Searcher{
		provider: provider,
		logger:   logger,
		opts:     opts,
		details:  cache.New(cache.NoExpiration, 0),
	}
}

// Search returns the de-duplicated venues for q. A failing category is
// logged and skipped; only when every category fails does Search return an
// error, together with an empty list.
func (s *Searcher) Search(ctx context.Context, q Query) ([]models.Venue, error) {
	categories := q.Categories
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	ctx, span := otel.Tracer("PlacesSearcher").Start(ctx, "Search", trace.WithAttributes(
		attribute.Float64("center.lat", q.Center.Latitude),
		attribute.Float64("center.lon", q.Center.Longitude),
		attribute.Int("radius", q.RadiusMeters),
		attribute.Int("categories", len(categories)),
	))
	defer span.End()
	start := time.Now()

	batches := make([][]PlaceResult, len(categories))
	failures := make([]error, len(categories))

	var g errgroup.Group
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			results, err := s.searchCategory(ctx, q, category)
			batches[i] = results
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", category, err)
				metrics.Get().PlaceCategoryErrorsTotal.Add(ctx, 1,
					metric.WithAttributes(attribute.String("category", string(category))))
				s.logger.Warn("Place search failed for category",
					zap.String("category", string(category)),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	m := metrics.Get()
	m.PlaceSearchDuration.Record(ctx, time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		m.PlaceSearchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "cancelled")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "search cancelled")
		return []models.Venue{}, err
	}

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	if failed == len(categories) {
		err := fmt.Errorf("%w: %w", models.ErrProviderUnavailable, errors.Join(failures...))
		m.PlaceSearchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "all categories failed")
		return []models.Venue{}, err
	}

	venues := merge(q.Center, batches)
	m.PlaceSearchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	span.SetAttributes(attribute.Int("results", len(venues)), attribute.Int("failed_categories", failed))
	span.SetStatus(codes.Ok, "")
	return venues, nil
}

// searchCategory follows next-page tokens up to MaxPages. A failure after the
// first page keeps what was already collected.
func (s *Searcher) searchCategory(ctx context.Context, q Query, category models.Category) ([]PlaceResult, error) {
	placeType, ok := providerTypes[category]
	if !ok {
		placeType = string(category)
	}

	var (
		results []PlaceResult
		token   string
	)
	for page := 0; page < s.opts.MaxPages; page++ {
		if page > 0 {
			// next_page_token only becomes valid after a short delay.
			if err := sleep(ctx, s.opts.PageDelay); err != nil {
				return results, nil
			}
		}
		p, err := s.provider.NearbySearch(ctx, q.Center, q.RadiusMeters, placeType, token)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			s.logger.Debug("Stopping pagination after page error",
				zap.String("category", string(category)),
				zap.Int("page", page),
				zap.Error(err))
			return results, nil
		}
		results = append(results, p.Results...)
		token = p.NextPageToken
		if token == "" {
			break
		}
	}
	return results, nil
}

func merge(center models.Coordinate, batches [][]PlaceResult) []models.Venue {
	seen := make(map[string]struct{})
	venues := make([]models.Venue, 0)
	for _, batch := range batches {
		for _, raw := range batch {
			if raw.PlaceID == "" {
				continue
			}
			if _, dup := seen[raw.PlaceID]; dup {
				continue
			}
			seen[raw.PlaceID] = struct{}{}
			venues = append(venues, toVenue(raw))
		}
	}
	return geo.WithDistances(center, venues)
}

func toVenue(raw PlaceResult) models.Venue {
	address := raw.Vicinity
	if address == "" {
		address = raw.FormattedAddress
	}
	v := models.Venue{
		ID:      raw.PlaceID,
		Name:    raw.Name,
		Address: address,
		Location: models.Coordinate{
			Latitude:  raw.Geometry.Location.Lat,
			Longitude: raw.Geometry.Location.Lng,
		},
		Category: InferCategory(raw.Types),
		Rating:   raw.Rating,
	}
	if raw.OpeningHours != nil {
		v.OpenNow = raw.OpeningHours.OpenNow
	}
	return v
}

// InferCategory picks a category from provider types: night_club, bar,
// restaurant, cafe, movie_theater, bowling_alley, then the first listed type.
func InferCategory(types []string) models.Category {
	present := make(map[models.Category]bool, len(types))
	for _, t := range types {
		present[models.Category(t)] = true
	}
	for _, c := range inferencePriority {
		if present[c] {
			return c
		}
	}
	if len(types) == 0 {
		return models.CategoryUnknown
	}
	for c, t := range providerTypes {
		if types[0] == t {
			return c
		}
	}
	return models.ParseCategory(types[0])
}

// FetchPlaceDetails returns the extended record for a venue. Any failure
// yields nil and the error; successes are cached.
func (s *Searcher) FetchPlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	if placeID == "" {
		return nil, fmt.Errorf("%w: place id is required", models.ErrBadRequest)
	}
	if cached, found := s.details.Get(placeID); found {
		if d, ok := cached.(*models.PlaceDetails); ok {
			s.logger.Debug("Place details cache hit", zap.String("place_id", placeID))
			return d, nil
		}
	}

	ctx, span := otel.Tracer("PlacesSearcher").Start(ctx, "FetchPlaceDetails", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	details, err := s.provider.Details(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "details fetch failed")
		s.logger.Warn("Failed to fetch place details", zap.String("place_id", placeID), zap.Error(err))
		return nil, err
	}
	if details == nil {
		return nil, fmt.Errorf("%w: empty details for %s", models.ErrProviderUnavailable, placeID)
	}
	s.details.Set(placeID, details, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "")
	return details, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
