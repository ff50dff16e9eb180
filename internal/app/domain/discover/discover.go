// Package discover coordinates the map screen: where to search, which
// categories and radius to use, and which search result is current.
package discover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/geo"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/location"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-nightout/internal/app/services/places"
)

// Searcher runs a merged place search.
type Searcher interface {
	Search(ctx context.Context, q places.Query) ([]models.Venue, error)
}

// Options configures a Controller.
type Options struct {
	DefaultRadius int
	Timeout       time.Duration
	Debounce      time.Duration
}

// Snapshot is the state rendered by the map and list views.
type Snapshot struct {
	Venues     []models.Venue     `json:"venues"`
	Center     *models.Coordinate `json:"center,omitempty"`
	Radius     int                `json:"radius"`
	Categories []models.Category  `json:"categories"`
	Sort       geo.SortMode       `json:"sort"`
	Loading    bool               `json:"loading"`
	Recenter   bool               `json:"recenter"`
	Error      string             `json:"error,omitempty"`
	Err        error              `json:"-"`
	Seq        uint64             `json:"seq"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func (s Snapshot) clone() Snapshot {
	s.Venues = append([]models.Venue{}, s.Venues...)
	s.Categories = append([]models.Category{}, s.Categories...)
	if s.Center != nil {
		c := *s.Center
		s.Center = &c
	}
	return s
}

// Controller owns the search state. Every search gets a sequence number and
// only the latest one may publish results; a superseded search is cancelled.
type Controller struct {
	source   location.Source
	searcher Searcher
	logger   *zap.Logger
	opts     Options

	base   context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        Snapshot
	seq          uint64
	cancelLatest context.CancelFunc
	mounting     bool
	debounce     *time.Timer

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

// NewController creates a Controller with the default categories and radius.
func NewController(source location.Source, searcher Searcher, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = 1500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 800 * time.Millisecond
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		source:   source,
		searcher: searcher,
		logger:   logger,
		opts:     opts,
		base:     base,
		cancel:   cancel,
		state: Snapshot{
			Venues:     []models.Venue{},
			Radius:     opts.DefaultRadius,
			Categories: append([]models.Category{}, places.DefaultCategories...),
			Sort:       geo.SortByDistance,
		},
		listeners: make(map[int]func(Snapshot)),
	}
}

// Close cancels pending debounced and in-flight searches.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.mu.Unlock()
	c.cancel()
}

// Subscribe registers fn for snapshot changes.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.listenersMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenersMu.Unlock()
	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Mount locates the user and searches, recentering the map. A second call
// while one is running returns immediately.
func (c *Controller) Mount(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.mounting {
		snap := c.state.clone()
		c.mu.Unlock()
		return snap, nil
	}
	c.mounting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.mounting = false
		c.mu.Unlock()
	}()
	return c.run(ctx, true, true)
}

// Focus is Mount for an app returning to the foreground.
func (c *Controller) Focus(ctx context.Context) (Snapshot, error) {
	return c.Mount(ctx)
}

// Refresh re-locates and searches without recentering.
func (c *Controller) Refresh(ctx context.Context) (Snapshot, error) {
	return c.run(ctx, false, true)
}

// SetCategories changes the filter and searches again without recentering.
// An empty list means the default categories.
func (c *Controller) SetCategories(ctx context.Context, categories []models.Category) (Snapshot, error) {
	next := make([]models.Category, 0, len(categories))
	for _, cat := range categories {
		if !cat.Valid() {
			return c.Snapshot(), fmt.Errorf("%w: unknown category %q", models.ErrValidation, cat)
		}
		next = append(next, cat)
	}
	if len(next) == 0 {
		next = append(next, places.DefaultCategories...)
	}

	c.mu.Lock()
	c.state.Categories = next
	c.mu.Unlock()
	return c.run(ctx, false, false)
}

// SetRadius stores the radius and schedules a search after the debounce
// delay. Calls within the delay restart it.
func (c *Controller) SetRadius(radius int) error {
	if radius <= 0 {
		return fmt.Errorf("%w: radius must be positive", models.ErrValidation)
	}
	c.mu.Lock()
	c.state.Radius = radius
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.opts.Debounce, func() {
		if _, err := c.run(c.base, false, false); err != nil {
			c.logger.Debug("Radius search failed", zap.Error(err))
		}
	})
	snap := c.state.clone()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetSort reorders the current results.
func (c *Controller) SetSort(mode geo.SortMode) error {
	switch mode {
	case geo.SortByDistance, geo.SortByRating, geo.SortByName:
	default:
		return fmt.Errorf("%w: unknown sort %q", models.ErrValidation, mode)
	}
	c.mu.Lock()
	c.state.Sort = mode
	geo.Sort(c.state.Venues, mode)
	snap := c.state.clone()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// run performs one search. locate forces a fresh position; otherwise the
// last center is reused when there is one.
func (c *Controller) run(parent context.Context, recenter, locate bool) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(parent, c.opts.Timeout)
	defer cancel()

	c.mu.Lock()
	c.seq++
	seq := c.seq
	if c.cancelLatest != nil {
		c.cancelLatest()
	}
	c.cancelLatest = cancel
	c.state.Loading = true
	c.state.Seq = seq
	radius := c.state.Radius
	categories := append([]models.Category(nil), c.state.Categories...)
	var center *models.Coordinate
	if c.state.Center != nil && !locate {
		cc := *c.state.Center
		center = &cc
	}
	loading := c.state.clone()
	c.mu.Unlock()
	c.notify(loading)

	var (
		venues []models.Venue
		err    error
	)
	if center == nil {
		var pos models.Coordinate
		pos, err = c.source.CurrentPosition(ctx)
		if err == nil {
			center = &pos
		}
	}
	if err == nil {
		venues, err = c.searcher.Search(ctx, places.Query{
			Center:       *center,
			RadiusMeters: radius,
			Categories:   categories,
		})
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		err = fmt.Errorf("%w: %w", models.ErrSearchTimeout, err)
	}

	return c.finish(ctx, seq, center, venues, recenter, err)
}

func (c *Controller) finish(ctx context.Context, seq uint64, center *models.Coordinate, venues []models.Venue, recenter bool, err error) (Snapshot, error) {
	c.mu.Lock()
	if seq != c.seq {
		snap := c.state.clone()
		c.mu.Unlock()
		metrics.Get().StaleSearchResultsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("error", err != nil)))
		c.logger.Debug("Discarding stale search result", zap.Uint64("seq", seq), zap.Uint64("latest", snap.Seq))
		return snap, nil
	}

	c.cancelLatest = nil
	c.state.Loading = false
	c.state.UpdatedAt = time.Now()
	if center != nil {
		c.state.Center = center
	}
	if err != nil {
		c.state.Err = err
		c.state.Error = models.UserMessage(err)
		c.state.Recenter = false
	} else {
		geo.Sort(venues, c.state.Sort)
		c.state.Venues = venues
		c.state.Err = nil
		c.state.Error = ""
		c.state.Recenter = recenter
	}
	snap := c.state.clone()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Place search failed", zap.Uint64("seq", seq), zap.Error(err))
	}
	c.notify(snap)
	return snap, err
}

func (c *Controller) notify(snap Snapshot) {
	c.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()
	for _, fn := range fns {
		fn(snap.clone())
	}
}
