// Package routeplan holds the ordered working route and its saved
// snapshots. Nothing here is persisted.
package routeplan

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

// Router computes directions through ordered stops.
type Router interface {
	Route(ctx context.Context, stops []models.Coordinate) (*models.Directions, error)
}

// Planner is the route planning state container.
type Planner struct {
	router Router
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current []models.RouteLocation
	saved   []models.SavedRoute
}

// NewPlanner creates an empty planner. router may be nil, in which case Legs
// reports the provider as unavailable.
func NewPlanner(router Router, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{router: router, logger: logger, now: time.Now}
}

// Add appends loc unless its id is already in the route. It reports whether
// the route changed.
func (p *Planner) Add(loc models.RouteLocation) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if indexOf(p.current, loc.ID) >= 0 {
		return false
	}
	p.current = append(p.current, loc)
	return true
}

// Remove drops id from the route. Unknown ids are ignored.
func (p *Planner) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := indexOf(p.current, id)
	if i < 0 {
		return false
	}
	p.current = append(p.current[:i:i], p.current[i+1:]...)
	return true
}

// Clear empties the route.
func (p *Planner) Clear() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

// Update replaces the whole ordered route, as after a drag-and-drop reorder.
// Later duplicates of an id are dropped.
func (p *Planner) Update(locations []models.RouteLocation) {
	seen := make(map[string]struct{}, len(locations))
	next := make([]models.RouteLocation, 0, len(locations))
	for _, loc := range locations {
		if _, dup := seen[loc.ID]; dup {
			continue
		}
		seen[loc.ID] = struct{}{}
		next = append(next, loc)
	}

	p.mu.Lock()
	p.current = next
	p.mu.Unlock()
}

// Move shifts the stop at index from to index to.
func (p *Planner) Move(from, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.current)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d out of range for %d stops", models.ErrValidation, from, to, n)
	}
	if from == to {
		return nil
	}
	loc := p.current[from]
	rest := append(p.current[:from:from], p.current[from+1:]...)
	next := make([]models.RouteLocation, 0, n)
	next = append(next, rest[:to]...)
	next = append(next, loc)
	next = append(next, rest[to:]...)
	p.current = next
	return nil
}

// Current returns a copy of the working route.
func (p *Planner) Current() []models.RouteLocation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.RouteLocation{}, p.current...)
}

// Save snapshots the working route under name. An empty route saves nothing
// and returns false. Names need not be unique.
func (p *Planner) Save(name string) (models.SavedRoute, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.current) == 0 {
		return models.SavedRoute{}, false
	}
	route := models.SavedRoute{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Locations: append([]models.RouteLocation(nil), p.current...),
		CreatedAt: p.now(),
	}
	p.saved = append(p.saved, route)
	p.logger.Debug("Route saved", zap.String("route_id", route.ID), zap.Int("stops", len(route.Locations)))
	return route.Clone(), true
}

// DeleteSaved removes a saved route by id.
func (p *Planner) DeleteSaved(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, r := range p.saved {
		if r.ID == id {
			p.saved = append(p.saved[:i:i], p.saved[i+1:]...)
			return true
		}
	}
	return false
}

// Saved returns copies of the saved routes, oldest first.
func (p *Planner) Saved() []models.SavedRoute {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.SavedRoute, len(p.saved))
	for i, r := range p.saved {
		out[i] = r.Clone()
	}
	return out
}

// Legs asks the router for directions through the working route.
func (p *Planner) Legs(ctx context.Context) (*models.Directions, error) {
	current := p.Current()
	if len(current) < 2 {
		return nil, fmt.Errorf("%w: a route needs at least two stops", models.ErrValidation)
	}
	if p.router == nil {
		return nil, fmt.Errorf("%w: no directions provider configured", models.ErrProviderUnavailable)
	}
	stops := make([]models.Coordinate, len(current))
	for i, loc := range current {
		stops[i] = loc.Location
	}
	return p.router.Route(ctx, stops)
}

func indexOf(locs []models.RouteLocation, id string) int {
	for i, l := range locs {
		if l.ID == id {
			return i
		}
	}
	return -1
}
