// Package favorites keeps the signed-in user's bookmarked venues in memory,
// mirrored to local storage and synchronized with the backend.
package favorites

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-nightout/internal/pkg/storage"
)

// Remote is the favorites slice of the backend API.
type Remote interface {
	Favorites(ctx context.Context, userID string) ([]models.Favorite, error)
	AddFavorite(ctx context.Context, userID string, venue models.Venue) (*models.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, locationID string) error
}

// State is the favorites container. Mutations are remote-first: local state
// only changes after the backend accepted the change.
type State struct {
	remote Remote
	store  storage.Store
	logger *zap.Logger

	mu         sync.RWMutex
	userID     string
	venues     []models.Venue
	generation uint64
	// pending holds mutations accepted while a resync is in flight, keyed by
	// venue id. A nil value is a removal.
	pending map[string]*models.Venue
}

// NewState creates an empty favorites container.
func NewState(remote Remote, store storage.Store, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{remote: remote, store: store, logger: logger}
}

// SetUser reacts to a session change. With no user the set is cleared
// without I/O. A notification for the user already loaded is ignored.
// Otherwise the cached list is shown at once, then replaced by the
// backend's list, which is written back to the cache.
func (s *State) SetUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	if user != nil && user.ID == s.userID {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	if user == nil {
		s.userID = ""
		s.venues = nil
		s.pending = nil
		s.mu.Unlock()
		return nil
	}
	s.userID = user.ID
	s.venues = nil
	s.pending = make(map[string]*models.Venue)
	s.mu.Unlock()

	var cached []models.Venue
	if found, err := s.store.Get(ctx, storage.KeyFavorites, &cached); err != nil {
		s.logger.Warn("Failed to read cached favorites", zap.Error(err))
	} else if found {
		s.replace(gen, cached, false)
	}

	records, err := s.remote.Favorites(ctx, user.ID)
	if err != nil {
		s.logger.Warn("Failed to sync favorites", zap.String("user_id", user.ID), zap.Error(err))
		s.endSync(gen)
		return err
	}
	// The backend stores only id and coordinate, so display fields come back
	// blank after a resync.
	venues := make([]models.Venue, 0, len(records))
	for _, r := range records {
		venues = append(venues, r.Venue())
	}
	merged, ok := s.replace(gen, venues, true)
	if !ok {
		return nil
	}
	s.persist(ctx, merged)
	return nil
}

// Add favorites venue remotely, then locally.
func (s *State) Add(ctx context.Context, venue models.Venue) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}
	if venue.ID == "" {
		return fmt.Errorf("%w: venue id is required", models.ErrValidation)
	}

	_, err = s.remote.AddFavorite(ctx, userID, venue)
	s.record(ctx, "add", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if userID != s.userID {
		s.mu.Unlock()
		return nil
	}
	if indexOf(s.venues, venue.ID) < 0 {
		s.venues = append(s.venues, venue)
	}
	if s.pending != nil {
		v := venue
		s.pending[venue.ID] = &v
	}
	snapshot := append([]models.Venue(nil), s.venues...)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return nil
}

// Remove unfavorites id remotely, then locally.
func (s *State) Remove(ctx context.Context, id string) error {
	userID, err := s.owner()
	if err != nil {
		return err
	}

	err = s.remote.RemoveFavorite(ctx, userID, id)
	s.record(ctx, "remove", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if userID != s.userID {
		s.mu.Unlock()
		return nil
	}
	if i := indexOf(s.venues, id); i >= 0 {
		s.venues = append(s.venues[:i:i], s.venues[i+1:]...)
	}
	if s.pending != nil {
		s.pending[id] = nil
	}
	snapshot := append([]models.Venue(nil), s.venues...)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return nil
}

// IsFavorite tests membership by venue id.
func (s *State) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.venues, id) >= 0
}

// List returns a copy of the favorites.
func (s *State) List() []models.Venue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Venue{}, s.venues...)
}

func (s *State) owner() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" {
		return "", models.ErrNotAuthenticated
	}
	return s.userID, nil
}

// replace installs venues for generation gen, reapplying mutations accepted
// since the resync started. final ends the resync.
func (s *State) replace(gen uint64, venues []models.Venue, final bool) ([]models.Venue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, false
	}
	next := append([]models.Venue(nil), venues...)
	for id, v := range s.pending {
		i := indexOf(next, id)
		switch {
		case v == nil && i >= 0:
			next = append(next[:i:i], next[i+1:]...)
		case v != nil && i >= 0:
			next[i] = *v
		case v != nil:
			next = append(next, *v)
		}
	}
	s.venues = next
	if final {
		s.pending = nil
	}
	return append([]models.Venue(nil), next...), true
}

func (s *State) endSync(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation {
		s.pending = nil
	}
}

func (s *State) persist(ctx context.Context, venues []models.Venue) {
	if err := s.store.Set(ctx, storage.KeyFavorites, venues); err != nil {
		s.logger.Warn("Failed to cache favorites", zap.Error(err))
	}
}

func (s *State) record(ctx context.Context, op string, err error) {
	metrics.Get().FavoritesMutationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("ok", err == nil),
	))
}

func indexOf(venues []models.Venue, id string) int {
	for i, v := range venues {
		if v.ID == id {
			return i
		}
	}
	return -1
}
