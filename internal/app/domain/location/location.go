// Package location supplies the device position to the search and check-in
// flows.
package location

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

// Source reports the current position on demand.
type Source interface {
	CurrentPosition(ctx context.Context) (models.Coordinate, error)
}

// Tracker is a Source fed by the UI shell. CurrentPosition blocks until a
// first fix arrives, permission is denied, or ctx ends.
type Tracker struct {
	mu      sync.Mutex
	pos     *models.Coordinate
	at      time.Time
	denied  bool
	changed chan struct{}
	logger  *zap.Logger
}

// NewTracker creates a Tracker with no fix. A non-nil seed is used as the
// initial position.
func NewTracker(seed *models.Coordinate, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{changed: make(chan struct{}), logger: logger}
	if seed != nil {
		c := *seed
		t.pos = &c
		t.at = time.Now()
	}
	return t
}

// Update records a new fix and grants permission.
func (t *Tracker) Update(c models.Coordinate) {
	t.mu.Lock()
	t.pos = &c
	t.at = time.Now()
	t.denied = false
	t.notifyLocked()
	t.mu.Unlock()
}

// Deny marks location permission as refused.
func (t *Tracker) Deny() {
	t.mu.Lock()
	t.denied = true
	t.notifyLocked()
	t.mu.Unlock()
	t.logger.Info("Location permission denied")
}

// Grant clears a previous denial without supplying a fix.
func (t *Tracker) Grant() {
	t.mu.Lock()
	t.denied = false
	t.notifyLocked()
	t.mu.Unlock()
}

// Last returns the most recent fix and when it was taken.
func (t *Tracker) Last() (models.Coordinate, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pos == nil {
		return models.Coordinate{}, time.Time{}, false
	}
	return *t.pos, t.at, true
}

// CurrentPosition implements Source.
func (t *Tracker) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	for {
		t.mu.Lock()
		denied, pos, changed := t.denied, t.pos, t.changed
		t.mu.Unlock()

		switch {
		case denied:
			return models.Coordinate{}, models.ErrPermissionDenied
		case pos != nil:
			return *pos, nil
		}

		select {
		case <-ctx.Done():
			return models.Coordinate{}, fmt.Errorf("%w: %w", models.ErrLocationUnavailable, ctx.Err())
		case <-changed:
		}
	}
}

func (t *Tracker) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Static always reports the same coordinate.
type Static models.Coordinate

// CurrentPosition implements Source.
func (s Static) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinate{}, err
	}
	return models.Coordinate(s), nil
}
