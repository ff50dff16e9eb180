// Package presence keeps the nearby-users set fresh. Consumers depend on
// Refresher only, so polling can be swapped for a push subscription.
package presence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

// Target is what a refresher keeps up to date.
type Target interface {
	User() *models.User
	RefreshPresence(ctx context.Context) []models.User
}

// Refresher runs until ctx ends. Trigger asks for an immediate refresh, as
// when the app returns to the foreground.
type Refresher interface {
	Run(ctx context.Context) error
	Trigger()
}

// UpdateFunc receives the users returned by each refresh.
type UpdateFunc func(users []models.User)

// Poller refreshes on a fixed interval and on Trigger.
type Poller struct {
	target   Target
	interval time.Duration
	trigger  chan struct{}
	logger   *zap.Logger

	mu       sync.Mutex
	onUpdate []UpdateFunc
}

// NewPoller creates a Poller. interval <= 0 means 10 seconds.
func NewPoller(target Target, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		target:   target,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// OnUpdate registers fn to receive refresh results.
func (p *Poller) OnUpdate(fn UpdateFunc) {
	p.mu.Lock()
	p.onUpdate = append(p.onUpdate, fn)
	p.mu.Unlock()
}

// Trigger implements Refresher. Triggers coalesce while one is pending.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run implements Refresher.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Presence poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Presence poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.trigger:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	if _, ok := p.target.User().Coordinate(); !ok {
		return
	}
	users := p.target.RefreshPresence(ctx)

	p.mu.Lock()
	fns := append([]UpdateFunc(nil), p.onUpdate...)
	p.mu.Unlock()
	for _, fn := range fns {
		fn(users)
	}
}
