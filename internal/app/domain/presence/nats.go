package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/geo"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/pkg/debugger"
)

// DefaultEventRadius is how close a check-in event must be to the user to
// cause a refresh.
const DefaultEventRadius = 50.0

// Event is published on the presence subject when a user checks in or out.
type Event struct {
	UserID    string    `json:"userId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CheckedIn bool      `json:"checkedIn"`
	At        time.Time `json:"at"`
}

type subscribeFunc func(subject string, handler nats.MsgHandler) (unsubscribe func() error, err error)

// NATSSubscriber refreshes when a presence event lands near the user. It
// reuses a Poller for the refresh loop, so Trigger and the interval still
// apply.
type NATSSubscriber struct {
	*Poller
	subject   string
	radius    float64
	subscribe subscribeFunc
}

// NewNATSSubscriber listens on subject over nc. Set interval to a long value
// to rely mostly on events.
func NewNATSSubscriber(nc *nats.Conn, subject string, target Target, interval time.Duration, logger *zap.Logger) *NATSSubscriber {
	return newNATSSubscriber(func(subj string, h nats.MsgHandler) (func() error, error) {
		sub, err := nc.Subscribe(subj, h)
		if err != nil {
			return nil, err
		}
		return sub.Unsubscribe, nil
	}, subject, target, interval, logger)
}

func newNATSSubscriber(subscribe subscribeFunc, subject string, target Target, interval time.Duration, logger *zap.Logger) *NATSSubscriber {
	return &NATSSubscriber{
		Poller:    NewPoller(target, interval, logger),
		subject:   subject,
		radius:    DefaultEventRadius,
		subscribe: subscribe,
	}
}

// Run implements Refresher.
func (s *NATSSubscriber) Run(ctx context.Context) error {
	unsubscribe, err := s.subscribe(s.subject, s.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	defer func() {
		if err := unsubscribe(); err != nil {
			s.logger.Debug("Presence unsubscribe failed", zap.Error(err))
		}
	}()
	s.logger.Info("Subscribed to presence events", zap.String("subject", s.subject))
	return s.Poller.Run(ctx)
}

func (s *NATSSubscriber) handle(msg *nats.Msg) {
	debugger.LogEvent(s.logger, msg.Subject, msg.Data)
	var ev Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		s.logger.Debug("Ignoring malformed presence event", zap.Error(err))
		return
	}
	user := s.target.User()
	at, ok := user.Coordinate()
	if !ok || ev.UserID == user.ID {
		return
	}
	if geo.AreCoordinatesClose(at, models.Coordinate{Latitude: ev.Latitude, Longitude: ev.Longitude}, s.radius) {
		s.Trigger()
	}
}

// Publisher is the subset of *nats.Conn used by Announcer.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Announcer publishes an Event whenever the user's check-in coordinate
// changes. Pass Announce to the session's Subscribe.
type Announcer struct {
	pub     Publisher
	subject string
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	last *Event
}

// NewAnnouncer creates an Announcer publishing on subject.
func NewAnnouncer(pub Publisher, subject string, logger *zap.Logger) *Announcer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Announcer{pub: pub, subject: subject, logger: logger, now: time.Now}
}

// Announce handles a user change.
func (a *Announcer) Announce(user *models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var next *Event
	if c, ok := user.Coordinate(); ok {
		next = &Event{UserID: user.ID, Latitude: c.Latitude, Longitude: c.Longitude, CheckedIn: true}
	} else if a.last != nil && a.last.CheckedIn {
		next = &Event{UserID: a.last.UserID, Latitude: a.last.Latitude, Longitude: a.last.Longitude}
	}
	if next == nil || (a.last != nil && sameEvent(*a.last, *next)) {
		return
	}
	next.At = a.now()

	data, err := json.Marshal(next)
	if err != nil {
		a.logger.Warn("Failed to encode presence event", zap.Error(err))
		return
	}
	if err := a.pub.Publish(a.subject, data); err != nil {
		a.logger.Warn("Failed to publish presence event", zap.Error(err))
		return
	}
	a.last = next
}

func sameEvent(a, b Event) bool {
	return a.UserID == b.UserID && a.CheckedIn == b.CheckedIn &&
		a.Latitude == b.Latitude && a.Longitude == b.Longitude
}
