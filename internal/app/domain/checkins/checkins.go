// Package checkins is the in-memory log of check-in events shown in the
// "checked in" list. It is never persisted or sent to the backend.
package checkins

import (
	"fmt"
	"sync"
	"time"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

// ActionType names a log mutation.
type ActionType string

const (
	ActionAdd    ActionType = "add"
	ActionRemove ActionType = "remove"
	ActionClear  ActionType = "clear"
)

// Action is dispatched to the log. Entry is used by add, ID by remove.
type Action struct {
	Type  ActionType
	Entry models.CheckIn
	ID    string
}

// Log holds check-in entries, newest last.
type Log struct {
	mu      sync.RWMutex
	entries []models.CheckIn
	now     func() time.Time
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Dispatch applies a to the log.
func (l *Log) Dispatch(a Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch a.Type {
	case ActionAdd:
		l.entries = append(l.entries, a.Entry)
	case ActionRemove:
		l.removeLocked(a.ID)
	case ActionClear:
		l.entries = nil
	default:
		return fmt.Errorf("%w: unknown check-in action %q", models.ErrValidation, a.Type)
	}
	return nil
}

// Add records a check-in at venue and returns the entry. The id is the venue
// id joined with the creation time.
func (l *Log) Add(userID string, venue models.Venue) models.CheckIn {
	now := l.now()
	entry := models.CheckIn{
		ID:        fmt.Sprintf("%s-%d", venue.ID, now.UnixMilli()),
		UserID:    userID,
		Venue:     venue,
		Timestamp: now,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry
}

// Remove drops the entry with id. Unknown ids are ignored.
func (l *Log) Remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(id)
}

func (l *Log) removeLocked(id string) {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
			return
		}
	}
}

// List returns a copy of the entries.
func (l *Log) List() []models.CheckIn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.CheckIn{}, l.entries...)
}

// IsCheckedIn reports whether any entry is for venueID.
func (l *Log) IsCheckedIn(venueID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.Venue.ID == venueID {
			return true
		}
	}
	return false
}
