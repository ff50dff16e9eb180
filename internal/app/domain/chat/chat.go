// Package chat is the placeholder assistant behind the chat screen. It keeps
// an in-memory transcript and answers with canned replies.
package chat

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

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

const maxMessageLength = 2000

// reply keywords map onto venue categories so the placeholder can point the
// user at the right filter.
var replyKeywords = map[string]models.Category{
	"drink":   models.CategoryBar,
	"bar":     models.CategoryBar,
	"beer":    models.CategoryBar,
	"eat":     models.CategoryRestaurant,
	"dinner":  models.CategoryRestaurant,
	"food":    models.CategoryRestaurant,
	"dance":   models.CategoryNightClub,
	"club":    models.CategoryNightClub,
	"coffee":  models.CategoryCafe,
	"movie":   models.CategoryMovieTheater,
	"film":    models.CategoryMovieTheater,
	"bowling": models.CategoryBowlingAlley,
	"sleep":   models.CategoryHotel,
	"hotel":   models.CategoryHotel,
}

// Assistant holds one conversation.
type Assistant struct {
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	history []Message
}

// NewAssistant creates an empty conversation.
func NewAssistant(logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{logger: logger, now: time.Now}
}

// Send appends text and the assistant's reply to the transcript and returns
// the reply.
func (a *Assistant) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, fmt.Errorf("%w: message is empty", models.ErrValidation)
	}
	if len(text) > maxMessageLength {
		return Message{}, fmt.Errorf("%w: message longer than %d characters", models.ErrValidation, maxMessageLength)
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	now := a.now()
	question := Message{ID: uuid.NewString(), Role: RoleUser, Text: text, CreatedAt: now}
	answer := Message{ID: uuid.NewString(), Role: RoleAssistant, Text: replyTo(text), CreatedAt: now}

	a.mu.Lock()
	a.history = append(a.history, question, answer)
	a.mu.Unlock()

	a.logger.Debug("Chat message answered", zap.Int("length", len(text)))
	return answer, nil
}

// History returns a copy of the transcript.
func (a *Assistant) History() []Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Message{}, a.history...)
}

// Reset clears the transcript.
func (a *Assistant) Reset() {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
}

func replyTo(text string) string {
	lower := strings.ToLower(text)
	for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z')
	}) {
		word = strings.TrimSuffix(word, "s")
		if c, ok := replyKeywords[word]; ok {
			return fmt.Sprintf("Try the %s filter on the map to see what's open near you.", c.Label())
		}
	}
	return "I'm still learning. For now, use the map to find places nearby and add them to your route."
}
