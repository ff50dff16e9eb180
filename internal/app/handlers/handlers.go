// Package handlers exposes the client state containers as a local JSON API
// for the UI shell.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/chat"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/checkins"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/discover"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/favorites"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/location"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/presence"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/routeplan"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/session"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

// DetailsFetcher loads the extended record of a venue.
type DetailsFetcher interface {
	FetchPlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

// CoordinateStore manages the user's standalone shared-coordinate record.
type CoordinateStore interface {
	Coordinate(ctx context.Context, userID string) (*models.SharedCoordinate, error)
	SetCoordinate(ctx context.Context, userID string, coord models.Coordinate) (*models.SharedCoordinate, error)
	ClearCoordinate(ctx context.Context, userID string) error
}

// Deps are the state containers served by the API.
type Deps struct {
	Session   *session.Service
	Favorites *favorites.State
	Route     *routeplan.Planner
	CheckIns  *checkins.Log
	Discover  *discover.Controller
	Details   DetailsFetcher
	Shared    CoordinateStore
	Chat      *chat.Assistant
	Location  *location.Tracker
	Presence  presence.Refresher
	Hub       *PresenceHub
}

// Handlers holds the gin handlers.
type Handlers struct {
	Deps
	logger *zap.Logger
}

// New creates the handlers.
func New(deps Deps, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Hub == nil {
		deps.Hub = NewPresenceHub(logger)
	}
	return &Handlers{Deps: deps, logger: logger}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotAuthenticated),
		errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSearchTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, models.ErrLocationUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": models.UserMessage(err)})
}

func (h *Handlers) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
