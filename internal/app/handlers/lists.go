package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/checkins"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

var checkinsClear = checkins.Action{Type: checkins.ActionClear}

type moveRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

type saveRouteRequest struct {
	Name string `json:"name"`
}

type chatRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListFavorites lists the user's favorites.
func (h *Handlers) ListFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"favorites": h.Favorites.List()})
}

// AddFavorite bookmarks a venue.
func (h *Handlers) AddFavorite(c *gin.Context) {
	var venue models.Venue
	if !h.bind(c, &venue) {
		return
	}
	if err := h.Favorites.Add(c.Request.Context(), venue); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"favorites": h.Favorites.List()})
}

// RemoveFavorite removes a bookmark.
func (h *Handlers) RemoveFavorite(c *gin.Context) {
	if err := h.Favorites.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": h.Favorites.List()})
}

// GetRoute returns the working route.
func (h *Handlers) GetRoute(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"locations": h.Route.Current()})
}

// AddStop appends a venue to the route.
func (h *Handlers) AddStop(c *gin.Context) {
	var loc models.RouteLocation
	if !h.bind(c, &loc) {
		return
	}
	if loc.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	added := h.Route.Add(loc)
	c.JSON(http.StatusOK, gin.H{"added": added, "locations": h.Route.Current()})
}

// RemoveStop removes a venue from the route.
func (h *Handlers) RemoveStop(c *gin.Context) {
	h.Route.Remove(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"locations": h.Route.Current()})
}

// ReplaceRoute sets the whole ordered route.
func (h *Handlers) ReplaceRoute(c *gin.Context) {
	var locs []models.RouteLocation
	if !h.bind(c, &locs) {
		return
	}
	h.Route.Update(locs)
	c.JSON(http.StatusOK, gin.H{"locations": h.Route.Current()})
}

// MoveStop moves one stop.
func (h *Handlers) MoveStop(c *gin.Context) {
	var req moveRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Route.Move(*req.From, *req.To); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": h.Route.Current()})
}

// ClearRoute empties the route.
func (h *Handlers) ClearRoute(c *gin.Context) {
	h.Route.Clear()
	c.Status(http.StatusNoContent)
}

// SaveRoute snapshots the route under a name.
func (h *Handlers) SaveRoute(c *gin.Context) {
	var req saveRouteRequest
	if !h.bind(c, &req) {
		return
	}
	saved, ok := h.Route.Save(req.Name)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"saved": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"saved": true, "route": saved})
}

// SavedRoutes lists the saved snapshots.
func (h *Handlers) SavedRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"routes": h.Route.Saved()})
}

// DeleteSavedRoute removes a snapshot.
func (h *Handlers) DeleteSavedRoute(c *gin.Context) {
	if !h.Route.DeleteSaved(c.Param("id")) {
		h.fail(c, models.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// Directions returns walking directions through the working route.
func (h *Handlers) Directions(c *gin.Context) {
	d, err := h.Route.Legs(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListCheckIns lists the local check-in log.
func (h *Handlers) ListCheckIns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"checkins": h.CheckIns.List()})
}

// RemoveCheckIn drops a log entry.
func (h *Handlers) RemoveCheckIn(c *gin.Context) {
	h.CheckIns.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// SendChat posts a message to the assistant.
func (h *Handlers) SendChat(c *gin.Context) {
	var req chatRequest
	if !h.bind(c, &req) {
		return
	}
	reply, err := h.Chat.Send(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ChatHistory returns the transcript.
func (h *Handlers) ChatHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.Chat.History()})
}

// ResetChat clears the transcript.
func (h *Handlers) ResetChat(c *gin.Context) {
	h.Chat.Reset()
	c.Status(http.StatusNoContent)
}
