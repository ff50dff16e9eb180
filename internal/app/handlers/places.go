package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/geo"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

type coordinateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

type categoriesRequest struct {
	Categories []string `json:"categories"`
}

type radiusRequest struct {
	Radius int `json:"radius" binding:"required"`
}

type sortRequest struct {
	Sort string `json:"sort" binding:"required"`
}

// Places returns the current search snapshot.
func (h *Handlers) Places(c *gin.Context) {
	c.JSON(http.StatusOK, h.Discover.Snapshot())
}

// MountPlaces locates the user and searches, recentering the map.
func (h *Handlers) MountPlaces(c *gin.Context) {
	snap, err := h.Discover.Mount(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RefreshPlaces re-locates and searches without recentering.
func (h *Handlers) RefreshPlaces(c *gin.Context) {
	snap, err := h.Discover.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetCategories changes the category filter.
func (h *Handlers) SetCategories(c *gin.Context) {
	var req categoriesRequest
	if !h.bind(c, &req) {
		return
	}
	cats := make([]models.Category, 0, len(req.Categories))
	for _, raw := range req.Categories {
		cats = append(cats, models.ParseCategory(raw))
	}
	snap, err := h.Discover.SetCategories(c.Request.Context(), cats)
	if err != nil {
		c.JSON(statusFor(err), snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// SetRadius schedules a debounced search at a new radius.
func (h *Handlers) SetRadius(c *gin.Context) {
	var req radiusRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Discover.SetRadius(req.Radius); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.Discover.Snapshot())
}

// SetSort reorders the results.
func (h *Handlers) SetSort(c *gin.Context) {
	var req sortRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Discover.SetSort(geo.SortMode(req.Sort)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Discover.Snapshot())
}

// PlaceDetails loads the extended record of a venue.
func (h *Handlers) PlaceDetails(c *gin.Context) {
	details, err := h.Details.FetchPlaceDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// UpdateLocation feeds a device fix into the location tracker.
func (h *Handlers) UpdateLocation(c *gin.Context) {
	var req coordinateRequest
	if !h.bind(c, &req) {
		return
	}
	h.Location.Update(models.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude})
	c.Status(http.StatusNoContent)
}

// DenyLocation records that location permission was refused.
func (h *Handlers) DenyLocation(c *gin.Context) {
	h.Location.Deny()
	c.Status(http.StatusNoContent)
}

// Foreground handles the app returning to the foreground: presence and
// places are both refreshed.
func (h *Handlers) Foreground(c *gin.Context) {
	if h.Presence != nil {
		h.Presence.Trigger()
	}
	snap, err := h.Discover.Focus(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}
