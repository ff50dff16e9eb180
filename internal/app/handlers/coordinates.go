package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-nightout/internal/app/middleware"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

func (h *Handlers) sharedOwner(c *gin.Context) (string, bool) {
	user := middleware.GetUserFromContext(c)
	if user == nil {
		h.fail(c, models.ErrNotAuthenticated)
		return "", false
	}
	return user.ID, true
}

// SharedCoordinate returns the signed-in user's shared coordinate record.
func (h *Handlers) SharedCoordinate(c *gin.Context) {
	userID, ok := h.sharedOwner(c)
	if !ok {
		return
	}
	coord, err := h.Shared.Coordinate(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, coord)
}

// ShareCoordinate writes the shared coordinate record.
func (h *Handlers) ShareCoordinate(c *gin.Context) {
	userID, ok := h.sharedOwner(c)
	if !ok {
		return
	}
	var req coordinateRequest
	if !h.bind(c, &req) {
		return
	}
	coord, err := h.Shared.SetCoordinate(c.Request.Context(), userID, models.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, coord)
}

// UnshareCoordinate deletes the shared coordinate record.
func (h *Handlers) UnshareCoordinate(c *gin.Context) {
	userID, ok := h.sharedOwner(c)
	if !ok {
		return
	}
	if err := h.Shared.ClearCoordinate(c.Request.Context(), userID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
