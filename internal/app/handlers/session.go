package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type checkInRequest struct {
	Latitude  *float64      `json:"latitude" binding:"required"`
	Longitude *float64      `json:"longitude" binding:"required"`
	Venue     *models.Venue `json:"venue,omitempty"`
}

type sessionResponse struct {
	User        *models.User       `json:"user"`
	NearbyUsers []models.User      `json:"nearbyUsers"`
	CheckingIn  bool               `json:"checkingIn"`
	Optimistic  *models.Coordinate `json:"optimisticCoordinate,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func (h *Handlers) sessionState() sessionResponse {
	resp := sessionResponse{
		User:        h.Session.User(),
		NearbyUsers: h.Session.NearbyUsers(),
		CheckingIn:  h.Session.IsCheckingIn(),
		Error:       models.UserMessage(h.Session.LastError()),
	}
	if resp.NearbyUsers == nil {
		resp.NearbyUsers = []models.User{}
	}
	if c, ok := h.Session.OptimisticCoordinate(); ok {
		resp.Optimistic = &c
	}
	return resp
}

// GetSession returns the session state.
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionState())
}

// Login signs in with email and password.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	if _, err := h.Session.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionState())
}

// Register creates an account and signs in.
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	if _, err := h.Session.Register(c.Request.Context(), req.Name, req.Email, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.sessionState())
}

// Logout always succeeds locally.
func (h *Handlers) Logout(c *gin.Context) {
	h.Session.Logout(c.Request.Context())
	_ = h.CheckIns.Dispatch(checkinsClear)
	c.Status(http.StatusNoContent)
}

// DeleteAccount removes the account and signs out on success.
func (h *Handlers) DeleteAccount(c *gin.Context) {
	if err := h.Session.DeleteAccount(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	_ = h.CheckIns.Dispatch(checkinsClear)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CheckIn checks the user in at a coordinate, and logs the venue if given.
func (h *Handlers) CheckIn(c *gin.Context) {
	var req checkInRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Session.CheckIn(c.Request.Context(), *req.Latitude, *req.Longitude); err != nil {
		h.fail(c, err)
		return
	}
	if req.Venue != nil && req.Venue.ID != "" {
		if u := h.Session.User(); u != nil {
			h.CheckIns.Add(u.ID, *req.Venue)
		}
	}
	h.Hub.Broadcast(h.Session.NearbyUsers())
	c.JSON(http.StatusOK, h.sessionState())
}

// CheckOut clears the user's check-in.
func (h *Handlers) CheckOut(c *gin.Context) {
	if err := h.Session.CheckOut(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.Hub.Broadcast([]models.User{})
	c.JSON(http.StatusOK, h.sessionState())
}

// CheckInStatus answers whether the user is checked in at the coordinate.
func (h *Handlers) CheckInStatus(c *gin.Context) {
	coord, ok := h.coordinateQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"checkedIn":  h.Session.IsCheckedInAt(coord),
		"checkingIn": h.Session.IsCheckingIn(),
	})
}

// UsersNearby replaces and returns the nearby-users set.
func (h *Handlers) UsersNearby(c *gin.Context) {
	coord, ok := h.coordinateQuery(c)
	if !ok {
		return
	}
	users := h.Session.GetUsersNearby(c.Request.Context(), coord.Latitude, coord.Longitude, floatQuery(c, "radius"))
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UsersAtLocation returns the users at a venue.
func (h *Handlers) UsersAtLocation(c *gin.Context) {
	coord, ok := h.coordinateQuery(c)
	if !ok {
		return
	}
	users := h.Session.GetUsersAtLocation(c.Request.Context(), coord.Latitude, coord.Longitude, floatQuery(c, "radius"))
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// RefreshPresence asks the presence refresher for an immediate update.
func (h *Handlers) RefreshPresence(c *gin.Context) {
	if h.Presence != nil {
		h.Presence.Trigger()
	}
	c.Status(http.StatusAccepted)
}

func (h *Handlers) coordinateQuery(c *gin.Context) (models.Coordinate, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("longitude"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return models.Coordinate{}, false
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}, true
}

func floatQuery(c *gin.Context, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil {
		return 0
	}
	return v
}
