package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/handlers"
	"github.com/FACorreiaa/go-nightout/internal/app/middleware"
)

// Setup registers the companion API on r.
func Setup(r *gin.Engine, h *handlers.Handlers, log *zap.Logger) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")

	// Session
	sessionGroup := api.Group("/session")
	{
		sessionGroup.GET("", h.GetSession)
		sessionGroup.POST("/login", h.Login)
		sessionGroup.POST("/register", h.Register)
		sessionGroup.POST("/logout", h.Logout)
	}

	// Device signals
	api.POST("/location", h.UpdateLocation)
	api.POST("/location/deny", h.DenyLocation)
	api.POST("/foreground", h.Foreground)

	api.GET("/checkin/status", h.CheckInStatus)

	// Places
	placesGroup := api.Group("/places")
	{
		placesGroup.GET("", h.Places)
		placesGroup.POST("/mount", h.MountPlaces)
		placesGroup.POST("/refresh", h.RefreshPlaces)
		placesGroup.PUT("/categories", h.SetCategories)
		placesGroup.PUT("/radius", h.SetRadius)
		placesGroup.PUT("/sort", h.SetSort)
		placesGroup.GET("/:id/details", h.PlaceDetails)
		placesGroup.GET("/users", h.UsersAtLocation)
	}

	// Route planner
	routeGroup := api.Group("/route")
	{
		routeGroup.GET("", h.GetRoute)
		routeGroup.PUT("", h.ReplaceRoute)
		routeGroup.DELETE("", h.ClearRoute)
		routeGroup.POST("/stops", h.AddStop)
		routeGroup.DELETE("/stops/:id", h.RemoveStop)
		routeGroup.POST("/move", h.MoveStop)
		routeGroup.GET("/directions", h.Directions)
		routeGroup.POST("/saved", h.SaveRoute)
		routeGroup.GET("/saved", h.SavedRoutes)
		routeGroup.DELETE("/saved/:id", h.DeleteSavedRoute)
	}

	// Chat
	chatGroup := api.Group("/chat")
	{
		chatGroup.GET("", h.ChatHistory)
		chatGroup.POST("", h.SendChat)
		chatGroup.DELETE("", h.ResetChat)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(middleware.RequireSession(h.Session))
	{
		protected.DELETE("/account", h.DeleteAccount)

		protected.POST("/checkin", h.CheckIn)
		protected.POST("/checkout", h.CheckOut)
		protected.GET("/checkins", h.ListCheckIns)
		protected.DELETE("/checkins/:id", h.RemoveCheckIn)

		protected.GET("/presence/nearby", h.UsersNearby)
		protected.POST("/presence/refresh", h.RefreshPresence)

		protected.GET("/coordinates", h.SharedCoordinate)
		protected.PUT("/coordinates", h.ShareCoordinate)
		protected.DELETE("/coordinates", h.UnshareCoordinate)

		protected.GET("/favorites", h.ListFavorites)
		protected.POST("/favorites", h.AddFavorite)
		protected.DELETE("/favorites/:id", h.RemoveFavorite)
	}

	wsRateLimiter := middleware.NewRateLimiter(log, 10, time.Minute)
	r.GET("/ws/presence", middleware.RateLimitMiddleware(wsRateLimiter), h.PresenceSocket)

	log.Info("Routes registered", zap.Int("count", len(r.Routes())))
}
