package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/checkins"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/routeplan"
	"github.com/FACorreiaa/go-nightout/internal/app/domain/session"
	"github.com/FACorreiaa/go-nightout/internal/app/handlers"
	"github.com/FACorreiaa/go-nightout/internal/pkg/storage"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	h := handlers.New(handlers.Deps{
		Session:  session.NewService(nil, storage.NewMemoryStore(), 10, logger),
		Route:    routeplan.NewPlanner(nil, logger),
		CheckIns: checkins.NewLog(),
	}, logger)

	r := gin.New()
	Setup(r, h, logger)
	return r
}

func TestSetupRegistersAPI(t *testing.T) {
	r := newRouter(t)

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"POST /api/session/login",
		"POST /api/checkin",
		"GET /api/checkin/status",
		"GET /api/places",
		"PUT /api/places/radius",
		"GET /api/route/directions",
		"POST /api/favorites",
		"PUT /api/coordinates",
		"POST /api/chat",
		"GET /ws/presence",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/favorites"},
		{http.MethodPost, "/api/checkin"},
		{http.MethodGet, "/api/presence/nearby"},
		{http.MethodDelete, "/api/account"},
		{http.MethodGet, "/api/coordinates"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestPublicRoutes(t *testing.T) {
	r := newRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkin/status?latitude=1&longitude=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"checkedIn":false,"checkingIn":false}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/route", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"locations":[]}`, w.Body.String())
}
