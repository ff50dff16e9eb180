// Package session owns the signed-in user, their check-in coordinate and
// the set of users near them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/domain/geo"
	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-nightout/internal/pkg/storage"
)

// CheckInPresenceRadius is the radius of the nearby-users query issued after
// a successful check-in.
const CheckInPresenceRadius = 10.0

// ErrIncompleteUser is returned when a check-in or check-out response lacks
// the user's id or email.
var ErrIncompleteUser = errors.New("server returned an incomplete user record")

// Backend is the slice of the remote API the session needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	DeleteAccount(ctx context.Context, email string) error
	Me(ctx context.Context, email string) (*models.User, error)
	CheckIn(ctx context.Context, email string, lat, lon float64) (*models.User, error)
	CheckOut(ctx context.Context, email string) (*models.User, error)
	UsersNearby(ctx context.Context, lat, lon, radius float64) ([]models.User, error)
	UsersAtLocation(ctx context.Context, lat, lon, radius float64) ([]models.User, error)
}

// Listener is told about every user replacement. nil means signed out.
type Listener func(user *models.User)

// Service is the session state container. It is safe for concurrent use;
// remote calls are made without holding the lock.
type Service struct {
	backend   Backend
	store     storage.Store
	logger    *zap.Logger
	proximity float64
	now       func() time.Time

	mu         sync.RWMutex
	user       *models.User
	nearby     []models.User
	optimistic *models.Coordinate
	inFlight   int
	lastErr    error
	// generation changes on every sign-in and teardown so that responses to
	// calls started under a previous session are dropped.
	generation uint64

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewService creates a signed-out session. proximityRadius <= 0 uses the
// default check-in radius.
func NewService(backend Backend, store storage.Store, proximityRadius float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if proximityRadius <= 0 {
		proximityRadius = geo.DefaultProximityRadius
	}
	return &Service{
		backend:   backend,
		store:     store,
		logger:    logger,
		proximity: proximityRadius,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn for user changes and returns a function that
// removes it.
func (s *Service) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Service) notify(user *models.User) {
	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(user.Clone())
	}
}

// User returns a copy of the signed-in user, or nil.
func (s *Service) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// NearbyUsers returns a copy of the shared nearby-users set.
func (s *Service) NearbyUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUsers(s.nearby)
}

// IsCheckingIn reports whether a check-in or check-out is in flight.
func (s *Service) IsCheckingIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// OptimisticCoordinate is the last attempted check-in location, if any.
func (s *Service) OptimisticCoordinate() (models.Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.optimistic == nil {
		return models.Coordinate{}, false
	}
	return *s.optimistic, true
}

// LastError is the most recent recoverable failure, cleared by the next
// successful operation.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Login exchanges credentials for a token and signs the user in.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		s.setError(err)
		return nil, err
	}
	return s.signIn(ctx, resp)
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	resp, err := s.backend.Register(ctx, name, email, password)
	if err != nil {
		s.setError(err)
		return nil, err
	}
	return s.signIn(ctx, resp)
}

func (s *Service) signIn(ctx context.Context, resp *models.AuthResponse) (*models.User, error) {
	if err := s.store.Set(ctx, storage.KeyToken, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to persist token: %w", err)
	}

	user := &models.User{ID: resp.ID, Name: resp.Name, Email: resp.Email}
	// The auth response omits the presence coordinate; the server record may
	// already carry one from another device.
	if me, err := s.backend.Me(ctx, resp.Email); err == nil && me != nil {
		user = me
	} else if err != nil {
		s.logger.Debug("Could not load full user after sign-in", zap.Error(err))
	}
	user.Normalize()

	s.mu.Lock()
	s.user = user.Clone()
	s.nearby = nil
	s.optimistic = nil
	s.lastErr = nil
	s.generation++
	s.mu.Unlock()

	s.persistUser(ctx, user)
	s.notify(user)
	s.logger.Info("User signed in", zap.String("user_id", user.ID))
	return user.Clone(), nil
}

// Restore verifies the stored session at startup. An expired token or a
// failed verification clears storage and leaves the session signed out;
// neither is reported as an error.
func (s *Service) Restore(ctx context.Context) (*models.User, error) {
	var (
		stored models.User
		token  string
	)
	foundUser, err := s.store.Get(ctx, storage.KeyUser, &stored)
	if err != nil {
		s.logger.Warn("Stored user unreadable, clearing session", zap.Error(err))
		s.teardown(ctx)
		return nil, nil
	}
	foundToken, err := s.store.Get(ctx, storage.KeyToken, &token)
	if err != nil || !foundUser || !foundToken || token == "" {
		if foundUser || foundToken {
			s.teardown(ctx)
		}
		return nil, nil
	}

	if TokenExpired(token, s.now()) {
		s.logger.Info("Stored token expired, clearing session")
		s.teardown(ctx)
		return nil, nil
	}

	me, err := s.backend.Me(ctx, stored.Email)
	if err != nil || me == nil {
		s.logger.Info("Session verification failed, clearing session", zap.Error(err))
		s.teardown(ctx)
		return nil, nil
	}
	me.Normalize()

	s.mu.Lock()
	s.user = me.Clone()
	s.generation++
	s.mu.Unlock()

	s.persistUser(ctx, me)
	s.notify(me)
	return me.Clone(), nil
}

// TokenExpired reports whether token is a JWT whose exp claim has passed.
// Tokens that are not JWTs, or carry no exp, are left to the server.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// CheckIn records (lat, lon) as the optimistic coordinate, asks the server
// to check the user in there and, on success, adopts the server's record and
// loads the users present.
func (s *Service) CheckIn(ctx context.Context, lat, lon float64) error {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "CheckIn", trace.WithAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lon),
	))
	defer span.End()

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "not authenticated")
		return models.ErrNotAuthenticated
	}
	email, gen := s.user.Email, s.generation
	attempted := geo.Round(models.Coordinate{Latitude: lat, Longitude: lon})
	s.optimistic = &attempted
	s.inFlight++
	s.mu.Unlock()

	updated, err := s.backend.CheckIn(ctx, email, lat, lon)
	if err == nil {
		err = checkUserRecord(updated)
	}
	s.recordCheckIn(ctx, "checkin", err)

	s.mu.Lock()
	s.inFlight--
	if gen != s.generation {
		s.mu.Unlock()
		return models.ErrNotAuthenticated
	}
	if err != nil {
		s.optimistic = nil
		s.nearby = nil
		s.lastErr = err
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "check-in failed")
		s.logger.Warn("Check-in failed", zap.Error(err))
		return err
	}
	s.user = updated.Clone()
	s.lastErr = nil
	s.mu.Unlock()

	s.persistUser(ctx, updated)
	s.notify(updated)

	at := models.Coordinate{Latitude: lat, Longitude: lon}
	if c, ok := updated.Coordinate(); ok {
		at = c
	}
	s.GetUsersNearby(ctx, at.Latitude, at.Longitude, CheckInPresenceRadius)
	span.SetStatus(codes.Ok, "")
	return nil
}

// CheckOut clears the user's coordinate on the server. On failure the prior
// state is kept.
func (s *Service) CheckOut(ctx context.Context) error {
	ctx, span := otel.Tracer("SessionService").Start(ctx, "CheckOut")
	defer span.End()

	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "not authenticated")
		return models.ErrNotAuthenticated
	}
	email, gen := s.user.Email, s.generation
	s.inFlight++
	s.mu.Unlock()

	updated, err := s.backend.CheckOut(ctx, email)
	if err == nil {
		err = checkUserRecord(updated)
	}
	s.recordCheckIn(ctx, "checkout", err)

	s.mu.Lock()
	s.inFlight--
	if gen != s.generation {
		s.mu.Unlock()
		return models.ErrNotAuthenticated
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "check-out failed")
		s.logger.Warn("Check-out failed", zap.Error(err))
		return err
	}
	s.user = updated.Clone()
	s.nearby = nil
	s.optimistic = nil
	s.lastErr = nil
	s.mu.Unlock()

	s.persistUser(ctx, updated)
	s.notify(updated)
	span.SetStatus(codes.Ok, "")
	return nil
}

// IsCheckedInAt reports whether the user is checked in within the proximity
// radius of c. The persisted coordinate wins, then the optimistic one, and
// any in-flight operation makes the answer false.
func (s *Service) IsCheckedInAt(c models.Coordinate) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil || s.inFlight > 0 {
		return false
	}
	if persisted, ok := s.user.Coordinate(); ok && geo.AreCoordinatesClose(persisted, c, s.proximity) {
		return true
	}
	return s.optimistic != nil && geo.AreCoordinatesClose(*s.optimistic, c, s.proximity)
}

// GetUsersNearby replaces the shared nearby-users set. On failure the set is
// cleared and an empty list is returned.
func (s *Service) GetUsersNearby(ctx context.Context, lat, lon, radius float64) []models.User {
	users, err := s.backend.UsersNearby(ctx, lat, lon, radius)
	metrics.Get().PresenceRefreshesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", err == nil)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.nearby = nil
		s.lastErr = err
		s.logger.Debug("Nearby users query failed", zap.Error(err))
		return []models.User{}
	}
	s.nearby = cloneUsers(users)
	return cloneUsers(users)
}

// GetUsersAtLocation counts users at a venue without touching the shared
// nearby set. Failures return an empty list.
func (s *Service) GetUsersAtLocation(ctx context.Context, lat, lon, radius float64) []models.User {
	users, err := s.backend.UsersAtLocation(ctx, lat, lon, radius)
	if err != nil {
		s.logger.Debug("Users at location query failed", zap.Error(err))
		return []models.User{}
	}
	if users == nil {
		return []models.User{}
	}
	return users
}

// RefreshPresence re-queries the users near the signed-in user's persisted
// coordinate. It does nothing when the user is not checked in.
func (s *Service) RefreshPresence(ctx context.Context) []models.User {
	s.mu.RLock()
	coord, ok := s.user.Coordinate()
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.GetUsersNearby(ctx, coord.Latitude, coord.Longitude, CheckInPresenceRadius)
}

// Logout checks the user out and invalidates the server session on a best
// effort basis, then always clears the local session.
func (s *Service) Logout(ctx context.Context) {
	s.mu.RLock()
	user := s.user.Clone()
	s.mu.RUnlock()

	if user != nil {
		if _, err := s.backend.CheckOut(ctx, user.Email); err != nil {
			s.logger.Warn("Check-out during logout failed", zap.Error(err))
		}
		if err := s.backend.Logout(ctx); err != nil {
			s.logger.Warn("Remote logout failed", zap.Error(err))
		}
	}
	s.teardown(ctx)
	s.logger.Info("User signed out")
}

// DeleteAccount removes the account remotely and, only on success, clears the
// local session. A nil error means the account is gone.
func (s *Service) DeleteAccount(ctx context.Context) error {
	s.mu.RLock()
	user := s.user.Clone()
	s.mu.RUnlock()
	if user == nil {
		return models.ErrNotAuthenticated
	}

	if err := s.backend.DeleteAccount(ctx, user.Email); err != nil {
		s.setError(err)
		s.logger.Warn("Account deletion failed", zap.Error(err))
		return err
	}
	s.teardown(ctx)
	s.logger.Info("Account deleted", zap.String("user_id", user.ID))
	return nil
}

func (s *Service) teardown(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.nearby = nil
	s.optimistic = nil
	s.lastErr = nil
	s.generation++
	s.mu.Unlock()

	if err := s.store.Delete(ctx, storage.KeyUser, storage.KeyToken, storage.KeyFavorites); err != nil {
		s.logger.Warn("Failed to clear stored session", zap.Error(err))
	}
	s.notify(nil)
}

func (s *Service) persistUser(ctx context.Context, user *models.User) {
	if err := s.store.Set(ctx, storage.KeyUser, user); err != nil {
		s.logger.Warn("Failed to persist user", zap.Error(err))
	}
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func checkUserRecord(u *models.User) error {
	if u == nil || u.ID == "" || u.Email == "" {
		return ErrIncompleteUser
	}
	return nil
}

func (s *Service) recordCheckIn(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.Canceled) {
			outcome = "cancelled"
		}
	}
	metrics.Get().CheckInsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func cloneUsers(users []models.User) []models.User {
	if users == nil {
		return nil
	}
	out := make([]models.User, len(users))
	for i := range users {
		out[i] = *users[i].Clone()
	}
	return out
}
