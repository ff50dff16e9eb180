package favorites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
	"github.com/FACorreiaa/go-nightout/internal/pkg/storage"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Favorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Favorite), args.Error(1)
}

func (m *MockRemote) AddFavorite(ctx context.Context, userID string, venue models.Venue) (*models.Favorite, error) {
	args := m.Called(ctx, userID, venue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Favorite), args.Error(1)
}

func (m *MockRemote) RemoveFavorite(ctx context.Context, userID, locationID string) error {
	return m.Called(ctx, userID, locationID).Error(0)
}

var user = &models.User{ID: "u1", Email: "a@b.c"}

func venue(id string) models.Venue {
	return models.Venue{ID: id, Name: "Venue " + id, Address: "Street", Category: models.CategoryBar,
		Location: models.Coordinate{Latitude: 1, Longitude: 2}}
}

func cached(t *testing.T, store storage.Store) []models.Venue {
	t.Helper()
	var out []models.Venue
	_, err := store.Get(context.Background(), storage.KeyFavorites, &out)
	require.NoError(t, err)
	return out
}

func signedIn(t *testing.T) (*State, *MockRemote, *storage.MemoryStore) {
	t.Helper()
	remote := new(MockRemote)
	store := storage.NewMemoryStore()
	remote.On("Favorites", mock.Anything, "u1").Return([]models.Favorite{}, nil).Once()
	s := NewState(remote, store, nil)
	require.NoError(t, s.SetUser(context.Background(), user))
	return s, remote, store
}

func TestSetUserNilClearsWithoutIO(t *testing.T) {
	s, remote, _ := signedIn(t)
	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(&models.Favorite{LocationID: "a"}, nil)
	require.NoError(t, s.Add(context.Background(), venue("a")))

	require.NoError(t, s.SetUser(context.Background(), nil))
	assert.Empty(t, s.List())
	remote.AssertNumberOfCalls(t, "Favorites", 1)
	assert.ErrorIs(t, s.Add(context.Background(), venue("b")), models.ErrNotAuthenticated)
}

func TestSetUserPaintsCacheThenResyncs(t *testing.T) {
	remote := new(MockRemote)
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storage.KeyFavorites, []models.Venue{venue("old")}))
	s := NewState(remote, store, nil)

	remote.On("Favorites", mock.Anything, "u1").
		Run(func(mock.Arguments) {
			assert.True(t, s.IsFavorite("old"), "cache is shown before the remote answers")
		}).
		Return([]models.Favorite{{ID: "f1", UserID: "u1", LocationID: "new", Latitude: 3, Longitude: 4}}, nil)

	require.NoError(t, s.SetUser(context.Background(), user))

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)
	assert.Empty(t, list[0].Name)
	assert.Equal(t, models.CategoryUnknown, list[0].Category)
	assert.Equal(t, 3.0, list[0].Location.Latitude)
	assert.False(t, s.IsFavorite("old"))
	assert.Equal(t, list, cached(t, store))
}

func TestSetUserRemoteFailureKeepsCache(t *testing.T) {
	remote := new(MockRemote)
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storage.KeyFavorites, []models.Venue{venue("old")}))
	remote.On("Favorites", mock.Anything, "u1").Return(nil, errors.New("offline"))

	s := NewState(remote, store, nil)
	assert.Error(t, s.SetUser(context.Background(), user))
	assert.True(t, s.IsFavorite("old"))
}

func TestAddIsRemoteFirst(t *testing.T) {
	s, remote, store := signedIn(t)

	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(nil, errors.New("500")).Once()
	assert.Error(t, s.Add(context.Background(), venue("a")))
	assert.False(t, s.IsFavorite("a"))
	assert.Empty(t, cached(t, store))

	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(&models.Favorite{LocationID: "a"}, nil).Once()
	require.NoError(t, s.Add(context.Background(), venue("a")))
	assert.True(t, s.IsFavorite("a"))
	require.Len(t, cached(t, store), 1)
	assert.Equal(t, "Venue a", cached(t, store)[0].Name)

	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(&models.Favorite{LocationID: "a"}, nil).Once()
	require.NoError(t, s.Add(context.Background(), venue("a")))
	assert.Len(t, s.List(), 1)
}

func TestRemoveIsRemoteFirst(t *testing.T) {
	s, remote, store := signedIn(t)
	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(&models.Favorite{LocationID: "a"}, nil)
	require.NoError(t, s.Add(context.Background(), venue("a")))

	remote.On("RemoveFavorite", mock.Anything, "u1", "a").Return(errors.New("500")).Once()
	assert.Error(t, s.Remove(context.Background(), "a"))
	assert.True(t, s.IsFavorite("a"))
	assert.Len(t, cached(t, store), 1)

	remote.On("RemoveFavorite", mock.Anything, "u1", "a").Return(nil).Once()
	require.NoError(t, s.Remove(context.Background(), "a"))
	assert.False(t, s.IsFavorite("a"))
	assert.Empty(t, cached(t, store))
}

func TestAddValidation(t *testing.T) {
	s, _, _ := signedIn(t)
	assert.ErrorIs(t, s.Add(context.Background(), models.Venue{}), models.ErrValidation)
}

func TestSetUserSameUserIsNoOp(t *testing.T) {
	s, remote, _ := signedIn(t)
	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(&models.Favorite{LocationID: "a"}, nil)
	require.NoError(t, s.Add(context.Background(), venue("a")))

	lat, lon := 1.0, 2.0
	checkedIn := &models.User{ID: "u1", Email: "a@b.c", Latitude: &lat, Longitude: &lon}
	require.NoError(t, s.SetUser(context.Background(), checkedIn))

	remote.AssertNumberOfCalls(t, "Favorites", 1)
	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Venue a", list[0].Name)
}

func TestAddSurvivesSameUserNotification(t *testing.T) {
	s, remote, store := signedIn(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&models.Favorite{LocationID: "a"}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Add(context.Background(), venue("a")) }()

	<-entered
	require.NoError(t, s.SetUser(context.Background(), user))
	close(release)
	require.NoError(t, <-done)

	assert.True(t, s.IsFavorite("a"))
	assert.Len(t, cached(t, store), 1)
}

func TestAddDuringResyncIsMerged(t *testing.T) {
	remote := new(MockRemote)
	store := storage.NewMemoryStore()
	s := NewState(remote, store, nil)

	fetching := make(chan struct{})
	release := make(chan struct{})
	remote.On("Favorites", mock.Anything, "u1").
		Run(func(mock.Arguments) {
			close(fetching)
			<-release
		}).
		Return([]models.Favorite{{ID: "f1", UserID: "u1", LocationID: "b"}}, nil)
	remote.On("AddFavorite", mock.Anything, "u1", venue("a")).Return(&models.Favorite{LocationID: "a"}, nil)
	remote.On("RemoveFavorite", mock.Anything, "u1", "b").Return(nil)

	done := make(chan error, 1)
	go func() { done <- s.SetUser(context.Background(), user) }()

	<-fetching
	require.NoError(t, s.Add(context.Background(), venue("a")))
	require.NoError(t, s.Remove(context.Background(), "b"))
	close(release)
	require.NoError(t, <-done)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "Venue a", list[0].Name)
	assert.Equal(t, list, cached(t, store))
}
