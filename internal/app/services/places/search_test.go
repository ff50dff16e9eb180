package places

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) NearbySearch(ctx context.Context, center models.Coordinate, radiusMeters int, placeType, pageToken string) (*Page, error) {
	args := m.Called(ctx, center, radiusMeters, placeType, pageToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Page), args.Error(1)
}

func (m *MockProvider) Details(ctx context.Context, placeID string) (*models.PlaceDetails, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlaceDetails), args.Error(1)
}

var center = models.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

func result(id string, types ...string) PlaceResult {
	r := PlaceResult{PlaceID: id, Name: "Place " + id, Vicinity: id + " street", Types: types}
	r.Geometry.Location.Lat = center.Latitude + 0.001
	r.Geometry.Location.Lng = center.Longitude
	return r
}

func TestSearchDeduplicatesAcrossCategories(t *testing.T) {
	p := new(MockProvider)
	p.On("NearbySearch", mock.Anything, center, 1500, "bar", "").
		Return(&Page{Results: []PlaceResult{result("shared", "bar", "night_club"), result("b1", "bar")}}, nil)
	p.On("NearbySearch", mock.Anything, center, 1500, "night_club", "").
		Return(&Page{Results: []PlaceResult{result("shared", "night_club"), result("n1", "night_club")}}, nil)

	s := NewSearcher(p, Options{MaxPages: 1}, nil)
	venues, err := s.Search(context.Background(), Query{
		Center:       center,
		RadiusMeters: 1500,
		Categories:   []models.Category{models.CategoryBar, models.CategoryNightClub},
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(venues))
	for _, v := range venues {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"shared", "b1", "n1"}, ids)
	assert.Equal(t, models.CategoryNightClub, venues[0].Category)
	require.NotNil(t, venues[0].Distance)
	assert.InDelta(t, 111.19, *venues[0].Distance, 0.5)
	assert.Nil(t, venues[0].Details)
	p.AssertExpectations(t)
}

func TestSearchDefaultsToFourCategories(t *testing.T) {
	p := new(MockProvider)
	for _, c := range []string{"bar", "restaurant", "night_club", "cafe"} {
		p.On("NearbySearch", mock.Anything, center, 800, c, "").Return(&Page{}, nil).Once()
	}

	venues, err := NewSearcher(p, Options{MaxPages: 1}, nil).Search(context.Background(), Query{Center: center, RadiusMeters: 800})
	require.NoError(t, err)
	assert.Empty(t, venues)
	p.AssertExpectations(t)
}

func TestSearchSkipsFailingCategory(t *testing.T) {
	p := new(MockProvider)
	p.On("NearbySearch", mock.Anything, center, 1000, "bar", "").Return(nil, errors.New("boom"))
	p.On("NearbySearch", mock.Anything, center, 1000, "cafe", "").
		Return(&Page{Results: []PlaceResult{result("c1", "cafe")}}, nil)

	venues, err := NewSearcher(p, Options{MaxPages: 1}, nil).Search(context.Background(), Query{
		Center:       center,
		RadiusMeters: 1000,
		Categories:   []models.Category{models.CategoryBar, models.CategoryCafe},
	})
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "c1", venues[0].ID)
}

func TestSearchAllCategoriesFail(t *testing.T) {
	p := new(MockProvider)
	p.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, "").Return(nil, errors.New("network down"))

	venues, err := NewSearcher(p, Options{MaxPages: 1}, nil).Search(context.Background(), Query{Center: center, RadiusMeters: 1000})
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
	assert.NotNil(t, venues)
	assert.Empty(t, venues)
}

func TestSearchFollowsPages(t *testing.T) {
	p := new(MockProvider)
	p.On("NearbySearch", mock.Anything, center, 500, "lodging", "").
		Return(&Page{Results: []PlaceResult{result("h1", "lodging")}, NextPageToken: "t2"}, nil)
	p.On("NearbySearch", mock.Anything, center, 500, "lodging", "t2").
		Return(&Page{Results: []PlaceResult{result("h2", "lodging")}, NextPageToken: "t3"}, nil)
	p.On("NearbySearch", mock.Anything, center, 500, "lodging", "t3").
		Return(nil, errors.New("invalid request"))

	venues, err := NewSearcher(p, Options{MaxPages: 5, PageDelay: time.Millisecond}, nil).Search(context.Background(), Query{
		Center:       center,
		RadiusMeters: 500,
		Categories:   []models.Category{models.CategoryHotel},
	})
	require.NoError(t, err)
	require.Len(t, venues, 2)
	assert.Equal(t, models.CategoryHotel, venues[0].Category)
	assert.Equal(t, "h2", venues[1].ID)
}

func TestSearchStopsAtMaxPages(t *testing.T) {
	p := new(MockProvider)
	p.On("NearbySearch", mock.Anything, center, 500, "bar", "").
		Return(&Page{Results: []PlaceResult{result("a", "bar")}, NextPageToken: "more"}, nil)

	venues, err := NewSearcher(p, Options{MaxPages: 1}, nil).Search(context.Background(), Query{
		Center:       center,
		RadiusMeters: 500,
		Categories:   []models.Category{models.CategoryBar},
	})
	require.NoError(t, err)
	assert.Len(t, venues, 1)
	p.AssertNumberOfCalls(t, "NearbySearch", 1)
}

func TestSearchCancelled(t *testing.T) {
	p := new(MockProvider)
	p.On("NearbySearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSearcher(p, Options{MaxPages: 1}, nil).Search(ctx, Query{Center: center, RadiusMeters: 500})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		types []string
		want  models.Category
	}{
		{[]string{"bar", "night_club"}, models.CategoryNightClub},
		{[]string{"restaurant", "bar", "food"}, models.CategoryBar},
		{[]string{"food", "cafe", "restaurant"}, models.CategoryRestaurant},
		{[]string{"point_of_interest", "cafe"}, models.CategoryCafe},
		{[]string{"bowling_alley", "movie_theater"}, models.CategoryMovieTheater},
		{[]string{"bowling_alley"}, models.CategoryBowlingAlley},
		{[]string{"lodging", "point_of_interest"}, models.CategoryHotel},
		{[]string{"hotel"}, models.CategoryHotel},
		{[]string{"museum", "bar_supply"}, models.CategoryUnknown},
		{nil, models.CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferCategory(tt.types), "types %v", tt.types)
	}
}

func TestFetchPlaceDetailsCaches(t *testing.T) {
	rating := 4.2
	p := new(MockProvider)
	p.On("Details", mock.Anything, "p1").Return(&models.PlaceDetails{Phone: "123", Rating: &rating}, nil).Once()

	s := NewSearcher(p, Options{}, nil)
	first, err := s.FetchPlaceDetails(context.Background(), "p1")
	require.NoError(t, err)
	second, err := s.FetchPlaceDetails(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "123", first.Phone)
	assert.Same(t, first, second)
	p.AssertNumberOfCalls(t, "Details", 1)
}

func TestFetchPlaceDetailsFailure(t *testing.T) {
	p := new(MockProvider)
	p.On("Details", mock.Anything, "p1").Return(nil, models.ErrProviderUnavailable)

	s := NewSearcher(p, Options{}, nil)
	d, err := s.FetchPlaceDetails(context.Background(), "p1")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)

	_, err = s.FetchPlaceDetails(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
