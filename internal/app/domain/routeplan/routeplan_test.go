package routeplan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

func loc(id string) models.RouteLocation {
	return models.RouteLocation{ID: id, Name: "Venue " + id, Category: models.CategoryBar}
}

func ids(locs []models.RouteLocation) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.ID)
	}
	return out
}

func TestAddIsIdempotent(t *testing.T) {
	p := NewPlanner(nil, nil)
	assert.True(t, p.Add(loc("a")))
	assert.True(t, p.Add(loc("b")))
	assert.False(t, p.Add(loc("a")))
	assert.Equal(t, []string{"a", "b"}, ids(p.Current()))
}

func TestRemove(t *testing.T) {
	p := NewPlanner(nil, nil)
	p.Add(loc("a"))
	p.Add(loc("b"))
	p.Add(loc("c"))

	assert.False(t, p.Remove("missing"))
	assert.Len(t, p.Current(), 3)

	assert.True(t, p.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, ids(p.Current()))

	p.Clear()
	assert.Empty(t, p.Current())
}

func TestUpdatePreservesSet(t *testing.T) {
	p := NewPlanner(nil, nil)
	for _, id := range []string{"a", "b", "c"} {
		p.Add(loc(id))
	}
	reordered := []models.RouteLocation{loc("c"), loc("a"), loc("b")}
	p.Update(reordered)
	assert.Equal(t, []string{"c", "a", "b"}, ids(p.Current()))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids(p.Current()))

	p.Update([]models.RouteLocation{loc("x"), loc("x")})
	assert.Equal(t, []string{"x"}, ids(p.Current()))
}

func TestMove(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"b", "c", "a", "d"}},
		{3, 0, []string{"d", "a", "b", "c"}},
		{1, 1, []string{"a", "b", "c", "d"}},
		{2, 1, []string{"a", "c", "b", "d"}},
	}
	for _, tt := range tests {
		p := NewPlanner(nil, nil)
		for _, id := range []string{"a", "b", "c", "d"} {
			p.Add(loc(id))
		}
		require.NoError(t, p.Move(tt.from, tt.to))
		assert.Equal(t, tt.want, ids(p.Current()), "move %d -> %d", tt.from, tt.to)
	}

	p := NewPlanner(nil, nil)
	p.Add(loc("a"))
	assert.ErrorIs(t, p.Move(0, 3), models.ErrValidation)
}

func TestSave(t *testing.T) {
	p := NewPlanner(nil, nil)

	_, ok := p.Save("empty")
	assert.False(t, ok)
	assert.Empty(t, p.Saved())

	p.Add(loc("a"))
	p.Add(loc("b"))
	first, ok := p.Save("Friday")
	require.True(t, ok)
	second, ok := p.Save("Friday")
	require.True(t, ok)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	// Later edits never reach a snapshot.
	p.Add(loc("c"))
	first.Locations[0].Name = "mutated"
	saved := p.Saved()
	require.Len(t, saved, 2)
	assert.Equal(t, []string{"a", "b"}, ids(saved[0].Locations))
	assert.Equal(t, "Venue a", saved[0].Locations[0].Name)

	assert.True(t, p.DeleteSaved(first.ID))
	assert.False(t, p.DeleteSaved(first.ID))
	assert.Len(t, p.Saved(), 1)
}

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Route(ctx context.Context, stops []models.Coordinate) (*models.Directions, error) {
	args := m.Called(ctx, stops)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Directions), args.Error(1)
}

func TestLegs(t *testing.T) {
	router := new(MockRouter)
	p := NewPlanner(router, nil)

	a := loc("a")
	a.Location = models.Coordinate{Latitude: 1, Longitude: 1}
	p.Add(a)
	_, err := p.Legs(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)

	b := loc("b")
	b.Location = models.Coordinate{Latitude: 2, Longitude: 2}
	p.Add(b)
	want := &models.Directions{DistanceMeters: 1200}
	router.On("Route", mock.Anything, []models.Coordinate{a.Location, b.Location}).Return(want, nil)

	got, err := p.Legs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1200, got.DistanceMeters)

	_, err = NewPlanner(nil, nil).Legs(context.Background())
	assert.ErrorIs(t, err, models.ErrValidation)
}
