package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestUserNormalize(t *testing.T) {
	u := (&User{ID: "u1", Latitude: ptr(1)}).Normalize()
	assert.Nil(t, u.Latitude)
	assert.Nil(t, u.Longitude)
	_, ok := u.Coordinate()
	assert.False(t, ok)

	u = (&User{ID: "u1", Latitude: ptr(1), Longitude: ptr(2)}).Normalize()
	c, ok := u.Coordinate()
	require.True(t, ok)
	assert.Equal(t, Coordinate{Latitude: 1, Longitude: 2}, c)

	var nilUser *User
	assert.Nil(t, nilUser.Normalize())
}

func TestUserClone(t *testing.T) {
	u := &User{ID: "u1", Latitude: ptr(1), Longitude: ptr(2)}
	c := u.Clone()
	*c.Latitude = 9
	assert.Equal(t, 1.0, *u.Latitude)
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryNightClub, ParseCategory(" Night_Club "))
	assert.Equal(t, CategoryUnknown, ParseCategory("lodging"))
	assert.Equal(t, CategoryUnknown, ParseCategory(""))
	assert.False(t, CategoryUnknown.Valid())
	assert.True(t, CategoryCafe.Valid())
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Night Club", CategoryNightClub.Label())
	assert.Equal(t, "Bowling Alley", CategoryBowlingAlley.Label())
	assert.Equal(t, "Bar", CategoryBar.Label())
}

func TestFavoriteVenueLosesDisplayFields(t *testing.T) {
	v := Favorite{ID: "f1", LocationID: "v1", Latitude: 1, Longitude: 2}.Venue()
	assert.Equal(t, "v1", v.ID)
	assert.Empty(t, v.Name)
	assert.Empty(t, v.Address)
	assert.Equal(t, CategoryUnknown, v.Category)
	assert.Equal(t, Coordinate{Latitude: 1, Longitude: 2}, v.Location)
}

func TestSavedRouteClone(t *testing.T) {
	r := SavedRoute{ID: "r1", Locations: []RouteLocation{{ID: "a"}}}
	c := r.Clone()
	c.Locations[0].ID = "b"
	assert.Equal(t, "a", r.Locations[0].ID)
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "Invalid email or password.", UserMessage(fmt.Errorf("login: %w", ErrInvalidCredentials)))
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(fmt.Errorf("dial tcp: refused")))
}
