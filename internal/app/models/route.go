package models

import "time"

// RouteLocation is a venue placed into the route plan.
type RouteLocation struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Address  string     `json:"address"`
	Location Coordinate `json:"location"`
	Category Category   `json:"category"`
}

// RouteLocationFromVenue copies the identifying fields of v.
func RouteLocationFromVenue(v Venue) RouteLocation {
	return RouteLocation{
		ID:       v.ID,
		Name:     v.Name,
		Address:  v.Address,
		Location: v.Location,
		Category: v.Category,
	}
}

// SavedRoute is an immutable named snapshot of a route plan.
type SavedRoute struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Locations []RouteLocation `json:"locations"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Clone returns a copy that does not share the locations slice.
func (r SavedRoute) Clone() SavedRoute {
	r.Locations = append([]RouteLocation(nil), r.Locations...)
	return r
}

// Leg is one stop-to-stop segment returned by the directions provider.
type Leg struct {
	Start           Coordinate `json:"start"`
	End             Coordinate `json:"end"`
	StartAddress    string     `json:"startAddress,omitempty"`
	EndAddress      string     `json:"endAddress,omitempty"`
	DistanceMeters  int        `json:"distanceMeters"`
	DistanceText    string     `json:"distanceText,omitempty"`
	DurationSeconds int        `json:"durationSeconds"`
	DurationText    string     `json:"durationText,omitempty"`
}

// Directions is a walking/driving path through an ordered list of stops.
type Directions struct {
	Legs            []Leg        `json:"legs"`
	Path            []Coordinate `json:"path,omitempty"`
	DistanceMeters  int          `json:"distanceMeters"`
	DurationSeconds int          `json:"durationSeconds"`
}
