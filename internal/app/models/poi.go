package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the closed set of venue kinds the app understands.
type Category string

const (
	CategoryBar          Category = "bar"
	CategoryRestaurant   Category = "restaurant"
	CategoryNightClub    Category = "night_club"
	CategoryHotel        Category = "hotel"
	CategoryCafe         Category = "cafe"
	CategoryMovieTheater Category = "movie_theater"
	CategoryBowlingAlley Category = "bowling_alley"
	CategoryUnknown      Category = "unknown"
)

// AllCategories lists every known category except unknown.
var AllCategories = []Category{
	CategoryBar,
	CategoryRestaurant,
	CategoryNightClub,
	CategoryHotel,
	CategoryCafe,
	CategoryMovieTheater,
	CategoryBowlingAlley,
}

// ParseCategory maps a provider or user supplied type onto the closed set.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories {
		if c == known {
			return c
		}
	}
	return CategoryUnknown
}

// Label is the human readable name, e.g. "Night Club".
func (c Category) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(c), "_", " "))
}

// Valid reports whether c is part of the closed set (unknown excluded).
func (c Category) Valid() bool {
	return ParseCategory(string(c)) != CategoryUnknown
}

// Venue is a point of interest returned by place search or rebuilt from a
// favorite. ID is provider assigned and is the only de-duplication key.
type Venue struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Location Coordinate    `json:"location"`
	Address  string        `json:"address"`
	Category Category      `json:"category"`
	OpenNow  *bool         `json:"openNow,omitempty"`
	Rating   *float64      `json:"rating,omitempty"`
	Distance *float64      `json:"distance,omitempty"`
	Details  *PlaceDetails `json:"details,omitempty"`
}

// PlaceDetails is the lazily fetched extended record for a venue.
type PlaceDetails struct {
	Phone        string   `json:"phone,omitempty"`
	OpeningHours []string `json:"openingHours,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	PriceLevel   *int     `json:"priceLevel,omitempty"`
	Website      string   `json:"website,omitempty"`
	Photos       []string `json:"photos,omitempty"`
}

// Favorite is the backend favorite record. It carries no display fields.
type Favorite struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	LocationID string    `json:"locationId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Venue rebuilds a venue from the favorite record. Name and address are not
// stored remotely and come back blank.
func (f Favorite) Venue() Venue {
	return Venue{
		ID:       f.LocationID,
		Location: Coordinate{Latitude: f.Latitude, Longitude: f.Longitude},
		Category: CategoryUnknown,
	}
}

// CheckIn is an entry in the local, memory-only check-in log.
type CheckIn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Venue     Venue     `json:"venue"`
	Timestamp time.Time `json:"timestamp"`
}
