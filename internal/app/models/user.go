package models

import "time"

// User is the authenticated identity plus its presence coordinate. Latitude
// and Longitude are either both set (checked in) or both nil.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"createdAt"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
}

// Normalize drops a half-set coordinate so the record never carries only one
// of latitude or longitude.
func (u *User) Normalize() *User {
	if u == nil {
		return nil
	}
	if u.Latitude == nil || u.Longitude == nil {
		u.Latitude = nil
		u.Longitude = nil
	}
	return u
}

// Coordinate reports the user's checked-in coordinate, if any.
func (u *User) Coordinate() (Coordinate, bool) {
	if u == nil || u.Latitude == nil || u.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: *u.Latitude, Longitude: *u.Longitude}, true
}

// Clone returns a deep copy so readers never share pointers with the owner.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Latitude != nil {
		lat := *u.Latitude
		c.Latitude = &lat
	}
	if u.Longitude != nil {
		lon := *u.Longitude
		c.Longitude = &lon
	}
	return &c
}

// AuthResponse is returned by /auth/login and /auth/register.
type AuthResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register payload.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
