// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles —
// handlers, storage, and utils can all import types without depending
// on each other.
package types

import "time"

// MaxMarkerNameLength is the longest label a marker may carry.
const MaxMarkerNameLength = 100

// Marker is a point of interest placed on the globe by a user.
//
// UserID is fixed when the marker is created; there is no operation that
// reassigns it. Deleting the owning user deletes the marker as well.
type Marker struct {
	ID        int64     `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UserID    int64     `json:"user_id"`
}

// MarkerPoint is the public projection of a Marker returned by the list
// endpoint: coordinates only.
type MarkerPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point projects m onto its coordinates.
func (m Marker) Point() MarkerPoint {
	return MarkerPoint{Latitude: m.Latitude, Longitude: m.Longitude}
}

// AddMarkerRequest is the JSON body accepted by the add-marker endpoint.
//
// Lat and Lon are pointers so that "required" means "present in the body":
// 0.0 is a perfectly good coordinate (the equator, the prime meridian) and
// must not be mistaken for a missing field.
type AddMarkerRequest struct {
	Lat  *float64 `json:"lat"  validate:"required"`
	Lon  *float64 `json:"lon"  validate:"required"`
	Name string   `json:"name" validate:"max=100"`
}

// User is an identity that can own markers.
// PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credentials is the JSON body accepted by the register and login endpoints.
// bcrypt ignores everything past 72 bytes, so longer passwords are refused
// rather than silently truncated.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
