package models

import "time"

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UserLocation is the last known position of a user. A single current
// value only; every update overwrites the previous one.
type UserLocation struct {
	UserID    string      `json:"userId"`
	Location  Coordinates `json:"location"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// DeliveryTarget is a per-token dispatch candidate produced during one
// pipeline run. A user with two valid tokens yields two targets. Not
// persisted.
type DeliveryTarget struct {
	UserID         string
	Token          string
	Location       Coordinates
	DistanceMeters float64
}
