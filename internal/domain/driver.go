package domain

import "time"

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Driver - a delivery driver as seen by the dispatch engine.
//
// IsAvailable is the mutable exclusivity flag: at most one in-flight
// assignment may hold it false for a given driver at a time.
type Driver struct {
	ID              string
	CityID          string
	ZoneID          string
	IsOnline        bool
	IsAvailable     bool
	IsActive        bool
	CurrentLocation *Point
	Rating          *float64
	TotalDeliveries int
	UpdatedAt       time.Time
}
