package models

import "time"

type ComplaintStatus string

const (
	ComplaintStatusOpen     ComplaintStatus = "open"
	ComplaintStatusResolved ComplaintStatus = "Resolved"
)

// Point is a WGS84 coordinate in signed decimal degrees. SQL and s2 take
// longitude first; always pass Lon and Lat by name at those boundaries.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

type Complaint struct {
	ID          int64
	ImageURL    string
	Description string
	Category    string
	Location    Point
	WardID      *int64
	WardName    *string
	Status      ComplaintStatus
	CreatedAt   time.Time
}

type NewComplaint struct {
	ImageURL    string
	Description string
	Category    string
	Location    Point
	WardID      *int64
}

// NearbyComplaint is a proximity match. Category is compared by the caller.
type NearbyComplaint struct {
	ID             int64
	Category       string
	Status         ComplaintStatus
	DistanceMeters float64
}

type ComplaintFilter struct {
	Category string
	Status   string
	WardID   *int64
	Limit    int
	Offset   int
}
