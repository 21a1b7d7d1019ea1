package models

// Coordinate is a single point on a route, WGS84.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteResult is a resolved route between two named places.
type RouteResult struct {
	Origin      string       `json:"origin"`
	Destination string       `json:"destination"`
	Path        []Coordinate `json:"path"`
	DistanceKm  float64      `json:"distanceKm"`
}
