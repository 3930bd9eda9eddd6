package models

import "math"

// Coordinates is a point in the registry's coordinate space. Latitude/longitude pairs
// are treated as a locally flat projection.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// DistanceTo returns the Euclidean distance between c and o.
func (c Coordinates) DistanceTo(o Coordinates) float64 {
	return math.Hypot(c.Latitude-o.Latitude, c.Longitude-o.Longitude)
}
