package models

import "time"

// Disaster types as they appear in filed feed reports.
const (
	DisasterEarthquake = "earthquake"
	DisasterCyclone    = "cyclone"
	DisasterFlood      = "flood"
	DisasterVolcano    = "volcano"
	DisasterTsunami    = "tsunami"
	DisasterWildfire   = "wildfire"
	DisasterUnknown    = "unknown"
)

// FeedEvent is a disaster picked up from an external feed before it is filed as a report.
type FeedEvent struct {
	ID         string // Unique ID from source (e.g., "gdacs_12345")
	Source     string // "usgs" or "gdacs"
	Type       string
	Title      string
	Place      string  // human-readable location, may be empty
	Magnitude  float64 // Richter scale for earthquakes, GDACS severity otherwise
	AlertLevel string  // GDACS "green" / "orange" / "red"
	Latitude   float64
	Longitude  float64
	Timestamp  time.Time // when the event occurred
}

func (d *FeedEvent) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
	}
}
