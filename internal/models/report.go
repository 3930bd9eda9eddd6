package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Markers of the location suffix embedded in a report's details.
const (
	locationMarker = "location_resolved:"
	detailsSep     = "|"
)

// TimestampLayout is the wire form of report timestamps: UTC, ISO-8601, trailing "Z".
// It carries microseconds, so report times are truncated to that precision.
const TimestampLayout = "2006-01-02T15:04:05.999999Z"

var (
	latPattern = regexp.MustCompile(`(?:^|[\s|])lat:\s*([-\d.]+)`)
	lonPattern = regexp.MustCompile(`(?:^|[\s|])lon:\s*([-\d.]+)`)
)

// Location is the resolved address a report was filed against. Coordinates is nil when
// the details carried an address but no usable lat/lon pair.
type Location struct {
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Report is a disaster report filed by a requester. Details holds the raw wire string;
// Description and Location are parsed from it once, on creation or load.
type Report struct {
	Name         string
	DisasterType string
	Details      string
	Timestamp    time.Time

	Description string
	Location    *Location
}

// NewReport builds a report and parses the location suffix out of details. ts is
// truncated to the precision the wire form keeps.
func NewReport(name, disasterType, details string, ts time.Time) Report {
	desc, loc := ParseDetails(details)
	return Report{
		Name:         name,
		DisasterType: disasterType,
		Details:      details,
		Timestamp:    ts.UTC().Truncate(time.Microsecond),
		Description:  desc,
		Location:     loc,
	}
}

// Clone returns a copy that shares no pointers with r.
func (r Report) Clone() Report {
	if r.Location != nil {
		loc := *r.Location
		if loc.Coordinates != nil {
			c := *loc.Coordinates
			loc.Coordinates = &c
		}
		r.Location = &loc
	}
	return r
}

type reportJSON struct {
	Name         string `json:"name"`
	DisasterType string `json:"disaster_type"`
	Details      string `json:"details"`
	Timestamp    string `json:"timestamp"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(reportJSON{
		Name:         r.Name,
		DisasterType: r.DisasterType,
		Details:      r.Details,
		Timestamp:    r.Timestamp.UTC().Format(TimestampLayout),
	})
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var raw reportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("error parsing report timestamp %q: %w", raw.Timestamp, err)
	}
	*r = NewReport(raw.Name, raw.DisasterType, raw.Details, ts)
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	// Naive timestamps are already UTC.
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}

// FormatDetails appends the location suffix to a free-text description. A nil location
// leaves the description untouched.
func FormatDetails(description string, loc *Location) string {
	if loc == nil {
		return description
	}
	var b strings.Builder
	b.WriteString(description)
	b.WriteString(" | ")
	b.WriteString(locationMarker)
	b.WriteString(" ")
	b.WriteString(loc.Address)
	if loc.Coordinates != nil {
		fmt.Fprintf(&b, " | lat:%s lon:%s",
			strconv.FormatFloat(loc.Coordinates.Latitude, 'f', -1, 64),
			strconv.FormatFloat(loc.Coordinates.Longitude, 'f', -1, 64))
	}
	return b.String()
}

// ParseDetails splits details into the free-text description and the resolved location.
// Coordinates are only read from the suffix after the location marker; details without
// the marker are all description.
func ParseDetails(details string) (string, *Location) {
	before, after, ok := strings.Cut(details, locationMarker)
	if !ok {
		return strings.TrimSpace(details), nil
	}

	description := strings.TrimSpace(strings.TrimRight(before, " |"))
	addr, coords, _ := strings.Cut(after, detailsSep)
	loc := &Location{Address: strings.TrimSpace(addr)}

	lat, latOK := matchFloat(latPattern, coords)
	lon, lonOK := matchFloat(lonPattern, coords)
	if latOK && lonOK {
		loc.Coordinates = &Coordinates{Latitude: lat, Longitude: lon}
	}

	if loc.Address == "" && loc.Coordinates == nil {
		return description, nil
	}
	return description, loc
}

func matchFloat(re *regexp.Regexp, s string) (float64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
