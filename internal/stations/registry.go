// Package stations registers aid-station locations and answers nearest-station queries.
//
// Distances are Euclidean in the raw coordinate space. That is only a fair proxy for
// physical distance over a single region; lat/lon pairs far apart are not corrected.
package stations

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

// Regions are the preset locations operators pick from when adding a station.
var Regions = map[string]models.Coordinates{
	"North":   {Latitude: 51.5074, Longitude: -0.1278},
	"South":   {Latitude: 50.9097, Longitude: -1.4044},
	"East":    {Latitude: 52.6369, Longitude: 1.2989},
	"West":    {Latitude: 51.4816, Longitude: -3.1791},
	"Central": {Latitude: 52.4862, Longitude: -1.8904},
}

// RegionNames lists Regions in a stable order.
func RegionNames() []string {
	names := make([]string, 0, len(Regions))
	for k := range Regions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LookupRegion matches name case-insensitively.
func LookupRegion(name string) (models.Coordinates, bool) {
	for k, c := range Regions {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return models.Coordinates{}, false
}

type Registry struct {
	mu        sync.RWMutex
	locations map[string]models.Coordinates
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{
		locations: make(map[string]models.Coordinates),
	}
}

// AddStation registers name at loc, moving it if it already exists.
func (r *Registry) AddStation(name string, loc models.Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.locations[name]; !ok {
		r.order = append(r.order, name)
	}
	r.locations[name] = loc
}

func (r *Registry) Station(name string) (models.Coordinates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc, ok := r.locations[name]
	return loc, ok
}

// Distance returns the distance from point to the named station.
func (r *Registry) Distance(point models.Coordinates, stationName string) (float64, error) {
	loc, ok := r.Station(stationName)
	if !ok {
		return 0, fmt.Errorf("%w: %q does not exist", models.ErrUnknownStation, stationName)
	}
	return point.DistanceTo(loc), nil
}

// NearestStation scans every station and returns the closest one. Ties go to the
// station registered first. ok is false when the registry is empty.
func (r *Registry) NearestStation(point models.Coordinates) (name string, distance float64, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	distance = math.Inf(1)
	for _, n := range r.order {
		if d := point.DistanceTo(r.locations[n]); d < distance {
			name, distance, ok = n, d, true
		}
	}
	if !ok {
		return "", 0, false
	}
	return name, distance, true
}

// Stations lists stations in registration order.
func (r *Registry) Stations() []models.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Station, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, models.Station{Name: n, Location: r.locations[n]})
	}
	return out
}
