// Package fleet tracks which delivery vehicles are available for dispatch.
package fleet

import (
	"fmt"
	"sync"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

// Fleet is a set of named vehicles, each Available or Dispatched. Registration order
// is kept and decides which vehicle FirstAvailable picks.
type Fleet struct {
	mu        sync.RWMutex
	available map[string]bool
	order     []string
}

func New() *Fleet {
	return &Fleet{
		available: make(map[string]bool),
	}
}

// Seed registers count vehicles named "<prefix> 1" .. "<prefix> count".
func (f *Fleet) Seed(prefix string, count int) {
	for i := 1; i <= count; i++ {
		f.AddVehicle(fmt.Sprintf("%s %d", prefix, i))
	}
}

// AddVehicle registers name as Available. Re-adding a known vehicle resets it.
func (f *Fleet) AddVehicle(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setAvailable(name)
}

// Dispatch flips an Available vehicle to Dispatched. It returns false for unknown or
// already dispatched vehicles and leaves state unchanged.
func (f *Fleet) Dispatch(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	avail, ok := f.available[name]
	if !ok || !avail {
		return false
	}
	f.available[name] = false
	return true
}

// ReturnVehicle marks name Available, registering it if unknown.
func (f *Fleet) ReturnVehicle(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setAvailable(name)
}

// IsAvailable is false for unknown vehicles.
func (f *Fleet) IsAvailable(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.available[name]
}

// FirstAvailable returns the earliest-registered Available vehicle.
func (f *Fleet) FirstAvailable() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, name := range f.order {
		if f.available[name] {
			return name, true
		}
	}
	return "", false
}

func (f *Fleet) AvailableCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := 0
	for _, avail := range f.available {
		if avail {
			n++
		}
	}
	return n
}

func (f *Fleet) Vehicles() []models.Vehicle {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Vehicle, 0, len(f.order))
	for _, name := range f.order {
		status := models.VehicleDispatched
		if f.available[name] {
			status = models.VehicleAvailable
		}
		out = append(out, models.Vehicle{Name: name, Status: status})
	}
	return out
}

func (f *Fleet) setAvailable(name string) {
	if _, ok := f.available[name]; !ok {
		f.order = append(f.order, name)
	}
	f.available[name] = true
}
