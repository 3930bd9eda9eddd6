// Package dispatch ties the inventory ledger, the vehicle fleet and the station
// registry together into the fulfilment workflow.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

const defaultRequester = "Requester"

type Inventory interface {
	CheckInventory(category string) int
	RemoveSupplies(category string, quantity int) error
}

type Vehicles interface {
	FirstAvailable() (string, bool)
	Dispatch(name string) bool
	ReturnVehicle(name string)
}

type StationLocator interface {
	NearestStation(point models.Coordinates) (string, float64, bool)
}

// Recorder keeps a durable trace of successful dispatches.
type Recorder interface {
	Record(ctx context.Context, d *models.DispatchRecord) error
}

type Publisher interface {
	Publish(e *models.Event)
}

type Request struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	// Quoted is the stock figure last shown to the caller, if any. Asking for more
	// than was quoted is rejected rather than trusted.
	Quoted    *int                `json:"quoted,omitempty"`
	Requester string              `json:"requester,omitempty"`
	Location  *models.Coordinates `json:"location,omitempty"`
}

type Outcome struct {
	ID              string    `json:"id"`
	Vehicle         string    `json:"vehicle"`
	Category        string    `json:"category"`
	Quantity        int       `json:"quantity"`
	Requester       string    `json:"requester"`
	Station         string    `json:"station,omitempty"`
	StationDistance float64   `json:"station_distance,omitempty"`
	Message         string    `json:"message"`
	DispatchedAt    time.Time `json:"dispatched_at"`
}

// Engine runs fulfilments one at a time. It owns no state besides that lock; every
// mutation goes through the components it was built with.
type Engine struct {
	mu        sync.Mutex
	inventory Inventory
	vehicles  Vehicles
	stations  StationLocator
	recorder  Recorder
	publisher Publisher
	now       func() time.Time
}

// NewEngine wires the workflow. stations, recorder and publisher may be nil.
func NewEngine(inv Inventory, vehicles Vehicles, stations StationLocator, recorder Recorder, publisher Publisher) *Engine {
	return &Engine{
		inventory: inv,
		vehicles:  vehicles,
		stations:  stations,
		recorder:  recorder,
		publisher: publisher,
		now:       time.Now,
	}
}

// FulfillRequest confirms stock, assigns a vehicle and decrements the inventory. It
// either does all of that or none of it: on any late failure the vehicle is returned.
func (e *Engine) FulfillRequest(ctx context.Context, req Request) (*Outcome, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %d", models.ErrValidation, req.Quantity)
	}
	if req.Category == "" {
		return nil, fmt.Errorf("%w: category is required", models.ErrValidation)
	}
	if req.Requester == "" {
		req.Requester = defaultRequester
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Quoted != nil && req.Quantity > *req.Quoted {
		return nil, fmt.Errorf("%w: requested %d %s but only %d was offered",
			models.ErrStaleQuantity, req.Quantity, req.Category, *req.Quoted)
	}
	vehicle, ok := e.vehicles.FirstAvailable()
	if !ok {
		return nil, models.ErrNoVehicleAvailable
	}
	if have := e.inventory.CheckInventory(req.Category); req.Quantity > have {
		return nil, fmt.Errorf("%w: requested %d %s, %d available",
			models.ErrInsufficientStock, req.Quantity, req.Category, have)
	}
	if !e.vehicles.Dispatch(vehicle) {
		return nil, fmt.Errorf("%w: %s was taken before dispatch", models.ErrNoVehicleAvailable, vehicle)
	}

	// Stock may have moved since the first check.
	if have := e.inventory.CheckInventory(req.Category); req.Quantity > have {
		e.vehicles.ReturnVehicle(vehicle)
		slog.Warn("stock fell before commit, vehicle released",
			"vehicle", vehicle, "category", req.Category, "requested", req.Quantity, "available", have)
		return nil, fmt.Errorf("%w: only %d %s available now",
			models.ErrInsufficientStock, have, req.Category)
	}
	if err := e.inventory.RemoveSupplies(req.Category, req.Quantity); err != nil {
		e.vehicles.ReturnVehicle(vehicle)
		return nil, err
	}

	out := &Outcome{
		ID:           uuid.NewString(),
		Vehicle:      vehicle,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Requester:    req.Requester,
		DispatchedAt: e.now().UTC(),
	}
	if req.Location != nil && e.stations != nil {
		if name, d, ok := e.stations.NearestStation(*req.Location); ok {
			out.Station = name
			out.StationDistance = d
		}
	}
	out.Message = describe(out)

	e.record(ctx, out)

	slog.Info("request fulfilled",
		"vehicle", vehicle, "category", req.Category, "quantity", req.Quantity, "requester", req.Requester)
	return out, nil
}

// record logs the dispatch and notifies subscribers. Neither can undo a fulfilment.
func (e *Engine) record(ctx context.Context, out *Outcome) {
	rec := &models.DispatchRecord{
		ID:        out.ID,
		Vehicle:   out.Vehicle,
		Category:  out.Category,
		Quantity:  out.Quantity,
		Requester: out.Requester,
		Station:   out.Station,
		CreatedAt: out.DispatchedAt,
	}
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, rec); err != nil {
			slog.Error("failed to record dispatch", "id", rec.ID, "error", err)
		}
	}
	if e.publisher != nil {
		e.publisher.Publish(&models.Event{
			Type:      models.EventDispatched,
			Vehicle:   out.Vehicle,
			Dispatch:  rec,
			Timestamp: out.DispatchedAt,
		})
	}
}

func describe(o *Outcome) string {
	var msg string
	cat, known := models.LookupCategory(o.Category)
	switch {
	case known && cat.IsBinary():
		msg = fmt.Sprintf("%s dispatched with medical supplies to %s's location.", o.Vehicle, o.Requester)
	case known:
		msg = fmt.Sprintf("%s dispatched with %s of %s to %s's location.",
			o.Vehicle, cat.FormatQuantity(o.Quantity), cat.Name, o.Requester)
	default:
		msg = fmt.Sprintf("%s dispatched with %d of %s to %s's location.",
			o.Vehicle, o.Quantity, o.Category, o.Requester)
	}
	if o.Station != "" {
		msg += fmt.Sprintf(" Nearest aid station: %s (%.2f away).", o.Station, o.StationDistance)
	}
	return msg
}
