package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/events"
	"github.com/mr1hm/go-aid-dispatch/internal/fleet"
	"github.com/mr1hm/go-aid-dispatch/internal/inventory"
	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/repository"
)

// System is the shared set of components every front end works against.
type System struct {
	Ledger     *inventory.Ledger
	Fleet      *fleet.Fleet
	Stations   StationRegistry
	Engine     *Engine
	Dispatches repository.DispatchRepository
	Events     *events.Broadcaster

	observer Observer
}

// Observer is told about every fulfilment attempt and filed report.
type Observer interface {
	ObserveFulfilment(category string, quantity int, err error)
	ObserveReport(disasterType string)
}

// StationRegistry is the station surface the front ends need.
type StationRegistry interface {
	StationLocator
	AddStation(name string, loc models.Coordinates)
	Stations() []models.Station
}

// NewSystem builds the engine over the given components. dispatches and broadcaster
// may be nil.
func NewSystem(ledger *inventory.Ledger, f *fleet.Fleet, registry StationRegistry, dispatches repository.DispatchRepository, broadcaster *events.Broadcaster) *System {
	var rec Recorder
	if dispatches != nil {
		rec = dispatches
	}
	return &System{
		Ledger:     ledger,
		Fleet:      f,
		Stations:   registry,
		Engine:     NewEngine(ledger, f, registry, rec, broadcaster),
		Dispatches: dispatches,
		Events:     broadcaster,
	}
}

// SetObserver must be called before the system is shared.
func (s *System) SetObserver(o Observer) {
	s.observer = o
}

func (s *System) FulfillRequest(ctx context.Context, req Request) (*Outcome, error) {
	if req.Requester != "" {
		s.Ledger.AddRequester(req.Requester)
	}
	out, err := s.Engine.FulfillRequest(ctx, req)
	if s.observer != nil {
		s.observer.ObserveFulfilment(req.Category, req.Quantity, err)
	}
	return out, err
}

// ReturnVehicle makes name available again and closes its open dispatch records.
func (s *System) ReturnVehicle(ctx context.Context, name string) {
	s.Fleet.ReturnVehicle(name)
	now := time.Now().UTC()

	if s.Dispatches != nil {
		n, err := s.Dispatches.MarkReturned(ctx, name, now)
		if err != nil {
			slog.Error("failed to mark dispatches returned", "vehicle", name, "error", err)
		} else {
			slog.Debug("dispatches closed", "vehicle", name, "count", n)
		}
	}

	s.Events.Publish(&models.Event{
		Type:      models.EventReturned,
		Vehicle:   name,
		Timestamp: now,
	})
	slog.Info("vehicle returned", "vehicle", name)
}

// FileReport adds a report to the ledger and announces it.
func (s *System) FileReport(name, disasterType, details string) (models.Report, error) {
	r, err := s.Ledger.AddReport(name, disasterType, details)
	if err != nil {
		return models.Report{}, err
	}

	if s.observer != nil {
		s.observer.ObserveReport(r.DisasterType)
	}

	published := r.Clone()
	s.Events.Publish(&models.Event{
		Type:      models.EventReportFiled,
		Report:    &published,
		Timestamp: r.Timestamp,
	})
	return r, nil
}

// HasReport lets feed ingestion skip reports already on file.
func (s *System) HasReport(name, disasterType, details string) bool {
	return s.Ledger.HasReport(name, disasterType, details)
}

func (s *System) ListDispatches(ctx context.Context, opts repository.Filter) ([]models.DispatchRecord, error) {
	if s.Dispatches == nil {
		return []models.DispatchRecord{}, nil
	}
	return s.Dispatches.ListDispatches(ctx, opts)
}
