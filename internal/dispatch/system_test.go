package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/events"
	"github.com/mr1hm/go-aid-dispatch/internal/fleet"
	"github.com/mr1hm/go-aid-dispatch/internal/inventory"
	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/repository"
	"github.com/mr1hm/go-aid-dispatch/internal/stations"
)

func newTestSystem(t *testing.T) (*System, *repository.SQLiteDB) {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := fleet.New()
	f.Seed("Truck", 2)
	b := events.NewBroadcaster()
	t.Cleanup(b.Close)

	return NewSystem(inventory.NewLedger(nil), f, stations.NewRegistry(), db, b), db
}

func nextEvent(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSystem_FulfillAndReturn(t *testing.T) {
	sys, db := newTestSystem(t)
	ctx := context.Background()
	sys.Ledger.AddSupplies("water", 50)

	id, ch := sys.Events.Subscribe()
	defer sys.Events.Unsubscribe(id)

	out, err := sys.FulfillRequest(ctx, Request{Category: "water", Quantity: 30, Requester: "Alice"})
	if err != nil {
		t.Fatalf("FulfillRequest failed: %v", err)
	}

	if e := nextEvent(t, ch); e.Type != models.EventDispatched || e.Vehicle != "Truck 1" {
		t.Errorf("unexpected event %+v", e)
	}

	rec, err := db.GetByID(ctx, out.ID)
	if err != nil || rec == nil {
		t.Fatalf("expected dispatch record, got %v (err %v)", rec, err)
	}
	if rec.Requester != "Alice" || rec.Quantity != 30 {
		t.Errorf("unexpected record %+v", rec)
	}
	if got := sys.Ledger.Requesters(); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("expected Alice registered, got %v", got)
	}

	sys.ReturnVehicle(ctx, "Truck 1")

	if e := nextEvent(t, ch); e.Type != models.EventReturned {
		t.Errorf("expected returned event, got %s", e.Type)
	}
	if !sys.Fleet.IsAvailable("Truck 1") {
		t.Error("expected Truck 1 available")
	}
	open, err := sys.ListDispatches(ctx, repository.Filter{OpenOnly: true})
	if err != nil {
		t.Fatalf("ListDispatches failed: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("expected no open dispatches, got %d", len(open))
	}
}

func TestSystem_FailedRequestNotRecorded(t *testing.T) {
	sys, _ := newTestSystem(t)
	ctx := context.Background()

	if _, err := sys.FulfillRequest(ctx, Request{Category: "medical", Quantity: 1}); err == nil {
		t.Fatal("expected failure")
	}
	all, err := sys.ListDispatches(ctx, repository.Filter{})
	if err != nil {
		t.Fatalf("ListDispatches failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no records, got %d", len(all))
	}
}

func TestSystem_FileReport(t *testing.T) {
	sys, _ := newTestSystem(t)

	id, ch := sys.Events.Subscribe()
	defer sys.Events.Unsubscribe(id)

	r, err := sys.FileReport("Carol", "flood", "river over the bank")
	if err != nil {
		t.Fatalf("FileReport failed: %v", err)
	}
	e := nextEvent(t, ch)
	if e.Type != models.EventReportFiled || e.Report == nil || e.Report.Name != "Carol" {
		t.Errorf("unexpected event %+v", e)
	}
	if !sys.HasReport(r.Name, r.DisasterType, r.Details) {
		t.Error("expected report on file")
	}
}

func TestSystem_NoDispatchLog(t *testing.T) {
	f := fleet.New()
	f.Seed("Truck", 1)
	sys := NewSystem(inventory.NewLedger(nil), f, stations.NewRegistry(), nil, nil)
	sys.Ledger.AddSupplies("food", 10)

	if _, err := sys.FulfillRequest(context.Background(), Request{Category: "food", Quantity: 5}); err != nil {
		t.Fatalf("FulfillRequest failed: %v", err)
	}
	sys.ReturnVehicle(context.Background(), "Truck 1")

	got, err := sys.ListDispatches(context.Background(), repository.Filter{})
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty list, got %v (err %v)", got, err)
	}
}

type countingObserver struct {
	outcomes []error
	reports  []string
}

func (o *countingObserver) ObserveFulfilment(category string, quantity int, err error) {
	o.outcomes = append(o.outcomes, err)
}

func (o *countingObserver) ObserveReport(disasterType string) {
	o.reports = append(o.reports, disasterType)
}

func TestSystem_Observer(t *testing.T) {
	sys, _ := newTestSystem(t)
	obs := &countingObserver{}
	sys.SetObserver(obs)
	sys.Ledger.AddSupplies("food", 5)

	if _, err := sys.FulfillRequest(context.Background(), Request{Category: "food", Quantity: 5}); err != nil {
		t.Fatalf("FulfillRequest failed: %v", err)
	}
	sys.FulfillRequest(context.Background(), Request{Category: "food", Quantity: 1})
	sys.FileReport("Ann", "flood", "water rising")

	if len(obs.outcomes) != 2 {
		t.Fatalf("expected 2 observed attempts, got %d", len(obs.outcomes))
	}
	if obs.outcomes[0] != nil || !errors.Is(obs.outcomes[1], models.ErrInsufficientStock) {
		t.Errorf("unexpected outcomes %v", obs.outcomes)
	}
	if len(obs.reports) != 1 || obs.reports[0] != "flood" {
		t.Errorf("unexpected reports %v", obs.reports)
	}
}
