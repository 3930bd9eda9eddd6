package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mr1hm/go-aid-dispatch/internal/dispatch"
	"github.com/mr1hm/go-aid-dispatch/internal/fleet"
	"github.com/mr1hm/go-aid-dispatch/internal/geocode"
	"github.com/mr1hm/go-aid-dispatch/internal/inventory"
	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/stations"
)

type stubGeocoder struct {
	got geocode.Address
	loc *models.Location
}

func (s *stubGeocoder) Lookup(ctx context.Context, addr geocode.Address) *models.Location {
	s.got = addr
	return s.loc
}

func newTestSystem(trucks int) *dispatch.System {
	f := fleet.New()
	f.Seed("Truck", trucks)
	return dispatch.NewSystem(inventory.NewLedger(nil), f, stations.NewRegistry(), nil, nil)
}

func run(t *testing.T, sys *dispatch.System, geo Geocoder, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := New(sys, geo, "gov", in, &out).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String()
}

func TestConsole_OperatorAddAndCheck(t *testing.T) {
	sys := newTestSystem(1)

	out := run(t, sys, nil,
		"gov",
		"add", "4", "50",
		"add", "2",
		"add", "9",
		"add", "1", "-3",
		"check",
		"exit",
	)

	if got := sys.Ledger.CheckInventory("water"); got != 50 {
		t.Errorf("expected 50 water, got %d", got)
	}
	if got := sys.Ledger.CheckInventory("medical"); got != 1 {
		t.Errorf("expected medical 1, got %d", got)
	}
	for _, want := range []string{
		"Added water (50 lbs) to storage.",
		"Added medical supplies to storage.",
		"Invalid choice.",
		"Invalid quantity.",
		"water (50 lbs)",
		"Medical supplies: Available",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestConsole_OperatorStationsAndReports(t *testing.T) {
	sys := newTestSystem(1)
	sys.FileReport("Ann", "flood", "water rising | location_resolved: High St | lat:51.5 lon:-0.12")
	sys.FileReport("Ben", "fire", "smoke")

	out := run(t, sys, nil,
		"gov",
		"stations", "1", "Hub A", "north", "1", "Hub B", "Atlantis", "2", "3",
		"reports", "1", "2", "1", "3",
		"exit",
	)

	list := sys.Stations.Stations()
	if len(list) != 1 || list[0].Name != "Hub A" {
		t.Errorf("unexpected stations %+v", list)
	}
	if !strings.Contains(out, "Invalid location.") {
		t.Error("expected invalid region to be rejected")
	}
	for _, want := range []string{
		"Details: water rising",
		"Address: High St",
		"Lat/Lon: 51.5 / -0.12",
		"Address: Address unknown",
		"Lat/Lon: N/A / N/A",
		"Report deleted successfully.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if reports := sys.Ledger.Reports(); len(reports) != 1 || reports[0].Name != "Ben" {
		t.Errorf("unexpected reports %+v", reports)
	}
}

func TestConsole_OperatorReturnsVehicle(t *testing.T) {
	sys := newTestSystem(1)
	sys.Fleet.Dispatch("Truck 1")

	out := run(t, sys, nil, "gov", "vehicles", "Truck 1", "exit")

	if !sys.Fleet.IsAvailable("Truck 1") {
		t.Error("expected Truck 1 to be returned")
	}
	if !strings.Contains(out, "Truck 1 is available again.") {
		t.Error("expected confirmation")
	}
}

func TestConsole_RequesterFlow(t *testing.T) {
	sys := newTestSystem(1)
	sys.Ledger.AddSupplies("water", 50)

	out := run(t, sys, nil,
		"",
		"non",
		"Alice",
		"n",
		"request", "1", "30", "n",
	)

	if !strings.Contains(out, "1. water (50 lbs available)") {
		t.Errorf("expected offer listing, got:\n%s", out)
	}
	if !strings.Contains(out, "Truck 1 dispatched with 30 lbs of water to Alice's location.") {
		t.Errorf("expected dispatch message, got:\n%s", out)
	}
	if got := sys.Ledger.CheckInventory("water"); got != 20 {
		t.Errorf("expected 20 left, got %d", got)
	}
	if got := sys.Ledger.Requesters(); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("expected Alice registered, got %v", got)
	}
}

func TestConsole_RequesterNoVehicle(t *testing.T) {
	sys := newTestSystem(0)
	sys.Ledger.AddSupplies("food", 10)

	out := run(t, sys, nil, "", "non", "Bob", "n", "request", "1", "5", "y", "exit")

	if !strings.Contains(out, "No trucks available to dispatch at the moment.") {
		t.Errorf("expected no-vehicle message, got:\n%s", out)
	}
	if got := sys.Ledger.CheckInventory("food"); got != 10 {
		t.Errorf("expected food untouched, got %d", got)
	}
}

func TestConsole_RequesterInvalidAmount(t *testing.T) {
	sys := newTestSystem(1)
	sys.Ledger.AddSupplies("food", 10)

	out := run(t, sys, nil, "", "non", "Cy", "n", "request", "1", "11", "exit")

	if !strings.Contains(out, "Invalid amount.") {
		t.Errorf("expected invalid amount, got:\n%s", out)
	}
}

func TestConsole_RequesterNothingAvailable(t *testing.T) {
	sys := newTestSystem(1)

	out := run(t, sys, nil, "", "non", "", "n", "request", "exit")

	if !strings.Contains(out, "Sorry, no supplies are currently available.") {
		t.Errorf("expected empty message, got:\n%s", out)
	}
	if got := sys.Ledger.Requesters(); len(got) != 1 || got[0] != "Requester" {
		t.Errorf("expected default requester name, got %v", got)
	}
}

func TestConsole_RequesterFilesGeocodedReport(t *testing.T) {
	sys := newTestSystem(1)
	geo := &stubGeocoder{loc: &models.Location{
		Address:     "1 Main St, Town",
		Coordinates: &models.Coordinates{Latitude: 10, Longitude: 20},
	}}

	out := run(t, sys, geo,
		"", "non", "Dee",
		"y", "flood", "street underwater",
		"1", "Main St", "Town", "Land",
		"exit",
	)

	if !strings.Contains(out, "Report saved.") {
		t.Errorf("expected report saved, got:\n%s", out)
	}
	if geo.got.Street != "Main St" || geo.got.Country != "Land" {
		t.Errorf("unexpected address passed to geocoder %+v", geo.got)
	}
	reports := sys.Ledger.Reports()
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	want := "street underwater | location_resolved: 1 Main St, Town | lat:10 lon:20"
	if reports[0].Details != want {
		t.Errorf("expected details %q, got %q", want, reports[0].Details)
	}
}

func TestConsole_WrongPasswordExits(t *testing.T) {
	sys := newTestSystem(1)

	out := run(t, sys, nil, "nope", "maybe")

	if !strings.Contains(out, "Exiting.") {
		t.Errorf("expected exit, got:\n%s", out)
	}
}

func TestConsole_EOFEndsSession(t *testing.T) {
	sys := newTestSystem(1)

	// No exit command: input simply runs out.
	run(t, sys, nil, "gov", "check")
}
