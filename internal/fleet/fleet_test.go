package fleet

import (
	"sync"
	"testing"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

func TestFleet_Dispatch(t *testing.T) {
	f := New()
	f.AddVehicle("Truck 1")

	if !f.Dispatch("Truck 1") {
		t.Fatal("expected dispatch to succeed")
	}
	if f.IsAvailable("Truck 1") {
		t.Error("expected Truck 1 to be dispatched")
	}
}

func TestFleet_DispatchUnknown(t *testing.T) {
	f := New()
	if f.Dispatch("Truck 2") {
		t.Error("expected dispatch of unknown vehicle to fail")
	}
	if len(f.Vehicles()) != 0 {
		t.Error("failed dispatch registered a vehicle")
	}
}

func TestFleet_DispatchTwice(t *testing.T) {
	f := New()
	f.AddVehicle("Truck 3")
	f.Dispatch("Truck 3")

	if f.Dispatch("Truck 3") {
		t.Error("expected second dispatch to fail")
	}
	if f.IsAvailable("Truck 3") {
		t.Error("failed dispatch changed state")
	}
}

func TestFleet_DispatchReturnDispatch(t *testing.T) {
	f := New()
	f.AddVehicle("Truck 1")

	if !f.Dispatch("Truck 1") {
		t.Fatal("first dispatch failed")
	}
	f.ReturnVehicle("Truck 1")
	if !f.IsAvailable("Truck 1") {
		t.Fatal("expected vehicle available after return")
	}
	if !f.Dispatch("Truck 1") {
		t.Error("dispatch after return failed")
	}
}

func TestFleet_AvailabilityChecks(t *testing.T) {
	f := New()
	f.AddVehicle("Truck 3")
	f.Dispatch("Truck 3")
	f.AddVehicle("Truck 4")

	if f.IsAvailable("Truck 3") {
		t.Error("Truck 3 should be dispatched")
	}
	if !f.IsAvailable("Truck 4") {
		t.Error("Truck 4 should be available")
	}
	if f.IsAvailable("Truck 99") {
		t.Error("unknown vehicle should report unavailable")
	}
}

func TestFleet_ReAddResets(t *testing.T) {
	f := New()
	f.AddVehicle("Truck 1")
	f.AddVehicle("Truck 2")
	f.Dispatch("Truck 1")
	f.AddVehicle("Truck 1")

	if !f.IsAvailable("Truck 1") {
		t.Error("re-adding should reset to available")
	}
	v := f.Vehicles()
	if len(v) != 2 || v[0].Name != "Truck 1" {
		t.Errorf("re-adding should keep registration position, got %+v", v)
	}
}

func TestFleet_ReturnUnknownRegisters(t *testing.T) {
	f := New()
	f.ReturnVehicle("Spare")

	if !f.IsAvailable("Spare") {
		t.Error("expected returned unknown vehicle to be registered available")
	}
}

func TestFleet_FirstAvailable(t *testing.T) {
	f := New()
	if _, ok := f.FirstAvailable(); ok {
		t.Error("expected no vehicle in empty fleet")
	}

	f.Seed("Truck", 3)
	f.Dispatch("Truck 1")

	name, ok := f.FirstAvailable()
	if !ok || name != "Truck 2" {
		t.Errorf("expected Truck 2, got %q (%v)", name, ok)
	}

	f.Dispatch("Truck 2")
	f.Dispatch("Truck 3")
	if _, ok := f.FirstAvailable(); ok {
		t.Error("expected no vehicle when all dispatched")
	}
}

func TestFleet_Vehicles(t *testing.T) {
	f := New()
	f.Seed("Van", 2)
	f.Dispatch("Van 2")

	v := f.Vehicles()
	want := []models.Vehicle{
		{Name: "Van 1", Status: models.VehicleAvailable},
		{Name: "Van 2", Status: models.VehicleDispatched},
	}
	if len(v) != len(want) {
		t.Fatalf("expected %d vehicles, got %d", len(want), len(v))
	}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("vehicle %d: expected %+v, got %+v", i, want[i], v[i])
		}
	}
}

func TestFleet_ConcurrentDispatch(t *testing.T) {
	f := New()
	f.AddVehicle("Truck 1")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Dispatch("Truck 1") {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("expected exactly one successful dispatch, got %d", success)
	}
}
