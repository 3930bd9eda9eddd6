package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

func TestOutcomeLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeFulfilled},
		{fmt.Errorf("%w: bad", models.ErrValidation), OutcomeValidation},
		{fmt.Errorf("%w: moved", models.ErrStaleQuantity), OutcomeStale},
		{fmt.Errorf("%w: short", models.ErrInsufficientStock), OutcomeInsufficient},
		{models.ErrNoVehicleAvailable, OutcomeNoVehicle},
		{fmt.Errorf("disk full"), OutcomeError},
	}

	for _, tt := range tests {
		if got := OutcomeLabel(tt.err); got != tt.want {
			t.Errorf("OutcomeLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCollector_ObserveFulfilment(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	c.ObserveFulfilment("Water", 30, nil)
	c.ObserveFulfilment("water", 10, nil)
	c.ObserveFulfilment("water", 99, models.ErrInsufficientStock)
	c.ObserveFulfilment("rope", 1, nil)

	if got := testutil.ToFloat64(c.requests.WithLabelValues("water", OutcomeFulfilled)); got != 2 {
		t.Errorf("expected 2 fulfilled water requests, got %v", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("water", OutcomeInsufficient)); got != 1 {
		t.Errorf("expected 1 insufficient water request, got %v", got)
	}
	if got := testutil.ToFloat64(c.delivered.WithLabelValues("water")); got != 40 {
		t.Errorf("expected 40 lbs delivered, got %v", got)
	}
	if got := testutil.ToFloat64(c.delivered.WithLabelValues("other")); got != 1 {
		t.Errorf("expected unknown category folded into other, got %v", got)
	}
}

func TestCollector_ObserveReport(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	c.ObserveReport("Flood")
	c.ObserveReport("flood")

	if got := testutil.ToFloat64(c.reports.WithLabelValues("flood")); got != 2 {
		t.Errorf("expected 2 flood reports, got %v", got)
	}
}

func TestNewCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	available := func() int { return 3 }

	first, err := NewCollector(reg, available)
	if err != nil {
		t.Fatalf("first NewCollector failed: %v", err)
	}
	second, err := NewCollector(reg, available)
	if err != nil {
		t.Fatalf("second NewCollector failed: %v", err)
	}

	first.ObserveReport("fire")
	if got := testutil.ToFloat64(second.reports.WithLabelValues("fire")); got != 1 {
		t.Errorf("expected collectors to share counters, got %v", got)
	}
}

func TestHandler_ExposesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg, func() int { return 4 }); err != nil {
		t.Fatalf("NewCollector failed: %v", err)
	}

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "aid_vehicles_available 4") {
		t.Errorf("expected gauge in output, got:\n%s", rec.Body.String())
	}
}
