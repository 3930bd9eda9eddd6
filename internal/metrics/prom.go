// Package metrics exposes fulfilment and report counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

// Outcome labels for fulfilment attempts.
const (
	OutcomeFulfilled    = "fulfilled"
	OutcomeValidation   = "validation"
	OutcomeStale        = "stale_quantity"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeNoVehicle    = "no_vehicle"
	OutcomeError        = "error"
)

type Collector struct {
	requests  *prometheus.CounterVec
	delivered *prometheus.CounterVec
	reports   *prometheus.CounterVec
}

// NewCollector registers the collectors on reg, reusing ones already registered
// there. A nil reg uses the default registerer. available, when set, backs a gauge
// of vehicles ready for dispatch.
func NewCollector(reg prometheus.Registerer, available func() int) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aid_fulfilment_requests_total",
		Help: "Fulfilment attempts by category and outcome",
	}, []string{"category", "outcome"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aid_supplies_dispatched_total",
		Help: "Units of supplies sent out, by category",
	}, []string{"category"})
	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aid_reports_filed_total",
		Help: "Disaster reports filed, by disaster type",
	}, []string{"disaster_type"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if delivered, err = register(reg, delivered); err != nil {
		return nil, err
	}
	if reports, err = register(reg, reports); err != nil {
		return nil, err
	}

	if available != nil {
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "aid_vehicles_available",
			Help: "Vehicles currently available for dispatch",
		}, func() float64 { return float64(available()) })
		if err := reg.Register(gauge); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
		}
	}

	return &Collector{requests: requests, delivered: delivered, reports: reports}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

// ObserveFulfilment counts one attempt; err is the attempt's result.
func (c *Collector) ObserveFulfilment(category string, quantity int, err error) {
	category = categoryLabel(category)
	outcome := OutcomeLabel(err)
	c.requests.WithLabelValues(category, outcome).Inc()
	if outcome == OutcomeFulfilled {
		c.delivered.WithLabelValues(category).Add(float64(quantity))
	}
}

func (c *Collector) ObserveReport(disasterType string) {
	c.reports.WithLabelValues(strings.ToLower(disasterType)).Inc()
}

// categoryLabel keeps catalogue names and folds anything else into "other".
func categoryLabel(name string) string {
	if cat, ok := models.LookupCategory(name); ok {
		return cat.Name
	}
	return "other"
}

func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return OutcomeFulfilled
	case errors.Is(err, models.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, models.ErrStaleQuantity):
		return OutcomeStale
	case errors.Is(err, models.ErrInsufficientStock):
		return OutcomeInsufficient
	case errors.Is(err, models.ErrNoVehicleAvailable):
		return OutcomeNoVehicle
	default:
		return OutcomeError
	}
}

// Handler serves the metrics gathered by g, or the default gatherer when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
