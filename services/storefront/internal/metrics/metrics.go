// Package metrics exports the cart's state and write failures to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
)

// CartMetrics tracks the current cart and the changes made to it.
type CartMetrics struct {
	Lines           prometheus.Gauge
	Units           prometheus.Gauge
	Value           prometheus.Gauge
	Mutations       *prometheus.CounterVec
	PersistFailures prometheus.Counter
}

// NewCartMetrics creates and registers cart metrics on reg.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	m := &CartMetrics{
		Lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_lines",
			Help: "Number of distinct lines in the cart",
		}),
		Units: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_units",
			Help: "Total quantity across all cart lines",
		}),
		Value: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_value",
			Help: "Total price of the cart",
		}),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_mutations_total",
				Help: "Total number of cart changes by operation",
			},
			[]string{"op"},
		),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Total number of failed cart writes to storage",
		}),
	}
	reg.MustRegister(m.Lines, m.Units, m.Value, m.Mutations, m.PersistFailures)
	return m
}

// Observe records snap. Pass it to cart.Store.Subscribe.
func (m *CartMetrics) Observe(snap cart.Snapshot) {
	m.Lines.Set(float64(len(snap.Items)))
	m.Units.Set(float64(snap.TotalItems()))
	m.Value.Set(snap.TotalPrice().InexactFloat64())
	m.Mutations.WithLabelValues(string(snap.Op)).Inc()
}

// PersistFailed counts a failed write. Use it as cart.Options.OnPersistError.
func (m *CartMetrics) PersistFailed(error) {
	m.PersistFailures.Inc()
}
