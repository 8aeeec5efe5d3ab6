package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/memory"
)

type failingKV struct {
	*memory.Store
}

func (failingKV) Set(context.Context, string, []byte) error { return errors.New("disk full") }

var _ storage.KeyValue = failingKV{}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestObserve_TracksCart(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	store := cart.NewStore(memory.New(), cart.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(store.Close)
	t.Cleanup(store.Subscribe(m.Observe))
	store.Hydrate(context.Background())

	store.AddItem(domain.LineItem{ID: "p1", VariantID: "v1", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2})
	store.AddItem(domain.LineItem{ID: "p2", VariantID: "v2", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 1})

	assert.Equal(t, float64(2), gaugeValue(t, m.Lines))
	assert.Equal(t, float64(3), gaugeValue(t, m.Units))
	assert.InDelta(t, 22.5, gaugeValue(t, m.Value), 0.0001)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Mutations.WithLabelValues("add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Mutations.WithLabelValues("hydrate")))

	store.ClearCart()
	assert.Equal(t, float64(0), gaugeValue(t, m.Lines))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Mutations.WithLabelValues("clear")))
}

func TestPersistFailed_CountsWriterErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	store := cart.NewStore(failingKV{memory.New()}, cart.Options{OnPersistError: m.PersistFailed}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(store.Close)
	store.Hydrate(context.Background())

	store.AddItem(domain.LineItem{ID: "p1", VariantID: "v1", Quantity: 1})
	store.AddItem(domain.LineItem{ID: "p1", VariantID: "v1", Quantity: 1})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, store.Flush(ctx))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.PersistFailures))
}

func TestNewCartMetrics_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetrics(reg)
	m.Mutations.WithLabelValues("add").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"storefront_cart_lines",
		"storefront_cart_units",
		"storefront_cart_value",
		"storefront_cart_mutations_total",
		"storefront_cart_persist_failures_total",
	}, names)
}
