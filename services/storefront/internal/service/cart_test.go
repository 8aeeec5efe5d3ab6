package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/storage/memory"
)

// --- Mock catalog ---

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetProduct(ctx context.Context, handle string) (*domain.Product, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, catalog *mockCatalog) (*CartService, *cart.Store) {
	t.Helper()
	store := cart.NewStore(memory.New(), cart.Options{MaxLineQuantity: MaxQuantityPerItem}, newTestLogger())
	t.Cleanup(store.Close)
	store.Hydrate(context.Background())
	return NewCartService(store, catalog, newTestLogger()), store
}

func coq10() *domain.Product {
	return &domain.Product{
		ID:     "demo-1",
		Title:  "CoQ10 Ubiquinone",
		Handle: "coq10-ubiquinone",
		Price:  decimal.RequireFromString("30.00"),
		Images: []domain.Image{{URL: "/coq10.jpg"}},
		Variants: []domain.Variant{
			{ID: "variant-1", Title: "30 Capsules", AvailableForSale: true, Price: decimal.RequireFromString("30.00")},
		},
	}
}

// --- Tests ---

func TestAddToCart_DefaultsQuantityAndUsesFirstVariant(t *testing.T) {
	catalog := new(mockCatalog)
	svc, store := newTestService(t, catalog)
	ctx := context.Background()
	catalog.On("GetProduct", ctx, "coq10-ubiquinone").Return(coq10(), nil)

	view, err := svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone"})

	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	li := view.Items[0]
	assert.Equal(t, "demo-1", li.ID)
	assert.Equal(t, "variant-1", li.VariantID)
	assert.Equal(t, "/coq10.jpg", li.ImageURL)
	assert.Equal(t, 1, li.Quantity)
	assert.Equal(t, 1, view.TotalItems)
	assert.True(t, decimal.RequireFromString("30").Equal(view.TotalPrice))
	assert.False(t, store.PanelOpen())
	catalog.AssertExpectations(t)
}

func TestAddToCart_OpensPanel(t *testing.T) {
	catalog := new(mockCatalog)
	svc, _ := newTestService(t, catalog)
	ctx := context.Background()
	catalog.On("GetProduct", ctx, "coq10-ubiquinone").Return(coq10(), nil)

	view, err := svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone", Quantity: 2, OpenPanel: true})

	require.NoError(t, err)
	assert.True(t, view.PanelOpen)
	assert.Equal(t, 2, view.TotalItems)
}

func TestAddToCart_ProductNotFound(t *testing.T) {
	catalog := new(mockCatalog)
	svc, _ := newTestService(t, catalog)
	ctx := context.Background()
	catalog.On("GetProduct", ctx, "unicorn-dust").Return(nil, apperrors.NotFound("product", "unicorn-dust"))

	_, err := svc.AddToCart(ctx, AddToCartInput{Handle: "unicorn-dust"})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAddToCart_NoVariant(t *testing.T) {
	catalog := new(mockCatalog)
	svc, store := newTestService(t, catalog)
	ctx := context.Background()
	p := coq10()
	p.Variants = nil
	catalog.On("GetProduct", ctx, "coq10-ubiquinone").Return(p, nil)

	_, err := svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, store.Items())
}

func TestAddToCart_NotAvailableForSale(t *testing.T) {
	catalog := new(mockCatalog)
	svc, store := newTestService(t, catalog)
	ctx := context.Background()
	p := coq10()
	p.Variants[0].AvailableForSale = false
	catalog.On("GetProduct", ctx, "coq10-ubiquinone").Return(p, nil)

	_, err := svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone"})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Empty(t, store.Items())
}

func TestAddToCart_QuantityLimits(t *testing.T) {
	catalog := new(mockCatalog)
	svc, _ := newTestService(t, catalog)
	ctx := context.Background()
	catalog.On("GetProduct", ctx, "coq10-ubiquinone").Return(coq10(), nil)

	_, err := svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone", Quantity: 101})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone", Quantity: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone", Quantity: 60})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone", Quantity: 41})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "combined quantity")
}

func TestAddToCart_MaxItemsPerCart(t *testing.T) {
	catalog := new(mockCatalog)
	svc, store := newTestService(t, catalog)
	ctx := context.Background()

	for i := 0; i < MaxItemsPerCart; i++ {
		store.AddItem(domain.LineItem{ID: "p", VariantID: "v" + string(rune('A'+i)), Quantity: 1})
	}
	catalog.On("GetProduct", ctx, "coq10-ubiquinone").Return(coq10(), nil)

	_, err := svc.AddToCart(ctx, AddToCartInput{Handle: "coq10-ubiquinone"})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "more than 50 items")
}

func TestAddToCart_BlankHandle(t *testing.T) {
	svc, _ := newTestService(t, new(mockCatalog))
	_, err := svc.AddToCart(context.Background(), AddToCartInput{Handle: "  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdateQuantity(t *testing.T) {
	svc, store := newTestService(t, new(mockCatalog))
	ctx := context.Background()
	store.AddItem(coq10().LineItem(coq10().Variants[0], 1))

	view, err := svc.UpdateQuantity(ctx, "demo-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.TotalItems)

	_, err = svc.UpdateQuantity(ctx, "demo-1", 101)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = svc.UpdateQuantity(ctx, "", 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	view, err = svc.UpdateQuantity(ctx, "demo-1", -5)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, store := newTestService(t, new(mockCatalog))
	ctx := context.Background()
	store.AddItem(domain.LineItem{ID: "p1", VariantID: "v1", UnitPrice: decimal.NewFromInt(10), Quantity: 1})
	store.AddItem(domain.LineItem{ID: "p2", VariantID: "v2", UnitPrice: decimal.NewFromInt(5), Quantity: 1})

	view, err := svc.RemoveItem(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "v2", view.Items[0].VariantID)

	view, err = svc.RemoveItem(ctx, "unknown")
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	_, err = svc.RemoveItem(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	view = svc.ClearCart(ctx)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
	view = svc.ClearCart(ctx)
	assert.Equal(t, 0, view.TotalItems)
}

func TestSetPanelOpenAndRefresh(t *testing.T) {
	svc, _ := newTestService(t, new(mockCatalog))
	ctx := context.Background()

	assert.True(t, svc.SetPanelOpen(ctx, true).PanelOpen)
	assert.False(t, svc.SetPanelOpen(ctx, false).PanelOpen)

	view := svc.Refresh(ctx)
	assert.True(t, view.Hydrated)
	assert.Greater(t, view.Revision, uint64(0))
}
