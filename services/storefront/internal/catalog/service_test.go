package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog/fixture"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

// --- Mock Source ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockSource) GetProduct(ctx context.Context, handle string) (*domain.Product, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockSource) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Collection), args.Error(1)
}

func (m *mockSource) GetCollection(ctx context.Context, handle string) (*domain.Collection, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

// --- helpers ---

func newTestService(t *testing.T, upstream Source) *Service {
	t.Helper()
	fx, err := fixture.New()
	require.NoError(t, err)
	return NewService(upstream, fx, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var errUpstream = errors.New("dial tcp: connection refused")

// --- tests ---

func TestListProducts_Upstream(t *testing.T) {
	up := new(mockSource)
	ctx := context.Background()
	up.On("ListProducts", ctx).Return([]domain.Product{{ID: "gid://1", Handle: "live"}}, nil)

	list, err := newTestService(t, up).ListProducts(ctx)

	require.NoError(t, err)
	assert.Equal(t, SourceShopify, list.Source)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "live", list.Products[0].Handle)
	up.AssertExpectations(t)
}

func TestListProducts_FallsBackOnErrorOrEmpty(t *testing.T) {
	ctx := context.Background()
	for name, ret := range map[string][]any{
		"error": {nil, errUpstream},
		"empty": {[]domain.Product{}, nil},
	} {
		t.Run(name, func(t *testing.T) {
			up := new(mockSource)
			up.On("ListProducts", ctx).Return(ret...)

			list, err := newTestService(t, up).ListProducts(ctx)

			require.NoError(t, err)
			assert.Equal(t, SourceFixture, list.Source)
			assert.Len(t, list.Products, 13)
		})
	}
}

func TestListProducts_NoUpstream(t *testing.T) {
	list, err := newTestService(t, nil).ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceFixture, list.Source)
}

func TestGetProduct_UpstreamHit(t *testing.T) {
	up := new(mockSource)
	ctx := context.Background()
	up.On("GetProduct", ctx, "coq10-ubiquinone").Return(&domain.Product{ID: "gid://1"}, nil)

	p, err := newTestService(t, up).GetProduct(ctx, "coq10-ubiquinone")

	require.NoError(t, err)
	assert.Equal(t, "gid://1", p.ID)
}

func TestGetProduct_FallsBackToFixture(t *testing.T) {
	ctx := context.Background()
	for name, upErr := range map[string]error{
		"upstream failure":   errUpstream,
		"upstream not found": apperrors.NotFound("product", "coq10-ubiquinone"),
	} {
		t.Run(name, func(t *testing.T) {
			up := new(mockSource)
			up.On("GetProduct", ctx, "coq10-ubiquinone").Return(nil, upErr)

			p, err := newTestService(t, up).GetProduct(ctx, "coq10-ubiquinone")

			require.NoError(t, err)
			assert.Equal(t, "demo-1", p.ID)
		})
	}
}

func TestGetProduct_NotFoundAnywhere(t *testing.T) {
	up := new(mockSource)
	ctx := context.Background()
	up.On("GetProduct", ctx, "unicorn-dust").Return(nil, errUpstream)

	_, err := newTestService(t, up).GetProduct(ctx, "unicorn-dust")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Contains(t, appErr.Message, "unicorn-dust")
}

func TestListCollections(t *testing.T) {
	ctx := context.Background()

	up := new(mockSource)
	up.On("ListCollections", ctx).Return([]domain.Collection{{Handle: "coffee"}}, nil)
	cs, err := newTestService(t, up).ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, cs, 1)

	failing := new(mockSource)
	failing.On("ListCollections", ctx).Return(nil, errUpstream)
	cs, err = newTestService(t, failing).ListCollections(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cs)
	assert.Empty(t, cs)
}

func TestGetCollection(t *testing.T) {
	ctx := context.Background()

	up := new(mockSource)
	up.On("GetCollection", ctx, "coffee").Return(&domain.Collection{Handle: "coffee"}, nil)
	c, err := newTestService(t, up).GetCollection(ctx, "coffee")
	require.NoError(t, err)
	assert.Equal(t, "coffee", c.Handle)

	failing := new(mockSource)
	failing.On("GetCollection", ctx, "coffee").Return(nil, errUpstream)
	_, err = newTestService(t, failing).GetCollection(ctx, "coffee")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
