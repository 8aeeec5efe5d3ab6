// Package catalog reads products and collections for the storefront. The
// catalog is read-only and owned elsewhere; this package only degrades
// gracefully when it is unavailable.
package catalog

import (
	"context"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

// Source is a read-only product catalog. Lookups of unknown handles return
// an error matching apperrors.ErrNotFound.
type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, handle string) (*domain.Product, error)
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	GetCollection(ctx context.Context, handle string) (*domain.Collection, error)
}

// Names reported in ProductList.Source.
const (
	SourceShopify = "shopify"
	SourceFixture = "fixture"
)

// ProductList is a product listing plus where it came from.
type ProductList struct {
	Products []domain.Product `json:"products"`
	Source   string           `json:"source"`
}
