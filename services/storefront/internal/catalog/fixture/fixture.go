// Package fixture serves the bundled demo catalog used when the live
// catalog is unreachable.
package fixture

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
	"github.com/cyrasubia/phoinix-storefront/pkg/slug"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

//go:embed products.json
var productsJSON []byte

// Source is an in-memory catalog. It has products but no collections.
type Source struct {
	products []domain.Product
	byHandle map[string]int
}

// New loads the embedded demo catalog.
func New() (*Source, error) {
	return Parse(productsJSON)
}

// Parse builds a Source from a JSON array of products. Blank handles are
// derived from the title.
func Parse(data []byte) (*Source, error) {
	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse fixture catalog: %w", err)
	}

	s := &Source{products: products, byHandle: make(map[string]int, len(products))}
	for i := range s.products {
		p := &s.products[i]
		if p.Handle == "" {
			p.Handle = slug.Generate(p.Title)
		}
		if _, dup := s.byHandle[p.Handle]; dup {
			return nil, fmt.Errorf("parse fixture catalog: duplicate handle %q", p.Handle)
		}
		s.byHandle[p.Handle] = i
	}
	return s, nil
}

func (s *Source) ListProducts(context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *Source) GetProduct(_ context.Context, handle string) (*domain.Product, error) {
	i, ok := s.byHandle[handle]
	if !ok {
		return nil, apperrors.NotFound("product", handle)
	}
	p := s.products[i]
	return &p, nil
}

func (s *Source) ListCollections(context.Context) ([]domain.Collection, error) {
	return []domain.Collection{}, nil
}

func (s *Source) GetCollection(_ context.Context, handle string) (*domain.Collection, error) {
	return nil, apperrors.NotFound("collection", handle)
}
