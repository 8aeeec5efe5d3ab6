package catalog

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

// Service reads from an upstream Source and falls back to a bundled one.
// Upstream failures are logged, never returned.
type Service struct {
	upstream Source
	fallback Source
	logger   *slog.Logger
}

// NewService creates a catalog service. upstream may be nil, in which case
// only the fallback is consulted.
func NewService(upstream, fallback Source, logger *slog.Logger) *Service {
	return &Service{
		upstream: upstream,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "catalog")),
	}
}

// ListProducts returns the upstream listing, or the fallback listing when
// upstream fails or is empty.
func (s *Service) ListProducts(ctx context.Context) (*ProductList, error) {
	if s.upstream != nil {
		products, err := s.upstream.ListProducts(ctx)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "upstream product listing failed, using fallback catalog",
				slog.String("error", err.Error()),
			)
		case len(products) == 0:
			s.logger.InfoContext(ctx, "upstream product listing empty, using fallback catalog")
		default:
			return &ProductList{Products: products, Source: SourceShopify}, nil
		}
	}

	products, err := s.fallback.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductList{Products: products, Source: SourceFixture}, nil
}

// GetProduct looks the handle up upstream, then in the fallback.
func (s *Service) GetProduct(ctx context.Context, handle string) (*domain.Product, error) {
	if s.upstream != nil {
		p, err := s.upstream.GetProduct(ctx, handle)
		if err == nil {
			return p, nil
		}
		s.logUpstreamMiss(ctx, "product", handle, err)
	}

	p, err := s.fallback.GetProduct(ctx, handle)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "fallback product lookup failed",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
	}
	return nil, apperrors.NotFound("product", handle)
}

// ListCollections returns the upstream collections, or none.
func (s *Service) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if s.upstream != nil {
		collections, err := s.upstream.ListCollections(ctx)
		if err == nil && len(collections) > 0 {
			return collections, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "upstream collection listing failed",
				slog.String("error", err.Error()),
			)
		}
	}

	collections, err := s.fallback.ListCollections(ctx)
	if err != nil || collections == nil {
		return []domain.Collection{}, nil
	}
	return collections, nil
}

// GetCollection returns the collection with its products.
func (s *Service) GetCollection(ctx context.Context, handle string) (*domain.Collection, error) {
	if s.upstream != nil {
		c, err := s.upstream.GetCollection(ctx, handle)
		if err == nil {
			return c, nil
		}
		s.logUpstreamMiss(ctx, "collection", handle, err)
	}

	if c, err := s.fallback.GetCollection(ctx, handle); err == nil {
		return c, nil
	}
	return nil, apperrors.NotFound("collection", handle)
}

func (s *Service) logUpstreamMiss(ctx context.Context, kind, handle string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.DebugContext(ctx, "not found upstream, trying fallback catalog",
			slog.String("kind", kind),
			slog.String("handle", handle),
		)
		return
	}
	s.logger.WarnContext(ctx, "upstream lookup failed, trying fallback catalog",
		slog.String("kind", kind),
		slog.String("handle", handle),
		slog.String("error", err.Error()),
	)
}
