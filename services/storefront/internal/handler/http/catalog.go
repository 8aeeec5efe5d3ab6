package http

import (
	"log/slog"
	"net/http"

	"github.com/cyrasubia/phoinix-storefront/pkg/httputil"
	"github.com/cyrasubia/phoinix-storefront/pkg/pagination"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/catalog"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

// CatalogHandler serves products and collections.
type CatalogHandler struct {
	catalog *catalog.Service
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *catalog.Service, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: svc,
		logger:  logger,
	}
}

// ProductPage is one page of the product listing and the catalog it came from.
type ProductPage struct {
	httputil.PaginatedResponse[domain.Product]
	Source string `json:"source"`
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	list, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page := pagination.Slice(list.Products, params)
	httputil.WriteData(w, http.StatusOK, ProductPage{
		PaginatedResponse: httputil.NewPaginatedResponse(page, len(list.Products), params.Page, params.PerPage),
		Source:            list.Source,
	})
}

// GetProduct handles GET /api/v1/products/{handle}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	handle, err := httputil.PathParam(r, "handle")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// ListCollections handles GET /api/v1/collections
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.catalog.ListCollections(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, collections)
}

// GetCollection handles GET /api/v1/collections/{handle}
func (h *CatalogHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	handle, err := httputil.PathParam(r, "handle")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	collection, err := h.catalog.GetCollection(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, collection)
}
