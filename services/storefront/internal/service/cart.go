package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/cyrasubia/phoinix-storefront/pkg/errors"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/cart"
	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

// ProductCatalog resolves a product handle to the product the storefront
// would render for it.
type ProductCatalog interface {
	GetProduct(ctx context.Context, handle string) (*domain.Product, error)
}

// AddToCartInput holds the parameters for adding a product to the cart.
type AddToCartInput struct {
	Handle    string `json:"handle" validate:"required,handle,max=255"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=100"`
	OpenPanel bool   `json:"open_panel"`
}

// CartView is the cart as the API returns it.
type CartView struct {
	Items      domain.Lines    `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	PanelOpen  bool            `json:"panel_open"`
	Hydrated   bool            `json:"hydrated"`
	Revision   uint64          `json:"revision"`
}

// NewCartView builds the API view of a store snapshot.
func NewCartView(snap cart.Snapshot) *CartView {
	items := snap.Items
	if items == nil {
		items = domain.Lines{}
	}
	return &CartView{
		Items:      items,
		TotalItems: snap.TotalItems(),
		TotalPrice: snap.TotalPrice(),
		PanelOpen:  snap.PanelOpen,
		Hydrated:   snap.Hydrated,
		Revision:   snap.Revision,
	}
}

// CartService validates cart commands before they reach the store.
type CartService struct {
	store   *cart.Store
	catalog ProductCatalog
	logger  *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(store *cart.Store, catalog ProductCatalog, logger *slog.Logger) *CartService {
	return &CartService{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// GetCart returns the current cart.
func (s *CartService) GetCart(_ context.Context) *CartView {
	return NewCartView(s.store.Snapshot())
}

// AddToCart adds the product's first variant to the cart, the same variant
// the product page offers. Quantity defaults to 1.
func (s *CartService) AddToCart(ctx context.Context, input AddToCartInput) (*CartView, error) {
	handle := strings.TrimSpace(input.Handle)
	if handle == "" {
		return nil, apperrors.InvalidInput("handle is required")
	}
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if qty > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	product, err := s.catalog.GetProduct(ctx, handle)
	if err != nil {
		return nil, err
	}

	variant, ok := product.DefaultVariant()
	if !ok || variant.ID == "" {
		return nil, apperrors.InvalidInput(fmt.Sprintf("product %q has no purchasable variant", handle))
	}
	if !variant.AvailableForSale {
		return nil, apperrors.Conflict(fmt.Sprintf("product %q is not available for sale", handle))
	}

	items := s.store.Items()
	if i := items.IndexOfVariant(variant.ID); i >= 0 {
		if items[i].Quantity+qty > MaxQuantityPerItem {
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
		}
	} else if len(items) >= MaxItemsPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
	}

	s.store.AddItem(product.LineItem(variant, qty))
	if input.OpenPanel {
		s.store.SetPanelOpen(true)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("product_id", product.ID),
		slog.String("variant_id", variant.ID),
		slog.String("handle", handle),
		slog.Int("quantity", qty),
	)

	return s.GetCart(ctx), nil
}

// UpdateQuantity sets the quantity of a product's lines. Zero or less
// removes them; unknown products are left alone.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int) (*CartView, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	s.store.UpdateQuantity(productID, quantity)

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)
	return s.GetCart(ctx), nil
}

// RemoveItem removes every line of the product.
func (s *CartService) RemoveItem(ctx context.Context, productID string) (*CartView, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	s.store.RemoveItem(productID)

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("product_id", productID),
	)
	return s.GetCart(ctx), nil
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context) *CartView {
	s.store.ClearCart()
	s.logger.InfoContext(ctx, "cart cleared")
	return s.GetCart(ctx)
}

// SetPanelOpen opens or closes the cart panel.
func (s *CartService) SetPanelOpen(ctx context.Context, open bool) *CartView {
	s.store.SetPanelOpen(open)
	return s.GetCart(ctx)
}

// Refresh reloads the cart from storage.
func (s *CartService) Refresh(ctx context.Context) *CartView {
	s.store.Refresh(ctx)
	s.logger.InfoContext(ctx, "cart refreshed from storage")
	return s.GetCart(ctx)
}
