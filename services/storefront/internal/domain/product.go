package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as the storefront renders it.
type Product struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Handle          string          `json:"handle"`
	Description     string          `json:"description"`
	DescriptionHTML string          `json:"descriptionHtml"`
	Price           decimal.Decimal `json:"price"`
	CurrencyCode    string          `json:"currencyCode"`
	Images          []Image         `json:"images"`
	Variants        []Variant       `json:"variants"`
}

// Variant is a purchasable option of a product.
type Variant struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	AvailableForSale bool            `json:"availableForSale"`
	Price            decimal.Decimal `json:"price"`
	CurrencyCode     string          `json:"currencyCode"`
}

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Collection groups products. Products is only populated when a single
// collection is fetched.
type Collection struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	Description string    `json:"description"`
	Image       *Image    `json:"image,omitempty"`
	Products    []Product `json:"products,omitempty"`
}

// DefaultVariant returns the variant the product page adds to the cart.
func (p *Product) DefaultVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

// UnitPrice is the variant's price, or the product's minimum price when the
// variant carries none.
func (p *Product) UnitPrice(v Variant) decimal.Decimal {
	if v.Price.IsPositive() {
		return v.Price
	}
	return p.Price
}

// ThumbnailURL returns the first image URL, or "".
func (p *Product) ThumbnailURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// LineItem builds the cart line for quantity units of variant v.
func (p *Product) LineItem(v Variant, quantity int) LineItem {
	return LineItem{
		ID:        p.ID,
		VariantID: v.ID,
		Title:     p.Title,
		Handle:    p.Handle,
		UnitPrice: p.UnitPrice(v),
		Quantity:  quantity,
		ImageURL:  p.ThumbnailURL(),
	}
}
