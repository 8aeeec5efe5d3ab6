package shopify

import (
	"github.com/shopspring/decimal"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

type connection[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

type money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type imageNode struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (n imageNode) toDomain() domain.Image {
	return domain.Image{URL: n.URL, AltText: n.AltText, Width: n.Width, Height: n.Height}
}

type variantNode struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	AvailableForSale bool   `json:"availableForSale"`
	Price            money  `json:"price"`
}

type productNode struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Handle          string `json:"handle"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"descriptionHtml"`
	PriceRange      struct {
		MinVariantPrice money `json:"minVariantPrice"`
	} `json:"priceRange"`
	Images   connection[imageNode]   `json:"images"`
	Variants connection[variantNode] `json:"variants"`
}

func (n productNode) toDomain() domain.Product {
	p := domain.Product{
		ID:              n.ID,
		Title:           n.Title,
		Handle:          n.Handle,
		Description:     n.Description,
		DescriptionHTML: n.DescriptionHTML,
		Price:           n.PriceRange.MinVariantPrice.Amount,
		CurrencyCode:    n.PriceRange.MinVariantPrice.CurrencyCode,
		Images:          make([]domain.Image, 0, len(n.Images.Edges)),
		Variants:        make([]domain.Variant, 0, len(n.Variants.Edges)),
	}
	for _, e := range n.Images.Edges {
		p.Images = append(p.Images, e.Node.toDomain())
	}
	for _, e := range n.Variants.Edges {
		p.Variants = append(p.Variants, domain.Variant{
			ID:               e.Node.ID,
			Title:            e.Node.Title,
			AvailableForSale: e.Node.AvailableForSale,
			Price:            e.Node.Price.Amount,
			CurrencyCode:     e.Node.Price.CurrencyCode,
		})
	}
	return p
}

func toProducts(c connection[productNode]) []domain.Product {
	out := make([]domain.Product, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node.toDomain())
	}
	return out
}

type collectionNode struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle"`
	Description string     `json:"description"`
	Image       *imageNode `json:"image"`
}

func (n collectionNode) toDomain() domain.Collection {
	c := domain.Collection{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Description: n.Description,
	}
	if n.Image != nil {
		img := n.Image.toDomain()
		c.Image = &img
	}
	return c
}
