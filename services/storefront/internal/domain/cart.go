package domain

import "github.com/shopspring/decimal"

// LineItem is one purchasable variant in the cart.
type LineItem struct {
	ID        string          `json:"id"`
	VariantID string          `json:"variantId"`
	Title     string          `json:"title"`
	Handle    string          `json:"handle"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// LineTotal returns UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Lines is the ordered list of cart lines, unique by VariantID. All
// transforms return a new slice and leave the receiver untouched.
type Lines []LineItem

// TotalItems returns the sum of all quantities.
func (l Lines) TotalItems() int {
	var n int
	for _, li := range l {
		n += li.Quantity
	}
	return n
}

// TotalPrice returns the sum of UnitPrice × Quantity across all lines.
func (l Lines) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, li := range l {
		total = total.Add(li.LineTotal())
	}
	return total
}

// IndexOfVariant returns the position of the line for variantID, or -1.
func (l Lines) IndexOfVariant(variantID string) int {
	for i := range l {
		if l[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// HasProduct reports whether any line belongs to product id.
func (l Lines) HasProduct(id string) bool {
	for i := range l {
		if l[i].ID == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no backing array with l.
func (l Lines) Clone() Lines {
	out := make(Lines, len(l))
	copy(out, l)
	return out
}

// WithItem merges item into the line with the same VariantID, adding its
// quantity and leaving the other fields of the existing line as they were.
// Unknown variants are appended. maxQty > 0 caps the resulting quantity.
// An item with a quantity below one changes nothing.
func (l Lines) WithItem(item LineItem, maxQty int) Lines {
	out := l.Clone()
	if item.Quantity < 1 {
		return out
	}
	if i := out.IndexOfVariant(item.VariantID); i >= 0 {
		out[i].Quantity = clamp(out[i].Quantity+item.Quantity, maxQty)
		return out
	}
	item.Quantity = clamp(item.Quantity, maxQty)
	return append(out, item)
}

// WithoutProduct drops every line whose product ID is id, whichever variant
// it holds.
func (l Lines) WithoutProduct(id string) Lines {
	out := make(Lines, 0, len(l))
	for _, li := range l {
		if li.ID != id {
			out = append(out, li)
		}
	}
	return out
}

// WithQuantity sets the quantity of every line of product id. A quantity of
// zero or less removes them.
func (l Lines) WithQuantity(id string, qty, maxQty int) Lines {
	if qty <= 0 {
		return l.WithoutProduct(id)
	}
	out := l.Clone()
	for i := range out {
		if out[i].ID == id {
			out[i].Quantity = clamp(qty, maxQty)
		}
	}
	return out
}

// Normalize repairs lines read back from storage: lines without a variant or
// with a non-positive quantity are dropped, duplicate variants are merged
// into the first occurrence and quantities are capped at maxQty.
func (l Lines) Normalize(maxQty int) Lines {
	out := make(Lines, 0, len(l))
	for _, li := range l {
		if li.VariantID == "" || li.Quantity < 1 {
			continue
		}
		if li.UnitPrice.IsNegative() {
			li.UnitPrice = decimal.Zero
		}
		out = out.WithItem(li, maxQty)
	}
	return out
}

func clamp(qty, maxQty int) int {
	if maxQty > 0 && qty > maxQty {
		return maxQty
	}
	return qty
}
