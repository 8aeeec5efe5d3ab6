package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

// DefaultKey is the storage key the cart is kept under.
const DefaultKey = "phoinix-cart"

// CurrentVersion is the envelope version written by Encode.
const CurrentVersion = 1

var (
	// ErrCorruptPayload means the stored bytes are not a cart in any known format.
	ErrCorruptPayload = errors.New("cart: corrupt payload")
	// ErrUnsupportedVersion means the envelope was written by a newer or unknown format.
	ErrUnsupportedVersion = errors.New("cart: unsupported payload version")
)

type envelope struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"savedAt"`
	Items   domain.Lines `json:"items"`
}

// legacyLine is a line as the unversioned format stored it, a bare array
// using price and image rather than unitPrice and imageUrl.
type legacyLine struct {
	ID        string           `json:"id"`
	VariantID string           `json:"variantId"`
	Title     string           `json:"title"`
	Handle    string           `json:"handle"`
	Price     *decimal.Decimal `json:"price"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	Image     string           `json:"image"`
	ImageURL  string           `json:"imageUrl"`
}

func (l legacyLine) toLineItem() domain.LineItem {
	li := domain.LineItem{
		ID:        l.ID,
		VariantID: l.VariantID,
		Title:     l.Title,
		Handle:    l.Handle,
		Quantity:  l.Quantity,
		ImageURL:  l.ImageURL,
	}
	switch {
	case l.UnitPrice != nil:
		li.UnitPrice = *l.UnitPrice
	case l.Price != nil:
		li.UnitPrice = *l.Price
	}
	if li.ImageURL == "" {
		li.ImageURL = l.Image
	}
	return li
}

// Encode serializes items into the current envelope.
func Encode(items domain.Lines, savedAt time.Time) ([]byte, error) {
	if items == nil {
		items = domain.Lines{}
	}
	data, err := json.Marshal(envelope{
		Version: CurrentVersion,
		SavedAt: savedAt.UTC(),
		Items:   items,
	})
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return data, nil
}

// Decode parses a stored payload. migrated is true when the payload used
// the legacy bare-array format.
func Decode(data []byte) (items domain.Lines, migrated bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, ErrCorruptPayload
	}

	switch data[0] {
	case '[':
		var legacy []legacyLine
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		items = make(domain.Lines, 0, len(legacy))
		for _, l := range legacy {
			items = append(items, l.toLineItem())
		}
		return items, true, nil

	case '{':
		var head struct {
			Version *int `json:"version"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		if head.Version == nil || *head.Version != CurrentVersion {
			v := "missing"
			if head.Version != nil {
				v = fmt.Sprint(*head.Version)
			}
			return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedVersion, v)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		if env.Items == nil {
			env.Items = domain.Lines{}
		}
		return env.Items, false, nil

	default:
		return nil, false, ErrCorruptPayload
	}
}
