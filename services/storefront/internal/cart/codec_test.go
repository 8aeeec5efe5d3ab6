package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyrasubia/phoinix-storefront/services/storefront/internal/domain"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	items := domain.Lines{
		{ID: "demo-1", VariantID: "variant-1", Title: "CoQ10 Ubiquinone", Handle: "coq10-ubiquinone",
			UnitPrice: decimal.RequireFromString("30.00"), Quantity: 2, ImageURL: "/coq10.jpg"},
		{ID: "demo-3", VariantID: "variant-3", Title: "5-HTP Supplement", Handle: "5-htp-supplement",
			UnitPrice: decimal.RequireFromString("24.99"), Quantity: 1},
	}

	data, err := Encode(items, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":1`)
	assert.Contains(t, string(data), `"savedAt":"2026-01-02T03:04:05Z"`)

	got, migrated, err := Decode(data)
	require.NoError(t, err)
	assert.False(t, migrated)
	require.Len(t, got, 2)
	for i := range items {
		assert.Equal(t, items[i].VariantID, got[i].VariantID)
		assert.Equal(t, items[i].ImageURL, got[i].ImageURL)
		assert.True(t, items[i].UnitPrice.Equal(got[i].UnitPrice))
	}
	assert.True(t, items.TotalPrice().Equal(got.TotalPrice()))
}

func TestEncode_NilItemsWritesEmptyArray(t *testing.T) {
	data, err := Encode(nil, time.Now())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"items":[]`)
}

func TestDecode_LegacyArray(t *testing.T) {
	data := []byte(`[
		{"id":"demo-9","variantId":"v9","title":"Creatine Monohydrate","handle":"creatine-monohydrate","price":7.5,"quantity":2,"image":"/creatine.png"}
	]`)

	items, migrated, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, migrated)
	require.Len(t, items, 1)
	assert.Equal(t, "v9", items[0].VariantID)
	assert.Equal(t, "/creatine.png", items[0].ImageURL)
	assert.True(t, decimal.RequireFromString("15.00").Equal(items.TotalPrice()))
}

func TestDecode_LegacyArrayWithUnitPrice(t *testing.T) {
	items, migrated, err := Decode([]byte(`[{"variantId":"v9","quantity":2,"unitPrice":7.5}]`))
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.True(t, decimal.RequireFromString("15").Equal(items.TotalPrice()))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrCorruptPayload},
		{"whitespace", "  \n", ErrCorruptPayload},
		{"garbage", "not json", ErrCorruptPayload},
		{"null", "null", ErrCorruptPayload},
		{"truncated array", `[{"variantId":"v1"`, ErrCorruptPayload},
		{"truncated object", `{"version":1,"items":[`, ErrCorruptPayload},
		{"bad items", `{"version":1,"items":{"a":1}}`, ErrCorruptPayload},
		{"future version", `{"version":2,"items":[]}`, ErrUnsupportedVersion},
		{"missing version", `{"items":[]}`, ErrUnsupportedVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecode_NullItems(t *testing.T) {
	items, _, err := Decode([]byte(`{"version":1,"items":null}`))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
