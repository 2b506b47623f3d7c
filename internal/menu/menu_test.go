package menu

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
)

const sampleYAML = `
order_types:
  - name: Delivery
    categories:
      - name: Pizza
        items:
          - Margherita Pizza
          - name: Pepperoni Pizza
            price: 12.5
      - name: Wings
        items: [BBQ Wings]
  - name: Dine In
    categories:
      - name: Desserts
        items: [Tiramisu]
`

func fastRetry() merrors.RetryConfig {
	return merrors.RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestParseCatalog_MixedItemForms(t *testing.T) {
	// Given: a catalog mixing bare item names and item mappings
	// When: parsing it
	c, err := ParseCatalog([]byte(sampleYAML))

	// Then: both forms decode to items
	require.NoError(t, err)
	require.Len(t, c.OrderTypes, 2)
	pizza := c.OrderTypes[0].Categories[0]
	assert.Equal(t, "Margherita Pizza", pizza.Items[0].Name)
	assert.Equal(t, "Pepperoni Pizza", pizza.Items[1].Name)
	assert.InDelta(t, 12.5, pizza.Items[1].Price, 1e-9)
}

func TestParseCatalog_JSON(t *testing.T) {
	data := []byte(`{"order_types":[{"name":"Pickup","categories":[{"name":"Salads","items":["Greek Salad"]}]}]}`)

	c, err := ParseCatalog(data)

	require.NoError(t, err)
	docs, err := c.Documents("pickup", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Greek Salad"}, docs)
}

func TestParseCatalog_RejectsCollidingOrderTypes(t *testing.T) {
	data := []byte("order_types:\n  - name: Dine In\n  - name: dine_in\n")

	_, err := ParseCatalog(data)

	require.Error(t, err)
	assert.True(t, merrors.HasCode(err, merrors.ErrCodeCatalogFile))
}

func TestParseCatalog_Malformed(t *testing.T) {
	_, err := ParseCatalog([]byte("order_types: [unterminated"))

	require.Error(t, err)
	assert.Equal(t, merrors.ErrCodeCatalogFile, merrors.GetCode(err))
}

func TestCatalog_Documents(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleYAML))
	require.NoError(t, err)

	tests := []struct {
		name      string
		orderType string
		items     bool
		want      []string
	}{
		{"categories", "Delivery", false, []string{"Pizza", "Wings"}},
		{"items", "delivery", true, []string{"Margherita Pizza", "Pepperoni Pizza", "BBQ Wings"}},
		{"snake case lookup", "dineIn", false, []string{"Desserts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Documents(tt.orderType, tt.items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_Documents_UnknownOrderType(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleYAML))
	require.NoError(t, err)

	_, err = c.Documents("catering", false)

	assert.True(t, merrors.HasCode(err, merrors.ErrCodeUnknownOrderType))
}

func TestStaticProvider_Replace(t *testing.T) {
	// Given: a static provider over one catalog
	c, err := ParseCatalog([]byte(sampleYAML))
	require.NoError(t, err)
	p := NewStaticProvider(c)
	ctx := context.Background()

	// When: the catalog is replaced
	p.Replace(&Catalog{OrderTypes: []OrderType{{Name: "Catering"}}})

	// Then: later calls see the new snapshot
	ots, err := p.OrderTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Catering"}, ots)
	_, err = p.Categories(ctx, "Delivery")
	assert.Error(t, err)
}

func TestStaticProvider_CancelledContext(t *testing.T) {
	p := NewStaticProvider(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.OrderTypes(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileProvider_ReadsCurrentFile(t *testing.T) {
	// Given: a catalog file
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	p := NewFileProvider(path, WithItems(true), WithRetry(fastRetry()))
	ctx := context.Background()

	docs, err := p.Categories(ctx, "Delivery")
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	// When: the file changes
	updated := "order_types:\n  - name: Delivery\n    categories:\n      - name: Pizza\n        items: [Veggie Pizza]\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	// Then: the next call returns the new snapshot
	docs, err = p.Categories(ctx, "Delivery")
	require.NoError(t, err)
	assert.Equal(t, []string{"Veggie Pizza"}, docs)
}

func TestFileProvider_MissingFile(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "missing.yaml"), WithRetry(fastRetry()))

	_, err := p.OrderTypes(context.Background())

	require.Error(t, err)
	assert.True(t, merrors.HasCode(err, merrors.ErrCodeCatalogFile))
	assert.False(t, merrors.IsRetryable(err))
}

func TestFileProvider_UnreadablePathIsRetryable(t *testing.T) {
	// Given: a directory where a file is expected
	dir := t.TempDir()
	p := NewFileProvider(dir, WithRetry(fastRetry()))

	// When: loading
	_, err := p.Load(context.Background())

	// Then: the read error is reported as a provider failure
	require.Error(t, err)
	assert.True(t, merrors.HasCode(err, merrors.ErrCodeProviderUnavailable))
	assert.True(t, merrors.IsRetryable(err))
}
