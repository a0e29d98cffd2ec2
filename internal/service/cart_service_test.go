package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func TestCartService_AddMergesByProductAndVariant(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "1:v1", "1:v1", "1:v2")

	view, err := sf.carts.View(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	first, ok := view.Item(models.CartKey{ProductID: "1", VariantID: "v1"})
	require.True(t, ok)
	assert.Equal(t, 2, first.Quantity)
	second, ok := view.Item(models.CartKey{ProductID: "1", VariantID: "v2"})
	require.True(t, ok)
	assert.Equal(t, 1, second.Quantity)

	// Cyber Glitch v2 sells at 42000.
	assert.Equal(t, int64(3*42000), view.Totals.Subtotal)
}

func TestCartService_AddFreezesVariantImage(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "1:v2")

	view, err := sf.carts.View(ctx, cartID)
	require.NoError(t, err)
	p, err := sf.catalog.Product("1")
	require.NoError(t, err)
	assert.Equal(t, p.Variants[1].Image, view.Items[0].DisplayImage)
}

func TestCartService_AddRejectsInvalidSelections(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	created, err := sf.catalog.CreateProduct(ctx, &ProductInput{
		Name:  "Two Tone",
		Price: 20000,
		Variants: []models.Variant{
			{ID: "red", Color: "Red", Stock: 0},
			{ID: "blue", Color: "Blue", Stock: 3},
		},
	})
	require.NoError(t, err)

	view, err := sf.carts.Create(ctx)
	require.NoError(t, err)

	tests := []struct {
		name      string
		productID string
		variantID string
		want      error
	}{
		{"unknown product", "missing", "", utils.ErrProductNotFound},
		{"unknown variant", created.ID, "green", utils.ErrVariantNotFound},
		{"out of stock variant", created.ID, "red", utils.ErrVariantUnavailable},
		{"variant required", created.ID, "", utils.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sf.carts.Add(ctx, view.ID, tt.productID, tt.variantID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = sf.carts.Add(ctx, view.ID, created.ID, "blue")
	assert.NoError(t, err)
}

func TestCartService_UpdateQuantityKeepsOneUnit(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "4:v1")
	key := models.CartKey{ProductID: "4", VariantID: "v1"}

	view, err := sf.carts.UpdateQuantity(ctx, cartID, key, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Items[0].Quantity)

	view, err = sf.carts.UpdateQuantity(ctx, cartID, key, -10)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Items[0].Quantity)

	_, err = sf.carts.UpdateQuantity(ctx, cartID, models.CartKey{ProductID: "4", VariantID: "v9"}, 1)
	assert.ErrorIs(t, err, utils.ErrCartItemNotFound)
}

func TestCartService_RemoveTargetsExactKey(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "1:v1", "1:v2", "3:v1")

	view, err := sf.carts.Remove(ctx, cartID, models.CartKey{ProductID: "1", VariantID: "v1"})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	_, ok := view.Item(models.CartKey{ProductID: "1", VariantID: "v2"})
	assert.True(t, ok)

	_, err = sf.carts.Remove(ctx, cartID, models.CartKey{ProductID: "1", VariantID: "v1"})
	assert.ErrorIs(t, err, utils.ErrCartItemNotFound)

	view, err = sf.carts.RemoveProduct(ctx, cartID, "1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "3", view.Items[0].Product.ID)
}

func TestCartService_ClearDropsDiscount(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "2:v1")
	_, err := sf.carts.ApplyDiscount(ctx, cartID, "WELCOME10")
	require.NoError(t, err)

	view, err := sf.carts.Clear(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Nil(t, view.Discount)
	assert.Equal(t, int64(0), view.Totals.Subtotal)
}

func TestCartService_UnknownCart(t *testing.T) {
	sf := newStorefront(t, nil)
	_, err := sf.carts.View(context.Background(), "nope")
	assert.ErrorIs(t, err, utils.ErrCartNotFound)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestCartService_CartIsNotAuthoritativeForStock(t *testing.T) {
	sf := newStorefront(t, nil)
	before := sf.variantStock(t, "3", "v1")
	sf.newCart(t, "3:v1", "3:v1")
	assert.Equal(t, before, sf.variantStock(t, "3", "v1"))
}
