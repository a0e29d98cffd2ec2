package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

func productWithVariants() *models.Product {
	p := &models.Product{ID: "1", Name: "Cyber Glitch v2", Price: 50000}
	_ = SetVariants(p, []models.Variant{
		{ID: "v1", Color: "#8B5CF6", Stock: 10},
		{ID: "v2", Color: "#3B82F6", Stock: 5},
	})
	return p
}

func TestSetVariants_RecomputesAggregateAndColors(t *testing.T) {
	p := &models.Product{ID: "1", Stock: 999}
	err := SetVariants(p, []models.Variant{
		{ID: "a", Color: "Red", Stock: 3},
		{ID: "b", Color: "red", Stock: 4},
		{ID: "c", Color: "Blue", Stock: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)
	assert.Equal(t, []string{"Red", "Blue"}, p.Colors)
	assert.NoError(t, CheckInvariant(p))
}

func TestSetVariants_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		variants []models.Variant
		want     error
	}{
		{"negative stock", []models.Variant{{ID: "a", Stock: -1}}, utils.ErrNegativeStock},
		{"duplicate id", []models.Variant{{ID: "a", Stock: 1}, {ID: "a", Stock: 2}}, utils.ErrDuplicateVariant},
		{"missing id", []models.Variant{{Stock: 1}}, utils.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := productWithVariants()
			err := SetVariants(p, tt.variants)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, utils.ErrValidation)
			assert.Equal(t, 15, p.Stock, "product must be left untouched")
			assert.Len(t, p.Variants, 2)
		})
	}
}

func TestDecrement_Variant(t *testing.T) {
	p := productWithVariants()

	change, err := Decrement(p, "v2", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, change.Before)
	assert.Equal(t, 3, change.After)
	assert.Equal(t, 0, change.Shortfall)
	assert.Equal(t, 13, change.Aggregate)
	assert.Equal(t, 13, p.Stock)
	assert.NoError(t, CheckInvariant(p))
}

func TestDecrement_ClampsAndReportsShortfall(t *testing.T) {
	p := productWithVariants()

	change, err := Decrement(p, "v2", 8)
	require.NoError(t, err)
	assert.Equal(t, 0, change.After)
	assert.Equal(t, 3, change.Shortfall)
	assert.True(t, change.Oversold())
	assert.Equal(t, 10, p.Stock)
	assert.NoError(t, CheckInvariant(p))
}

func TestDecrement_Legacy(t *testing.T) {
	p := &models.Product{ID: "9", Stock: 4}

	change, err := Decrement(p, "", 6)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, 2, change.Shortfall)
}

func TestDecrement_Errors(t *testing.T) {
	p := productWithVariants()

	_, err := Decrement(p, "v9", 1)
	assert.ErrorIs(t, err, utils.ErrVariantNotFound)
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = Decrement(p, "v1", 0)
	assert.ErrorIs(t, err, utils.ErrInvalidQuantity)

	_, err = Decrement(p, "", 1)
	assert.ErrorIs(t, err, utils.ErrValidation)
	assert.Equal(t, 15, p.Stock)
}

func TestDecrement_SequenceKeepsInvariant(t *testing.T) {
	p := productWithVariants()
	ops := []struct {
		variant string
		qty     int
	}{{"v1", 3}, {"v2", 1}, {"v1", 20}, {"v2", 2}, {"v2", 9}}

	for _, op := range ops {
		_, err := Decrement(p, op.variant, op.qty)
		require.NoError(t, err)
		require.NoError(t, CheckInvariant(p))
		for _, v := range p.Variants {
			assert.GreaterOrEqual(t, v.Stock, 0)
		}
	}
	assert.Equal(t, 0, p.Stock)
}

func TestAvailableVariants(t *testing.T) {
	p := productWithVariants()
	_, _ = Decrement(p, "v1", 10)

	avail := AvailableVariants(p)
	require.Len(t, avail, 1)
	assert.Equal(t, "v2", avail[0].ID)
}

func TestCheckInvariantAndRepair(t *testing.T) {
	p := &models.Product{ID: "x", Stock: 50, Variants: []models.Variant{{ID: "a", Stock: 3}, {ID: "b", Stock: -2}}}
	require.Error(t, CheckInvariant(p))

	assert.True(t, Repair(p))
	assert.NoError(t, CheckInvariant(p))
	assert.Equal(t, 3, p.Stock)
	assert.False(t, Repair(p))
}

func TestSetLegacyStock(t *testing.T) {
	p := &models.Product{ID: "x"}
	require.NoError(t, SetLegacyStock(p, 7))
	assert.Equal(t, 7, p.Stock)
	assert.ErrorIs(t, SetLegacyStock(p, -1), utils.ErrNegativeStock)

	v := productWithVariants()
	require.NoError(t, SetLegacyStock(v, 100))
	assert.Equal(t, 15, v.Stock, "aggregate stays the variant sum")
}
