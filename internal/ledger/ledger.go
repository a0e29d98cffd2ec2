// Package ledger owns the stock arithmetic of products and their variants.
//
// When a product has variants its aggregate Stock always equals the sum of
// the variant stocks; without variants Stock is a standalone counter. No stock
// value is ever negative. Every function here mutates the product it is given
// in place and is not safe for concurrent use on the same product; callers
// hold the catalog lock or a row lock.
package ledger

import (
	"fmt"
	"strings"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// SetVariants replaces the variant list of p, recomputes Stock as the sum and
// derives the legacy Colors list. Negative stocks and duplicate ids are
// rejected and leave p untouched.
func SetVariants(p *models.Product, variants []models.Variant) error {
	seen := make(map[string]bool, len(variants))
	for i, v := range variants {
		if strings.TrimSpace(v.ID) == "" {
			return utils.NewValidationError(fmt.Sprintf("variants[%d].id", i), "is required", nil)
		}
		if v.Stock < 0 {
			return utils.NewValidationError(fmt.Sprintf("variants[%d].stock", i), "must not be negative", utils.ErrNegativeStock)
		}
		if seen[v.ID] {
			return utils.NewValidationError(fmt.Sprintf("variants[%d].id", i), "duplicate variant id "+v.ID, utils.ErrDuplicateVariant)
		}
		seen[v.ID] = true
	}

	p.Variants = append([]models.Variant(nil), variants...)
	recompute(p)
	return nil
}

// SetLegacyStock sets the standalone counter of a product without variants.
func SetLegacyStock(p *models.Product, stock int) error {
	if stock < 0 {
		return utils.NewValidationError("stock", "must not be negative", utils.ErrNegativeStock)
	}
	if p.HasVariants() {
		recompute(p)
		return nil
	}
	p.Stock = stock
	return nil
}

// Decrement takes qty units from the targeted variant, or from the legacy
// counter when variantID is empty. Stock is clamped at zero; the part of qty
// the clamp absorbed is reported as Shortfall.
func Decrement(p *models.Product, variantID string, qty int) (models.StockChange, error) {
	change := models.StockChange{ProductID: p.ID, VariantID: variantID}
	if qty <= 0 {
		return change, utils.NewValidationError("quantity", "must be positive", utils.ErrInvalidQuantity)
	}

	if variantID == "" {
		if p.HasVariants() {
			return change, utils.NewValidationError("variantId", "is required for products with variants", nil)
		}
		change.Before = p.Stock
		p.Stock, change.Shortfall = clampSub(p.Stock, qty)
		change.After = p.Stock
		change.Aggregate = p.Stock
		return change, nil
	}

	i := p.FindVariant(variantID)
	if i < 0 {
		return change, fmt.Errorf("product %s variant %s: %w", p.ID, variantID, utils.ErrVariantNotFound)
	}
	v := &p.Variants[i]
	change.Before = v.Stock
	v.Stock, change.Shortfall = clampSub(v.Stock, qty)
	change.After = v.Stock
	recompute(p)
	change.Aggregate = p.Stock
	return change, nil
}

// AvailableVariants returns the variants that can still be selected.
func AvailableVariants(p *models.Product) []models.Variant {
	out := make([]models.Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.Stock > 0 {
			out = append(out, v)
		}
	}
	return out
}

// CheckInvariant reports the first stock rule p violates.
func CheckInvariant(p *models.Product) error {
	if p.Stock < 0 {
		return fmt.Errorf("product %s: aggregate stock %d: %w", p.ID, p.Stock, utils.ErrNegativeStock)
	}
	if !p.HasVariants() {
		return nil
	}
	sum := 0
	for _, v := range p.Variants {
		if v.Stock < 0 {
			return fmt.Errorf("product %s variant %s: stock %d: %w", p.ID, v.ID, v.Stock, utils.ErrNegativeStock)
		}
		sum += v.Stock
	}
	if sum != p.Stock {
		return fmt.Errorf("product %s: stock %d != variant sum %d: %w", p.ID, p.Stock, sum, utils.ErrValidation)
	}
	return nil
}

// Repair brings p back in line with the invariants by clamping negative
// stocks and recomputing the aggregate. It reports whether p changed.
func Repair(p *models.Product) bool {
	changed := false
	for i := range p.Variants {
		if p.Variants[i].Stock < 0 {
			p.Variants[i].Stock = 0
			changed = true
		}
	}
	before := p.Stock
	if p.HasVariants() {
		recompute(p)
	} else if p.Stock < 0 {
		p.Stock = 0
	}
	return changed || before != p.Stock
}

func recompute(p *models.Product) {
	total := 0
	colors := make([]string, 0, len(p.Variants))
	seen := make(map[string]bool, len(p.Variants))
	for _, v := range p.Variants {
		total += v.Stock
		c := strings.TrimSpace(v.Color)
		if c == "" || seen[strings.ToLower(c)] {
			continue
		}
		seen[strings.ToLower(c)] = true
		colors = append(colors, c)
	}
	p.Stock = total
	if len(p.Variants) > 0 {
		p.Colors = colors
	}
}

func clampSub(stock, qty int) (after, shortfall int) {
	if qty > stock {
		return 0, qty - stock
	}
	return stock - qty, 0
}
