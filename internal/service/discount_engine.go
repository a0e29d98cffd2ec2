package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// DiscountSource looks up active discount codes.
type DiscountSource interface {
	ActiveDiscount(code string) (*models.DiscountCode, bool)
}

// Totals is the price breakdown of a cart.
type Totals struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discountAmount"`
	FinalTotal     int64 `json:"finalTotal"`
	ShippingFee    int64 `json:"shippingFee"`
	TotalAmount    int64 `json:"totalAmount"`
}

// DiscountEngine applies and re-validates discount codes on carts.
type DiscountEngine struct {
	source DiscountSource
}

// NewDiscountEngine constructs a DiscountEngine.
func NewDiscountEngine(source DiscountSource) *DiscountEngine {
	return &DiscountEngine{source: source}
}

// Apply attaches the active code matching code to the cart.
func (e *DiscountEngine) Apply(cart *models.Cart, code string) (*models.DiscountCode, error) {
	d, ok := e.source.ActiveDiscount(code)
	if !ok {
		return nil, fmt.Errorf("discount %q: %w", code, utils.ErrDiscountNotFound)
	}
	subtotal := cart.Subtotal()
	if !d.Qualifies(subtotal) {
		return nil, fmt.Errorf("discount %s needs a subtotal of %d, cart has %d: %w",
			d.Code, d.MinOrderAmount, subtotal, utils.ErrMinimumNotMet)
	}
	cart.Discount = d
	return d, nil
}

// Revalidate drops the applied code when it was deactivated, deleted or the
// subtotal fell below its minimum. It returns the revoked code, if any.
func (e *DiscountEngine) Revalidate(cart *models.Cart) *models.DiscountCode {
	if cart.Discount == nil {
		return nil
	}
	applied := cart.Discount
	current, ok := e.source.ActiveDiscount(applied.Code)
	if !ok || !current.Qualifies(cart.Subtotal()) {
		cart.Discount = nil
		return applied
	}
	// Pick up edits to the code's value since it was applied.
	cart.Discount = current
	return nil
}

// ComputeDiscountAmount returns the discount for subtotal, rounded half up
// to whole currency units and bounded to [0, subtotal].
func ComputeDiscountAmount(d *models.DiscountCode, subtotal int64) int64 {
	if d == nil || subtotal <= 0 {
		return 0
	}
	var amount decimal.Decimal
	switch d.Type {
	case models.DiscountPercentage:
		amount = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromFloat(d.Value)).
			Div(decimal.NewFromInt(100))
	case models.DiscountFixed:
		amount = decimal.NewFromFloat(d.Value)
	default:
		return 0
	}
	n := amount.Round(0).IntPart()
	if n < 0 {
		return 0
	}
	if n > subtotal {
		return subtotal
	}
	return n
}

// FinalTotal is the discounted subtotal, never negative.
func FinalTotal(subtotal, discount int64) int64 {
	if t := subtotal - discount; t > 0 {
		return t
	}
	return 0
}

// Totals computes the breakdown for cart. Shipping is never discounted.
func (e *DiscountEngine) Totals(cart *models.Cart, shippingFee int64) Totals {
	subtotal := cart.Subtotal()
	discount := ComputeDiscountAmount(cart.Discount, subtotal)
	final := FinalTotal(subtotal, discount)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		FinalTotal:     final,
		ShippingFee:    shippingFee,
		TotalAmount:    final + shippingFee,
	}
}
