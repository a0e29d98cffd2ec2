package models

import "strings"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// DiscountCode is a promotional code. Code is unique case-insensitively.
type DiscountCode struct {
	ID             string       `db:"id" json:"id"`
	Code           string       `db:"code" json:"code"`
	Type           DiscountType `db:"type" json:"type"`
	Value          float64      `db:"value" json:"value"`
	MinOrderAmount int64        `db:"minorderamount" json:"minOrderAmount,omitempty"`
	IsActive       bool         `db:"isactive" json:"isActive"`
}

// Matches compares code against c.Code ignoring case and surrounding spaces.
func (c *DiscountCode) Matches(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), strings.TrimSpace(c.Code))
}

// Qualifies reports whether subtotal meets the minimum spend.
func (c *DiscountCode) Qualifies(subtotal int64) bool {
	return subtotal >= c.MinOrderAmount
}
