package models

import (
	"strings"
	"time"

	"github.com/GTDGit/storefront_api/internal/utils"
)

// CartKey is the composite identity of a cart line: product plus optional variant.
type CartKey struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
}

// String renders the key as "productId" or "productId:variantId".
func (k CartKey) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + ":" + k.VariantID
}

// ParseCartKey is the inverse of CartKey.String.
func ParseCartKey(s string) CartKey {
	productID, variantID, _ := strings.Cut(s, ":")
	return CartKey{ProductID: productID, VariantID: variantID}
}

// CartItem is a product snapshot in the cart. SelectedVariant is copied by
// value and DisplayImage is frozen when the line is created.
type CartItem struct {
	Product         Product  `json:"product"`
	Quantity        int      `json:"quantity"`
	SelectedVariant *Variant `json:"selectedVariant,omitempty"`
	DisplayImage    string   `json:"displayImage"`
}

// Key returns the line's composite key.
func (i *CartItem) Key() CartKey {
	k := CartKey{ProductID: i.Product.ID}
	if i.SelectedVariant != nil {
		k.VariantID = i.SelectedVariant.ID
	}
	return k
}

// LineTotal is the effective unit price times quantity.
func (i *CartItem) LineTotal() int64 {
	return i.Product.EffectivePrice() * int64(i.Quantity)
}

// Cart is a shopper's working selection. No two items share a CartKey.
type Cart struct {
	ID        string        `json:"id"`
	Items     []CartItem    `json:"items"`
	Discount  *DiscountCode `json:"discount,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// NewCart returns an empty cart with the given id.
func NewCart(id string) *Cart {
	now := time.Now()
	return &Cart{ID: id, Items: []CartItem{}, CreatedAt: now, UpdatedAt: now}
}

func (c *Cart) indexOf(key CartKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Item returns the line with the given key.
func (c *Cart) Item(key CartKey) (*CartItem, bool) {
	if i := c.indexOf(key); i >= 0 {
		return &c.Items[i], true
	}
	return nil, false
}

// Add puts one unit of product (and optional variant) in the cart. An
// existing line with the same key is incremented instead of duplicated.
func (c *Cart) Add(product *Product, variant *Variant) *CartItem {
	var selected *Variant
	if variant != nil && variant.ID != "" {
		v := *variant
		selected = &v
	}
	key := CartKey{ProductID: product.ID}
	if selected != nil {
		key.VariantID = selected.ID
	}

	c.UpdatedAt = time.Now()
	if i := c.indexOf(key); i >= 0 {
		c.Items[i].Quantity++
		return &c.Items[i]
	}

	image := product.PrimaryImage()
	if selected != nil && selected.Image != "" {
		image = selected.Image
	}
	c.Items = append(c.Items, CartItem{
		Product:         product.Clone(),
		Quantity:        1,
		SelectedVariant: selected,
		DisplayImage:    image,
	})
	return &c.Items[len(c.Items)-1]
}

// Remove deletes the line with the given key and reports whether it existed.
func (c *Cart) Remove(key CartKey) bool {
	i := c.indexOf(key)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.UpdatedAt = time.Now()
	return true
}

// RemoveProduct deletes every line of a product regardless of variant and
// returns how many lines were removed.
func (c *Cart) RemoveProduct(productID string) int {
	kept := c.Items[:0]
	removed := 0
	for _, item := range c.Items {
		if item.Product.ID == productID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	if removed > 0 {
		c.UpdatedAt = time.Now()
	}
	return removed
}

// SetQuantity applies delta to the keyed line. The result never drops below
// one; use Remove to take a line out.
func (c *Cart) SetQuantity(key CartKey, delta int) (*CartItem, error) {
	i := c.indexOf(key)
	if i < 0 {
		return nil, utils.ErrCartItemNotFound
	}
	q := c.Items[i].Quantity + delta
	if q < 1 {
		q = 1
	}
	c.Items[i].Quantity = q
	c.UpdatedAt = time.Now()
	return &c.Items[i], nil
}

// Subtotal sums effective price times quantity over all lines.
func (c *Cart) Subtotal() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].LineTotal()
	}
	return total
}

// Clear empties the cart and drops the applied discount.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Discount = nil
	c.UpdatedAt = time.Now()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy used as an immutable checkout snapshot.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	for i, item := range c.Items {
		item.Product = item.Product.Clone()
		if item.SelectedVariant != nil {
			v := *item.SelectedVariant
			item.SelectedVariant = &v
		}
		cp.Items[i] = item
	}
	if c.Discount != nil {
		d := *c.Discount
		cp.Discount = &d
	}
	return &cp
}
