package models

import (
	"strings"
	"time"

	"github.com/GTDGit/storefront_api/internal/utils"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderProcessing, OrderShipped, OrderDelivered:
		return true
	}
	return false
}

// Next returns the forward status. Delivered is terminal.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderProcessing:
		return OrderShipped, true
	case OrderShipped:
		return OrderDelivered, true
	}
	return s, false
}

// InventorySync tracks whether an order's stock decrements reached the store.
type InventorySync string

const (
	InventorySynced  InventorySync = "synced"
	InventoryPending InventorySync = "pending"
	InventoryFailed  InventorySync = "failed"
)

// CustomerInfo is the cash-on-delivery contact block captured at checkout.
type CustomerInfo struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	City    string `json:"city" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// Validate trims every field and rejects blanks.
func (c *CustomerInfo) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.City = strings.TrimSpace(c.City)
	c.Address = strings.TrimSpace(c.Address)

	switch {
	case c.Name == "":
		return utils.NewValidationError("name", "is required", nil)
	case c.Phone == "":
		return utils.NewValidationError("phone", "is required", nil)
	case c.City == "":
		return utils.NewValidationError("city", "is required", nil)
	case c.Address == "":
		return utils.NewValidationError("address", "is required", nil)
	}
	return nil
}

// OrderItem is a frozen line of an order.
type OrderItem struct {
	ProductID       string   `json:"productId"`
	Name            string   `json:"name"`
	Price           int64    `json:"price"`
	SalePrice       *int64   `json:"salePrice,omitempty"`
	UnitPrice       int64    `json:"unitPrice"`
	Quantity        int      `json:"quantity"`
	SelectedVariant *Variant `json:"selectedVariant,omitempty"`
	Image           string   `json:"image"`
}

// Key returns the composite key of the purchased line.
func (i *OrderItem) Key() CartKey {
	k := CartKey{ProductID: i.ProductID}
	if i.SelectedVariant != nil {
		k.VariantID = i.SelectedVariant.ID
	}
	return k
}

// OrderItemFromCart freezes a cart line.
func OrderItemFromCart(item *CartItem) OrderItem {
	oi := OrderItem{
		ProductID: item.Product.ID,
		Name:      item.Product.Name,
		Price:     item.Product.Price,
		UnitPrice: item.Product.EffectivePrice(),
		Quantity:  item.Quantity,
		Image:     item.DisplayImage,
	}
	if item.Product.SalePrice != nil {
		sp := *item.Product.SalePrice
		oi.SalePrice = &sp
	}
	if item.SelectedVariant != nil {
		v := *item.SelectedVariant
		oi.SelectedVariant = &v
	}
	return oi
}

// Order is immutable after creation except Status, InventorySync and Oversold.
type Order struct {
	ID             string        `db:"id" json:"id"`
	OrderNumber    string        `db:"ordernumber" json:"orderNumber"`
	CustomerName   string        `db:"customername" json:"customerName"`
	Phone          string        `db:"phone" json:"phone"`
	City           string        `db:"city" json:"city"`
	Address        string        `db:"address" json:"address"`
	Items          []OrderItem   `db:"-" json:"items"`
	Subtotal       int64         `db:"subtotal" json:"subtotal"`
	DiscountAmount int64         `db:"discountamount" json:"discountAmount"`
	DiscountCode   string        `db:"discountcode" json:"discountCode,omitempty"`
	ShippingFee    int64         `db:"shippingfee" json:"shippingFee"`
	TotalAmount    int64         `db:"totalamount" json:"totalAmount"`
	Status         OrderStatus   `db:"status" json:"status"`
	Date           time.Time     `db:"date" json:"date"`
	InventorySync  InventorySync `db:"inventorysync" json:"inventorySync"`
	Oversold       bool          `db:"oversold" json:"oversold"`
}

// Clone returns a deep copy.
func (o *Order) Clone() Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		if item.SalePrice != nil {
			sp := *item.SalePrice
			item.SalePrice = &sp
		}
		if item.SelectedVariant != nil {
			v := *item.SelectedVariant
			item.SelectedVariant = &v
		}
		c.Items[i] = item
	}
	return c
}
