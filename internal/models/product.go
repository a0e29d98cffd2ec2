package models

import "time"

// Variant is a purchasable sub-unit of a product (a colour) with its own stock.
// Its ID is unique within the owning product only.
type Variant struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
	SKU   string `json:"sku,omitempty"`
	Image string `json:"image,omitempty"`
}

// Product represents a catalog entry. When Variants is non-empty, Stock is the
// sum of the variant stocks; otherwise Stock is a standalone legacy counter.
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	SKU         string    `db:"sku" json:"sku,omitempty"`
	Price       int64     `db:"price" json:"price"`
	SalePrice   *int64    `db:"sale_price" json:"salePrice,omitempty"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Device      string    `db:"device" json:"device"`
	Brand       string    `db:"brand" json:"brand"`
	Image       string    `db:"image" json:"image"`
	Images      []string  `db:"-" json:"images"`
	Rating      float64   `db:"rating" json:"rating"`
	Stock       int       `db:"stock" json:"stock"`
	Colors      []string  `db:"-" json:"colors,omitempty"`
	Variants    []Variant `db:"-" json:"variants,omitempty"`
	IsDemo      bool      `db:"-" json:"isDemo,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// EffectivePrice is the unit price charged: the sale price when present.
func (p *Product) EffectivePrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// PrimaryImage returns the main thumbnail, falling back to the first gallery image.
func (p *Product) PrimaryImage() string {
	if p.Image != "" {
		return p.Image
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

// HasVariants reports whether stock is tracked per variant.
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// FindVariant returns the index of the variant with the given id, or -1.
func (p *Product) FindVariant(id string) int {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can hold a snapshot that later
// catalog writes cannot change.
func (p *Product) Clone() Product {
	c := *p
	if p.SalePrice != nil {
		sp := *p.SalePrice
		c.SalePrice = &sp
	}
	c.Images = append([]string(nil), p.Images...)
	c.Colors = append([]string(nil), p.Colors...)
	c.Variants = append([]Variant(nil), p.Variants...)
	return c
}

// Brand is a product manufacturer shown in the catalog filters.
type Brand struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Logo string `db:"logo" json:"logo,omitempty"`
}

// Slide is one banner of the home page carousel. Color is a CSS gradient
// class list.
type Slide struct {
	ID          string `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Subtitle    string `db:"subtitle" json:"subtitle"`
	Description string `db:"description" json:"description"`
	Color       string `db:"color" json:"color"`
	Image       string `db:"image" json:"image"`
}

// Device is a phone model products are made for.
type Device struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// StoreSettings holds store-wide values persisted in store_settings.
type StoreSettings struct {
	ShippingFee int64  `db:"shipping_fee" json:"shippingFee"`
	Logo        string `db:"logo" json:"logo,omitempty"`
}
