// Package gateway is the boundary to the remote relational store that backs
// the storefront catalog and orders.
package gateway

import (
	"context"

	"github.com/GTDGit/storefront_api/internal/models"
)

// Catalog is a full snapshot of the catalog tables.
type Catalog struct {
	Products  []models.Product
	Brands    []models.Brand
	Devices   []models.Device
	Discounts []models.DiscountCode
	Slides    []models.Slide
	Settings  models.StoreSettings
}

// Gateway is the Store Gateway. Implementations classify failures with
// utils.ErrNetworkUnavailable, utils.ErrSchemaMismatch and the not-found
// sentinels of package utils.
type Gateway interface {
	Ping(ctx context.Context) error
	LoadCatalog(ctx context.Context) (*Catalog, error)

	UpsertProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// ApplyStockDecrement applies a stock delta atomically on the store
	// side and returns the resulting change.
	ApplyStockDecrement(ctx context.Context, d models.StockDecrement) (models.StockChange, error)

	CreateBrand(ctx context.Context, b *models.Brand) error
	DeleteBrand(ctx context.Context, id string) error
	CreateDevice(ctx context.Context, d *models.Device) error
	DeleteDevice(ctx context.Context, id string) error

	UpsertSlide(ctx context.Context, s *models.Slide) error
	DeleteSlide(ctx context.Context, id string) error

	UpsertDiscount(ctx context.Context, d *models.DiscountCode) error
	DeleteDiscount(ctx context.Context, id string) error

	InsertOrder(ctx context.Context, o *models.Order) error
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	UpdateOrderInventorySync(ctx context.Context, id string, sync models.InventorySync, oversold bool) error

	Settings(ctx context.Context) (*models.StoreSettings, error)
	SaveSettings(ctx context.Context, s *models.StoreSettings) error
}
