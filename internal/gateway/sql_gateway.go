package gateway

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/ledger"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/repository"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// SQLGateway is the PostgreSQL Store Gateway.
type SQLGateway struct {
	db        *sqlx.DB
	products  *repository.ProductRepository
	brands    *repository.BrandRepository
	slides    *repository.SlideRepository
	discounts *repository.DiscountRepository
	orders    *repository.OrderRepository
	settings  *repository.SettingsRepository
}

// NewSQLGateway creates a new SQLGateway sharing one schema cache across
// its repositories.
func NewSQLGateway(db *sqlx.DB) *SQLGateway {
	schema := repository.NewSchemaCache(db)
	return &SQLGateway{
		db:        db,
		products:  repository.NewProductRepository(db, schema),
		brands:    repository.NewBrandRepository(db),
		slides:    repository.NewSlideRepository(db),
		discounts: repository.NewDiscountRepository(db),
		orders:    repository.NewOrderRepository(db, schema),
		settings:  repository.NewSettingsRepository(db),
	}
}

func (g *SQLGateway) Ping(ctx context.Context) error {
	return classify("ping", g.db.PingContext(ctx))
}

func (g *SQLGateway) LoadCatalog(ctx context.Context) (*Catalog, error) {
	products, err := g.products.GetAll(ctx)
	if err != nil {
		return nil, classify("load products", err)
	}
	brands, err := g.brands.GetBrands(ctx)
	if err != nil {
		return nil, classify("load brands", err)
	}
	devices, err := g.brands.GetDevices(ctx)
	if err != nil {
		return nil, classify("load devices", err)
	}
	discounts, err := g.discounts.GetAll(ctx)
	if err != nil {
		return nil, classify("load discounts", err)
	}
	slides, err := g.slides.GetAll(ctx)
	if err != nil {
		return nil, classify("load slides", err)
	}
	settings, err := g.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		Products:  products,
		Brands:    brands,
		Devices:   devices,
		Discounts: discounts,
		Slides:    slides,
		Settings:  *settings,
	}, nil
}

func (g *SQLGateway) UpsertProduct(ctx context.Context, p *models.Product) error {
	return classify("upsert product", g.products.Upsert(ctx, p))
}

func (g *SQLGateway) DeleteProduct(ctx context.Context, id string) error {
	// Deleting an already deleted product is a successful replay.
	_, err := g.products.Delete(ctx, id)
	return classify("delete product", err)
}

// ApplyStockDecrement locks the product row, runs the ledger decrement on the
// stored values and writes the result in the same transaction, so concurrent
// checkouts against one product are serialized by PostgreSQL.
func (g *SQLGateway) ApplyStockDecrement(ctx context.Context, d models.StockDecrement) (change models.StockChange, err error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return change, classify("begin stock tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := g.products.GetForUpdate(ctx, tx, d.ProductID)
	if repository.IsNoRows(err) {
		return change, fmt.Errorf("product %s: %w", d.ProductID, utils.ErrProductNotFound)
	}
	if err != nil {
		return change, classify("lock product", err)
	}

	change, err = ledger.Decrement(p, d.VariantID, d.Quantity)
	if err != nil {
		return change, err
	}
	if err = g.products.UpdateStock(ctx, tx, p); err != nil {
		return change, classify("update stock", err)
	}
	if err = tx.Commit(); err != nil {
		return change, classify("commit stock tx", err)
	}

	if change.Oversold() {
		log.Warn().
			Str("product_id", d.ProductID).
			Str("variant_id", d.VariantID).
			Str("order_id", d.OrderID).
			Int("shortfall", change.Shortfall).
			Msg("stock decrement clamped at zero on store")
	}
	return change, nil
}

func (g *SQLGateway) CreateBrand(ctx context.Context, b *models.Brand) error {
	return classify("create brand", g.brands.CreateBrand(ctx, b))
}

func (g *SQLGateway) DeleteBrand(ctx context.Context, id string) error {
	_, err := g.brands.DeleteBrand(ctx, id)
	return classify("delete brand", err)
}

func (g *SQLGateway) UpsertSlide(ctx context.Context, s *models.Slide) error {
	return classify("upsert slide", g.slides.Upsert(ctx, s))
}

func (g *SQLGateway) DeleteSlide(ctx context.Context, id string) error {
	_, err := g.slides.Delete(ctx, id)
	return classify("delete slide", err)
}

func (g *SQLGateway) CreateDevice(ctx context.Context, d *models.Device) error {
	return classify("create device", g.brands.CreateDevice(ctx, d))
}

func (g *SQLGateway) DeleteDevice(ctx context.Context, id string) error {
	_, err := g.brands.DeleteDevice(ctx, id)
	return classify("delete device", err)
}

func (g *SQLGateway) UpsertDiscount(ctx context.Context, d *models.DiscountCode) error {
	return classify("upsert discount", g.discounts.Upsert(ctx, d))
}

func (g *SQLGateway) DeleteDiscount(ctx context.Context, id string) error {
	_, err := g.discounts.Delete(ctx, id)
	return classify("delete discount", err)
}

func (g *SQLGateway) InsertOrder(ctx context.Context, o *models.Order) error {
	return classify("insert order", g.orders.Create(ctx, o))
}

func (g *SQLGateway) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := g.orders.GetAll(ctx)
	return orders, classify("list orders", err)
}

func (g *SQLGateway) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := g.orders.GetByID(ctx, id)
	if repository.IsNoRows(err) {
		return nil, fmt.Errorf("order %s: %w", id, utils.ErrOrderNotFound)
	}
	return o, classify("get order", err)
}

func (g *SQLGateway) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	err := g.orders.UpdateStatus(ctx, id, status)
	if repository.IsNoRows(err) {
		return fmt.Errorf("order %s: %w", id, utils.ErrOrderNotFound)
	}
	return classify("update order status", err)
}

func (g *SQLGateway) UpdateOrderInventorySync(ctx context.Context, id string, sync models.InventorySync, oversold bool) error {
	err := g.orders.UpdateInventorySync(ctx, id, sync, oversold)
	if repository.IsNoRows(err) {
		return fmt.Errorf("order %s: %w", id, utils.ErrOrderNotFound)
	}
	return classify("update order sync", err)
}

func (g *SQLGateway) Settings(ctx context.Context) (*models.StoreSettings, error) {
	s, err := g.settings.Get(ctx)
	if repository.IsNoRows(err) {
		return &models.StoreSettings{ShippingFee: DefaultShippingFee}, nil
	}
	if err != nil {
		return nil, classify("load settings", err)
	}
	return s, nil
}

func (g *SQLGateway) SaveSettings(ctx context.Context, s *models.StoreSettings) error {
	return classify("save settings", g.settings.Save(ctx, s))
}
