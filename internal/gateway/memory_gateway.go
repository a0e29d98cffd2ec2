package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GTDGit/storefront_api/internal/ledger"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// MemoryGateway is an in-process Store Gateway used in offline mode and in
// tests. It behaves like the SQL gateway without a schema to negotiate.
type MemoryGateway struct {
	mu        sync.RWMutex
	products  []models.Product
	brands    []models.Brand
	devices   []models.Device
	slides    []models.Slide
	discounts []models.DiscountCode
	orders    []models.Order
	settings  models.StoreSettings

	// fail, when set, is returned by every call. Tests use it to simulate
	// an unreachable store.
	fail error
}

// NewMemoryGateway creates a gateway seeded with a copy of seed, or with an
// empty catalog when seed is nil.
func NewMemoryGateway(seed *Catalog) *MemoryGateway {
	g := &MemoryGateway{settings: models.StoreSettings{ShippingFee: DefaultShippingFee}}
	if seed == nil {
		return g
	}
	for i := range seed.Products {
		g.products = append(g.products, seed.Products[i].Clone())
	}
	g.brands = append(g.brands, seed.Brands...)
	g.devices = append(g.devices, seed.Devices...)
	g.slides = append(g.slides, seed.Slides...)
	g.discounts = append(g.discounts, seed.Discounts...)
	g.settings = seed.Settings
	return g
}

// SetFailure makes every following call return err. Passing nil clears it.
func (g *MemoryGateway) SetFailure(err error) {
	g.mu.Lock()
	g.fail = err
	g.mu.Unlock()
}

func (g *MemoryGateway) check(op string) error {
	if g.fail != nil {
		return classify(op, g.fail)
	}
	return nil
}

func (g *MemoryGateway) Ping(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.check("ping")
}

func (g *MemoryGateway) LoadCatalog(ctx context.Context) (*Catalog, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("load catalog"); err != nil {
		return nil, err
	}

	c := &Catalog{
		Brands:    append([]models.Brand(nil), g.brands...),
		Devices:   append([]models.Device(nil), g.devices...),
		Slides:    append([]models.Slide(nil), g.slides...),
		Discounts: append([]models.DiscountCode(nil), g.discounts...),
		Settings:  g.settings,
	}
	for i := range g.products {
		c.Products = append(c.Products, g.products[i].Clone())
	}
	return c, nil
}

func (g *MemoryGateway) findProduct(id string) int {
	for i := range g.products {
		if g.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *MemoryGateway) UpsertProduct(ctx context.Context, p *models.Product) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("upsert product"); err != nil {
		return err
	}
	if i := g.findProduct(p.ID); i >= 0 {
		g.products[i] = p.Clone()
		return nil
	}
	g.products = append(g.products, p.Clone())
	return nil
}

func (g *MemoryGateway) DeleteProduct(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("delete product"); err != nil {
		return err
	}
	if i := g.findProduct(id); i >= 0 {
		g.products = append(g.products[:i], g.products[i+1:]...)
	}
	return nil
}

func (g *MemoryGateway) ApplyStockDecrement(ctx context.Context, d models.StockDecrement) (models.StockChange, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("apply stock decrement"); err != nil {
		return models.StockChange{}, err
	}
	i := g.findProduct(d.ProductID)
	if i < 0 {
		return models.StockChange{}, fmt.Errorf("product %s: %w", d.ProductID, utils.ErrProductNotFound)
	}
	// Work on a copy so a rejected decrement leaves the row untouched.
	p := g.products[i].Clone()
	change, err := ledger.Decrement(&p, d.VariantID, d.Quantity)
	if err != nil {
		return change, err
	}
	g.products[i] = p
	return change, nil
}

func (g *MemoryGateway) CreateBrand(ctx context.Context, b *models.Brand) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("create brand"); err != nil {
		return err
	}
	g.brands = append(g.brands, *b)
	return nil
}

func (g *MemoryGateway) DeleteBrand(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("delete brand"); err != nil {
		return err
	}
	for i := range g.brands {
		if g.brands[i].ID == id {
			g.brands = append(g.brands[:i], g.brands[i+1:]...)
			break
		}
	}
	return nil
}

func (g *MemoryGateway) CreateDevice(ctx context.Context, d *models.Device) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("create device"); err != nil {
		return err
	}
	g.devices = append(g.devices, *d)
	return nil
}

func (g *MemoryGateway) DeleteDevice(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("delete device"); err != nil {
		return err
	}
	for i := range g.devices {
		if g.devices[i].ID == id {
			g.devices = append(g.devices[:i], g.devices[i+1:]...)
			break
		}
	}
	return nil
}

func (g *MemoryGateway) UpsertSlide(ctx context.Context, s *models.Slide) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("upsert slide"); err != nil {
		return err
	}
	for i := range g.slides {
		if g.slides[i].ID == s.ID {
			g.slides[i] = *s
			return nil
		}
	}
	g.slides = append(g.slides, *s)
	return nil
}

func (g *MemoryGateway) DeleteSlide(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("delete slide"); err != nil {
		return err
	}
	for i := range g.slides {
		if g.slides[i].ID == id {
			g.slides = append(g.slides[:i], g.slides[i+1:]...)
			break
		}
	}
	return nil
}

func (g *MemoryGateway) UpsertDiscount(ctx context.Context, d *models.DiscountCode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("upsert discount"); err != nil {
		return err
	}
	for i := range g.discounts {
		if g.discounts[i].ID == d.ID {
			g.discounts[i] = *d
			return nil
		}
		if strings.EqualFold(g.discounts[i].Code, d.Code) {
			return fmt.Errorf("discount %s: %w", d.Code, utils.ErrDuplicateDiscount)
		}
	}
	g.discounts = append(g.discounts, *d)
	return nil
}

func (g *MemoryGateway) DeleteDiscount(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("delete discount"); err != nil {
		return err
	}
	for i := range g.discounts {
		if g.discounts[i].ID == id {
			g.discounts = append(g.discounts[:i], g.discounts[i+1:]...)
			break
		}
	}
	return nil
}

func (g *MemoryGateway) InsertOrder(ctx context.Context, o *models.Order) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("insert order"); err != nil {
		return err
	}
	for i := range g.orders {
		if g.orders[i].ID == o.ID {
			// Replayed insert.
			return nil
		}
	}
	g.orders = append(g.orders, o.Clone())
	return nil
}

func (g *MemoryGateway) ListOrders(ctx context.Context) ([]models.Order, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("list orders"); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(g.orders))
	for i := range g.orders {
		out = append(out, g.orders[i].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (g *MemoryGateway) findOrder(id string) int {
	for i := range g.orders {
		if g.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *MemoryGateway) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("get order"); err != nil {
		return nil, err
	}
	i := g.findOrder(id)
	if i < 0 {
		return nil, fmt.Errorf("order %s: %w", id, utils.ErrOrderNotFound)
	}
	o := g.orders[i].Clone()
	return &o, nil
}

func (g *MemoryGateway) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("update order status"); err != nil {
		return err
	}
	i := g.findOrder(id)
	if i < 0 {
		return fmt.Errorf("order %s: %w", id, utils.ErrOrderNotFound)
	}
	g.orders[i].Status = status
	return nil
}

func (g *MemoryGateway) UpdateOrderInventorySync(ctx context.Context, id string, sync models.InventorySync, oversold bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("update order sync"); err != nil {
		return err
	}
	i := g.findOrder(id)
	if i < 0 {
		return fmt.Errorf("order %s: %w", id, utils.ErrOrderNotFound)
	}
	g.orders[i].InventorySync = sync
	g.orders[i].Oversold = oversold
	return nil
}

func (g *MemoryGateway) Settings(ctx context.Context) (*models.StoreSettings, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("settings"); err != nil {
		return nil, err
	}
	s := g.settings
	return &s, nil
}

func (g *MemoryGateway) SaveSettings(ctx context.Context, s *models.StoreSettings) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check("save settings"); err != nil {
		return err
	}
	g.settings = *s
	return nil
}
