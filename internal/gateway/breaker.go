package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// BreakerGateway wraps a Gateway with a circuit breaker. Only network
// failures count against the breaker; while it is open every call fails
// fast with utils.ErrNetworkUnavailable.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[any]
}

// NewBreakerGateway trips after failures consecutive network errors and
// retries after timeout.
func NewBreakerGateway(next Gateway, failures int, timeout time.Duration) *BreakerGateway {
	if failures < 1 {
		failures = 1
	}
	st := gobreaker.Settings{
		Name:        "store-gateway",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, utils.ErrNetworkUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &BreakerGateway{next: next, cb: gobreaker.NewCircuitBreaker[any](st)}
}

// State exposes the breaker state for health reporting.
func (g *BreakerGateway) State() gobreaker.State {
	return g.cb.State()
}

func (g *BreakerGateway) run(op string, fn func() (any, error)) (any, error) {
	defer metrics.TrackGateway(op)(time.Now())
	v, err := g.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w: %w", op, utils.ErrNetworkUnavailable, err)
	}
	return v, err
}

func (g *BreakerGateway) exec(op string, fn func() error) error {
	_, err := g.run(op, func() (any, error) { return nil, fn() })
	return err
}

func (g *BreakerGateway) Ping(ctx context.Context) error {
	return g.exec("ping", func() error { return g.next.Ping(ctx) })
}

func (g *BreakerGateway) LoadCatalog(ctx context.Context) (*Catalog, error) {
	v, err := g.run("load catalog", func() (any, error) { return g.next.LoadCatalog(ctx) })
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

func (g *BreakerGateway) UpsertProduct(ctx context.Context, p *models.Product) error {
	return g.exec("upsert product", func() error { return g.next.UpsertProduct(ctx, p) })
}

func (g *BreakerGateway) DeleteProduct(ctx context.Context, id string) error {
	return g.exec("delete product", func() error { return g.next.DeleteProduct(ctx, id) })
}

func (g *BreakerGateway) ApplyStockDecrement(ctx context.Context, d models.StockDecrement) (models.StockChange, error) {
	v, err := g.run("apply stock decrement", func() (any, error) { return g.next.ApplyStockDecrement(ctx, d) })
	if err != nil {
		return models.StockChange{}, err
	}
	return v.(models.StockChange), nil
}

func (g *BreakerGateway) CreateBrand(ctx context.Context, b *models.Brand) error {
	return g.exec("create brand", func() error { return g.next.CreateBrand(ctx, b) })
}

func (g *BreakerGateway) DeleteBrand(ctx context.Context, id string) error {
	return g.exec("delete brand", func() error { return g.next.DeleteBrand(ctx, id) })
}

func (g *BreakerGateway) UpsertSlide(ctx context.Context, s *models.Slide) error {
	return g.exec("upsert slide", func() error { return g.next.UpsertSlide(ctx, s) })
}

func (g *BreakerGateway) DeleteSlide(ctx context.Context, id string) error {
	return g.exec("delete slide", func() error { return g.next.DeleteSlide(ctx, id) })
}

func (g *BreakerGateway) CreateDevice(ctx context.Context, d *models.Device) error {
	return g.exec("create device", func() error { return g.next.CreateDevice(ctx, d) })
}

func (g *BreakerGateway) DeleteDevice(ctx context.Context, id string) error {
	return g.exec("delete device", func() error { return g.next.DeleteDevice(ctx, id) })
}

func (g *BreakerGateway) UpsertDiscount(ctx context.Context, d *models.DiscountCode) error {
	return g.exec("upsert discount", func() error { return g.next.UpsertDiscount(ctx, d) })
}

func (g *BreakerGateway) DeleteDiscount(ctx context.Context, id string) error {
	return g.exec("delete discount", func() error { return g.next.DeleteDiscount(ctx, id) })
}

func (g *BreakerGateway) InsertOrder(ctx context.Context, o *models.Order) error {
	return g.exec("insert order", func() error { return g.next.InsertOrder(ctx, o) })
}

func (g *BreakerGateway) ListOrders(ctx context.Context) ([]models.Order, error) {
	v, err := g.run("list orders", func() (any, error) { return g.next.ListOrders(ctx) })
	if err != nil {
		return nil, err
	}
	return v.([]models.Order), nil
}

func (g *BreakerGateway) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	v, err := g.run("get order", func() (any, error) { return g.next.GetOrder(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*models.Order), nil
}

func (g *BreakerGateway) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return g.exec("update order status", func() error { return g.next.UpdateOrderStatus(ctx, id, status) })
}

func (g *BreakerGateway) UpdateOrderInventorySync(ctx context.Context, id string, sync models.InventorySync, oversold bool) error {
	return g.exec("update order sync", func() error { return g.next.UpdateOrderInventorySync(ctx, id, sync, oversold) })
}

func (g *BreakerGateway) Settings(ctx context.Context) (*models.StoreSettings, error) {
	v, err := g.run("settings", func() (any, error) { return g.next.Settings(ctx) })
	if err != nil {
		return nil, err
	}
	return v.(*models.StoreSettings), nil
}

func (g *BreakerGateway) SaveSettings(ctx context.Context, s *models.StoreSettings) error {
	return g.exec("save settings", func() error { return g.next.SaveSettings(ctx, s) })
}
