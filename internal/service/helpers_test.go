package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/cache"
	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/models"
)

type storefront struct {
	mem       *gateway.MemoryGateway
	queue     *cache.MemoryOutboxQueue
	bus       *events.Recorder
	outbox    *OutboxService
	catalog   *CatalogService
	discounts *DiscountEngine
	carts     *CartService
	orders    *OrderService
	clock     *fakeClock
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// newStorefront wires every service over the demo fixtures. wrap, when set,
// decorates the memory gateway before the services see it.
func newStorefront(t *testing.T, wrap func(*gateway.MemoryGateway) gateway.Gateway) *storefront {
	t.Helper()
	mem := gateway.NewMemoryGateway(gateway.Fixtures())
	var gw gateway.Gateway = mem
	if wrap != nil {
		gw = wrap(mem)
	}

	s := &storefront{
		mem:   mem,
		queue: cache.NewMemoryOutboxQueue(),
		bus:   &events.Recorder{},
		clock: &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	}
	s.outbox = NewOutboxService(s.queue, gw, s.bus, 3, 10)
	s.outbox.now = s.clock.Now
	s.catalog = NewCatalogService(gw, s.outbox, s.bus, 0)
	require.NoError(t, s.catalog.Load(context.Background()))
	s.discounts = NewDiscountEngine(s.catalog)
	s.carts = NewCartService(cache.NewMemoryCartStore(), s.catalog, s.discounts)
	s.orders = NewOrderService(s.catalog, s.carts, s.discounts, s.outbox,
		cache.NewMemoryIdempotencyStore(time.Hour), s.bus)
	return s
}

// newCart creates a cart holding one unit of each productID:variantID key.
func (s *storefront) newCart(t *testing.T, keys ...string) string {
	t.Helper()
	ctx := context.Background()
	view, err := s.carts.Create(ctx)
	require.NoError(t, err)
	for _, k := range keys {
		key := models.ParseCartKey(k)
		_, err := s.carts.Add(ctx, view.ID, key.ProductID, key.VariantID)
		require.NoError(t, err)
	}
	return view.ID
}

func (s *storefront) variantStock(t *testing.T, productID, variantID string) int {
	t.Helper()
	p, err := s.catalog.Product(productID)
	require.NoError(t, err)
	i := p.FindVariant(variantID)
	require.GreaterOrEqual(t, i, 0)
	return p.Variants[i].Stock
}

func customer() models.CustomerInfo {
	return models.CustomerInfo{Name: "Zainab Ali", Phone: "07701234567", City: "Baghdad", Address: "Karrada, street 62"}
}
