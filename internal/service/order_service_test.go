package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// unsyncedGateway accepts orders but cannot apply stock decrements while down
// is set.
type unsyncedGateway struct {
	*gateway.MemoryGateway
	down atomic.Bool
}

func (g *unsyncedGateway) ApplyStockDecrement(ctx context.Context, d models.StockDecrement) (models.StockChange, error) {
	if g.down.Load() {
		return models.StockChange{}, fmt.Errorf("apply stock decrement: %w", utils.ErrNetworkUnavailable)
	}
	return g.MemoryGateway.ApplyStockDecrement(ctx, d)
}

func TestOrderService_PlaceOrder(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	cartID := sf.newCart(t, "1:v2", "1:v2")
	_, err := sf.carts.ApplyDiscount(ctx, cartID, "WELCOME10")
	require.NoError(t, err)

	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	require.NoError(t, err)

	assert.Equal(t, CheckoutPlaced, res.Status)
	order := res.Order
	assert.Equal(t, models.OrderProcessing, order.Status)
	assert.Equal(t, models.InventorySynced, order.InventorySync)
	assert.False(t, order.Oversold)
	assert.Len(t, order.OrderNumber, 6)
	assert.Equal(t, int64(84000), order.Subtotal)
	assert.Equal(t, int64(8400), order.DiscountAmount)
	assert.Equal(t, int64(5000), order.ShippingFee)
	assert.Equal(t, int64(80600), order.TotalAmount)
	assert.Equal(t, "WELCOME10", order.DiscountCode)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, int64(42000), order.Items[0].UnitPrice)
	_, offset := order.Date.Zone()
	assert.Equal(t, 3*3600, offset)

	// Local ledger and store both lost two units of v2.
	assert.Equal(t, 3, sf.variantStock(t, "1", "v2"))
	p, err := sf.catalog.Product("1")
	require.NoError(t, err)
	assert.Equal(t, 13, p.Stock)

	stored, err := sf.mem.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, stored.Products[0].Stock)

	persisted, err := sf.mem.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InventorySynced, persisted.InventorySync)

	status, err := sf.outbox.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.Entries)

	cart, err := sf.carts.Get(ctx, cartID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Nil(t, cart.Discount)

	assert.Contains(t, sf.bus.Types(), events.OrderCreated)
	assert.Contains(t, sf.bus.Types(), events.StockChanged)
}

func TestOrderService_PlaceOrderNotPlacedWhenStoreDown(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "3:v1")
	before := sf.variantStock(t, "3", "v1")

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, utils.ErrOrderNotPlaced)
	assert.ErrorIs(t, err, utils.ErrNetworkUnavailable)

	// Nothing moved: stock, cart and outbox are untouched.
	assert.Equal(t, before, sf.variantStock(t, "3", "v1"))
	cart, err := sf.carts.Get(ctx, cartID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	status, err := sf.outbox.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.Entries)
	assert.NotContains(t, sf.bus.Types(), events.OrderCreated)
}

func TestOrderService_PlaceOrderIsIdempotent(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "4:v1")

	first, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "key-1")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	orders, err := sf.orders.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, 99, sf.variantStock(t, "4", "v1"))
}

func TestOrderService_FailedCheckoutReleasesIdempotencyKey(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "4:v1")

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	_, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "key-2")
	require.ErrorIs(t, err, utils.ErrOrderNotPlaced)

	sf.mem.SetFailure(nil)
	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "key-2")
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, CheckoutPlaced, res.Status)
}

func TestOrderService_PlaceOrderClampsOversell(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	// Neon Tokyo Night has 8 units of v1.
	cartID := sf.newCart(t, "3:v1")
	_, err := sf.carts.UpdateQuantity(ctx, cartID, models.CartKey{ProductID: "3", VariantID: "v1"}, 9)
	require.NoError(t, err)

	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	require.NoError(t, err)
	assert.True(t, res.Order.Oversold)
	assert.Equal(t, 0, sf.variantStock(t, "3", "v1"))

	persisted, err := sf.mem.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.True(t, persisted.Oversold)
	assert.Equal(t, models.InventorySynced, persisted.InventorySync)
}

func TestOrderService_PlaceOrderWithDelayedSync(t *testing.T) {
	var gw *unsyncedGateway
	sf := newStorefront(t, func(m *gateway.MemoryGateway) gateway.Gateway {
		gw = &unsyncedGateway{MemoryGateway: m}
		return gw
	})
	ctx := context.Background()
	cartID := sf.newCart(t, "5:v1")

	gw.down.Store(true)
	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	require.NoError(t, err)
	assert.Equal(t, CheckoutSyncDelayed, res.Status)
	assert.Equal(t, models.InventoryPending, res.Order.InventorySync)

	// The order exists and the local ledger already moved.
	assert.Equal(t, 22, sf.variantStock(t, "5", "v1"))
	persisted, err := sf.mem.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InventoryPending, persisted.InventorySync)

	state, err := sf.outbox.OrderSync(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InventoryPending, state)

	// The store comes back and the retry lands.
	gw.down.Store(false)
	sf.clock.Advance(time.Minute)
	drained, err := sf.outbox.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, drained.Delivered)

	persisted, err = sf.mem.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InventorySynced, persisted.InventorySync)

	stored, err := sf.mem.LoadCatalog(ctx)
	require.NoError(t, err)
	for _, p := range stored.Products {
		if p.ID == "5" {
			assert.Equal(t, 22, p.Stock)
		}
	}
}

func TestOrderService_PlaceOrderRejectsBadInput(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	empty := sf.newCart(t)
	_, err := sf.orders.PlaceOrder(ctx, empty, customer(), "")
	assert.ErrorIs(t, err, utils.ErrEmptyCart)

	cartID := sf.newCart(t, "2:v1")
	bad := customer()
	bad.Phone = "   "
	_, err = sf.orders.PlaceOrder(ctx, cartID, bad, "")
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = sf.orders.PlaceOrder(ctx, "missing", customer(), "")
	assert.ErrorIs(t, err, utils.ErrCartNotFound)

	// A product deleted after it was added blocks checkout.
	require.NoError(t, sf.catalog.DeleteProduct(ctx, "2"))
	_, err = sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	assert.ErrorIs(t, err, utils.ErrProductNotFound)

	orders, err := sf.orders.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_PlaceOrderDropsStaleDiscount(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	cartID := sf.newCart(t, "2:v1")
	_, err := sf.carts.ApplyDiscount(ctx, cartID, "SAVE5000")
	require.NoError(t, err)

	_, err = sf.catalog.ToggleDiscount(ctx, "SAVE5000")
	require.NoError(t, err)

	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	require.NoError(t, err)
	assert.Equal(t, "SAVE5000", res.RevokedDiscount)
	assert.Equal(t, int64(0), res.Order.DiscountAmount)
	assert.Equal(t, int64(50000), res.Order.TotalAmount)
}

func TestOrderService_AdvanceStatus(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()
	res, err := sf.orders.PlaceOrder(ctx, sf.newCart(t, "6:v1"), customer(), "")
	require.NoError(t, err)
	id := res.Order.ID

	order, err := sf.orders.AdvanceStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderShipped, order.Status)

	order, err = sf.orders.AdvanceStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, order.Status)

	_, err = sf.orders.AdvanceStatus(ctx, id)
	assert.ErrorIs(t, err, utils.ErrInvalidStatus)

	order, err = sf.orders.SetStatus(ctx, id, models.OrderProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, order.Status)

	_, err = sf.orders.SetStatus(ctx, id, "Lost")
	assert.ErrorIs(t, err, utils.ErrInvalidStatus)

	_, err = sf.orders.AdvanceStatus(ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
	assert.Contains(t, sf.bus.Types(), events.OrderStatusChanged)
}

func TestOrderService_DemoModeKeepsWritesLocal(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	sf.mem.SetFailure(utils.ErrNetworkUnavailable)
	require.NoError(t, sf.catalog.Load(ctx))
	require.True(t, sf.catalog.IsDemo())

	recovered, err := sf.catalog.Recover(ctx)
	require.NoError(t, err)
	assert.False(t, recovered, "store is still down")

	_, err = sf.catalog.CreateProduct(ctx, &ProductInput{Name: "Local only", Price: 1000, Stock: 3})
	require.NoError(t, err)

	cartID := sf.newCart(t, "1:v2")
	res, err := sf.orders.PlaceOrder(ctx, cartID, customer(), "")
	require.NoError(t, err)
	assert.Equal(t, CheckoutPlaced, res.Status)
	assert.Equal(t, models.InventorySynced, res.Order.InventorySync)
	assert.Equal(t, 4, sf.variantStock(t, "1", "v2"))

	stored, err := sf.orders.Order(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.OrderNumber, stored.OrderNumber)

	pending, failed, err := sf.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, failed)

	sf.mem.SetFailure(nil)
	recovered, err = sf.catalog.Recover(ctx)
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.False(t, sf.catalog.IsDemo())

	catalog, err := sf.mem.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog.Products, 6)
	orders, err := sf.mem.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = sf.orders.Order(ctx, res.Order.ID)
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)
}

func TestOrderService_OrdersByPhone(t *testing.T) {
	sf := newStorefront(t, nil)
	ctx := context.Background()

	c := customer()
	c.Phone = "+964 770 123 4567"
	_, err := sf.orders.PlaceOrder(ctx, sf.newCart(t, "2:v1"), c, "")
	require.NoError(t, err)
	_, err = sf.orders.PlaceOrder(ctx, sf.newCart(t, "2:v2"), customer(), "")
	require.NoError(t, err)

	orders, err := sf.orders.OrdersByPhone(ctx, "770-123-4567")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = sf.orders.OrdersByPhone(ctx, "964")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, c.Phone, orders[0].Phone)

	orders, err = sf.orders.OrdersByPhone(ctx, "0781")
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, err = sf.orders.OrdersByPhone(ctx, " - ")
	assert.ErrorIs(t, err, utils.ErrValidation)
}
