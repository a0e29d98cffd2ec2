package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/storefront_api/internal/cache"
	"github.com/GTDGit/storefront_api/internal/events"
	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/metrics"
	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CheckoutStatus tells the shopper what happened to their order.
type CheckoutStatus string

const (
	CheckoutPlaced      CheckoutStatus = "placed"
	CheckoutSyncDelayed CheckoutStatus = "placed_sync_delayed"
)

// CheckoutResult is the outcome of a committed checkout.
type CheckoutResult struct {
	Order    *models.Order  `json:"order"`
	Status   CheckoutStatus `json:"status"`
	Message  string         `json:"message"`
	Replayed bool           `json:"replayed,omitempty"`
	// RevokedDiscount is set when the cart's code no longer qualified at
	// checkout and was dropped before pricing.
	RevokedDiscount string `json:"revokedDiscount,omitempty"`
}

// OrderService turns carts into orders and manages order status.
type OrderService struct {
	catalog     *CatalogService
	carts       *CartService
	discounts   *DiscountEngine
	outbox      *OutboxService
	idempotency cache.IdempotencyStore
	bus         events.Publisher
	now         func() time.Time
}

// NewOrderService constructs an OrderService.
func NewOrderService(
	catalog *CatalogService,
	carts *CartService,
	discounts *DiscountEngine,
	outbox *OutboxService,
	idempotency cache.IdempotencyStore,
	bus events.Publisher,
) *OrderService {
	return &OrderService{
		catalog:     catalog,
		carts:       carts,
		discounts:   discounts,
		outbox:      outbox,
		idempotency: idempotency,
		bus:         bus,
		now:         time.Now,
	}
}

// PlaceOrder checks out a cart. The order is persisted before any stock is
// touched; when persisting fails the error wraps utils.ErrOrderNotPlaced and
// nothing else changes. Stock decrements that cannot reach the store right
// away stay in the outbox and the order is reported as placed with a delayed
// inventory sync.
func (s *OrderService) PlaceOrder(ctx context.Context, cartID string, customer models.CustomerInfo, idempotencyKey string) (result *CheckoutResult, err error) {
	if idempotencyKey != "" {
		orderID, reserved, rErr := s.idempotency.Reserve(ctx, idempotencyKey)
		if rErr != nil {
			return nil, rErr
		}
		if !reserved {
			return s.replay(ctx, orderID)
		}
		defer func() {
			if err != nil {
				if relErr := s.idempotency.Release(ctx, idempotencyKey); relErr != nil {
					log.Error().Err(relErr).Str("idempotency_key", idempotencyKey).Msg("Failed to release idempotency key")
				}
			}
		}()
	}

	// Draft: snapshot and validate.
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	snapshot := cart.Clone()
	if snapshot.IsEmpty() {
		return nil, utils.ErrEmptyCart
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkLines(snapshot); err != nil {
		return nil, err
	}
	revoked := s.discounts.Revalidate(snapshot)
	totals := s.discounts.Totals(snapshot, s.catalog.ShippingFee())

	number, err := utils.GenerateOrderNumber()
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}
	order := &models.Order{
		ID:             uuid.NewString(),
		OrderNumber:    number,
		CustomerName:   customer.Name,
		Phone:          customer.Phone,
		City:           customer.City,
		Address:        customer.Address,
		Items:          make([]models.OrderItem, 0, len(snapshot.Items)),
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		ShippingFee:    totals.ShippingFee,
		TotalAmount:    totals.TotalAmount,
		Status:         models.OrderProcessing,
		Date:           s.now().In(utils.StoreZone),
		InventorySync:  models.InventoryPending,
	}
	if snapshot.Discount != nil {
		order.DiscountCode = snapshot.Discount.Code
	}
	for i := range snapshot.Items {
		order.Items = append(order.Items, models.OrderItemFromCart(&snapshot.Items[i]))
	}

	// Submitting: persist the order. Nothing has been mutated yet. Demo
	// orders stay in the local store and never reach the outbox.
	store, demo := s.catalog.orderStore()
	if err := store.InsertOrder(ctx, order); err != nil {
		metrics.RecordOrder("failed")
		log.Error().Err(err).Str("order_id", order.ID).Str("cart_id", cartID).Msg("Failed to persist order")
		return nil, fmt.Errorf("%w: %w", utils.ErrOrderNotPlaced, err)
	}

	// Committed: decrement stock locally and queue the remote deltas.
	oversold := s.fulfil(ctx, order, !demo)
	var sync models.InventorySync
	if demo {
		sync = models.InventorySynced
		if uErr := store.UpdateOrderInventorySync(ctx, order.ID, sync, oversold); uErr != nil {
			log.Error().Err(uErr).Str("order_id", order.ID).Msg("Failed to record demo order inventory sync")
		}
	} else {
		sync = s.syncRemote(ctx, order.ID, oversold)
	}
	order.InventorySync = sync
	order.Oversold = oversold

	if _, cErr := s.carts.Clear(ctx, cartID); cErr != nil {
		log.Error().Err(cErr).Str("cart_id", cartID).Msg("Failed to clear cart after checkout")
	}
	if idempotencyKey != "" {
		if cErr := s.idempotency.Complete(ctx, idempotencyKey, order.ID); cErr != nil {
			log.Error().Err(cErr).Str("idempotency_key", idempotencyKey).Msg("Failed to record idempotency key")
		}
	}

	result = &CheckoutResult{Order: order, Status: CheckoutPlaced, Message: "Your order was placed"}
	if revoked != nil {
		result.RevokedDiscount = revoked.Code
	}
	if sync != models.InventorySynced {
		result.Status = CheckoutSyncDelayed
		result.Message = "Your order was placed but inventory sync is delayed"
	}
	metrics.RecordOrder(string(result.Status))
	log.Info().
		Str("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("total_amount", order.TotalAmount).
		Str("inventory_sync", string(sync)).
		Bool("oversold", oversold).
		Msg("Order placed")
	s.bus.Publish(ctx, events.New(events.OrderCreated, order.ID, order))
	return result, nil
}

// syncRemote drains the stock deltas of a committed order and records the
// resulting inventory sync on the stored order.
func (s *OrderService) syncRemote(ctx context.Context, orderID string, oversold bool) models.InventorySync {
	if _, dErr := s.outbox.Drain(ctx); dErr != nil {
		log.Warn().Err(dErr).Str("order_id", orderID).Msg("Immediate outbox drain failed")
	}
	sync, sErr := s.outbox.OrderSync(ctx, orderID)
	if sErr != nil {
		log.Error().Err(sErr).Str("order_id", orderID).Msg("Failed to read order inventory sync")
		sync = models.InventoryPending
	}
	if sync == models.InventoryPending && !oversold {
		return sync
	}
	if _, qErr := s.outbox.Enqueue(ctx, models.OutboxOrderSync, orderID,
		models.OrderSyncUpdate{OrderID: orderID, Sync: sync, Oversold: oversold}); qErr != nil {
		log.Error().Err(qErr).Str("order_id", orderID).Msg("Failed to queue order inventory sync")
	} else if _, dErr := s.outbox.Drain(ctx); dErr != nil {
		log.Warn().Err(dErr).Str("order_id", orderID).Msg("Immediate outbox drain failed")
	}
	return sync
}

func (s *OrderService) store() gateway.Gateway {
	return s.catalog.OrderStore()
}

// checkLines rejects carts whose products or variants left the catalog.
func (s *OrderService) checkLines(cart *models.Cart) error {
	for i := range cart.Items {
		item := &cart.Items[i]
		p, err := s.catalog.Product(item.Product.ID)
		if err != nil {
			return err
		}
		if item.SelectedVariant != nil && p.FindVariant(item.SelectedVariant.ID) < 0 {
			return fmt.Errorf("product %s variant %s: %w", p.ID, item.SelectedVariant.ID, utils.ErrVariantNotFound)
		}
		if item.SelectedVariant == nil && p.HasVariants() {
			return utils.NewValidationError("items", "a variant of "+p.Name+" must be selected", nil)
		}
	}
	return nil
}

// fulfil applies each line to the local ledger and, when remote is set,
// queues the matching remote delta. Failures are logged and left to the
// outbox status; the order is already committed. It reports whether any
// line was oversold.
func (s *OrderService) fulfil(ctx context.Context, order *models.Order, remote bool) bool {
	oversold := false
	for i := range order.Items {
		item := &order.Items[i]
		key := item.Key()
		logger := log.With().Str("order_id", order.ID).Str("product_id", key.ProductID).Str("variant_id", key.VariantID).Int("quantity", item.Quantity).Logger()

		change, err := s.catalog.DecrementStock(ctx, key.ProductID, key.VariantID, item.Quantity)
		if err != nil {
			logger.Error().Err(err).Msg("Local stock decrement failed")
		} else if change.Oversold() {
			oversold = true
			metrics.RecordOversell()
			logger.Warn().Int("shortfall", change.Shortfall).Msg("Stock decrement clamped at zero")
		}

		if !remote {
			continue
		}
		d := models.StockDecrement{ProductID: key.ProductID, VariantID: key.VariantID, Quantity: item.Quantity, OrderID: order.ID}
		if _, err := s.outbox.Enqueue(ctx, models.OutboxStockDecrement, key.ProductID, d); err != nil {
			logger.Error().Err(err).Msg("Failed to queue stock decrement")
		}
	}
	return oversold
}

func (s *OrderService) replay(ctx context.Context, orderID string) (*CheckoutResult, error) {
	order, err := s.store().GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	res := &CheckoutResult{Order: order, Status: CheckoutPlaced, Message: "Your order was placed", Replayed: true}
	if order.InventorySync != models.InventorySynced {
		res.Status = CheckoutSyncDelayed
		res.Message = "Your order was placed but inventory sync is delayed"
	}
	return res, nil
}

// Orders lists all orders, newest first.
func (s *OrderService) Orders(ctx context.Context) ([]models.Order, error) {
	return s.store().ListOrders(ctx)
}

// OrdersByPhone returns the orders placed with phone, newest first. Only
// digits are compared, so formatting differences do not matter.
func (s *OrderService) OrdersByPhone(ctx context.Context, phone string) ([]models.Order, error) {
	want := digits(phone)
	if want == "" {
		return nil, utils.NewValidationError("phone", "is required", nil)
	}
	orders, err := s.store().ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, 0)
	for i := range orders {
		if strings.Contains(digits(orders[i].Phone), want) {
			out = append(out, orders[i])
		}
	}
	return out, nil
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// Order returns one order.
func (s *OrderService) Order(ctx context.Context, id string) (*models.Order, error) {
	return s.store().GetOrder(ctx, id)
}

// AdvanceStatus moves an order one step forward. Delivered is terminal.
func (s *OrderService) AdvanceStatus(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.store().GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := order.Status.Next()
	if !ok {
		return nil, utils.NewValidationError("status", "order "+order.OrderNumber+" is already "+string(order.Status), utils.ErrInvalidStatus)
	}
	return s.setStatus(ctx, order, next)
}

// SetStatus sets any valid status.
func (s *OrderService) SetStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, utils.NewValidationError("status", "unknown status "+string(status), utils.ErrInvalidStatus)
	}
	order, err := s.store().GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, order, status)
}

func (s *OrderService) setStatus(ctx context.Context, order *models.Order, status models.OrderStatus) (*models.Order, error) {
	if err := s.store().UpdateOrderStatus(ctx, order.ID, status); err != nil {
		return nil, err
	}
	prev := order.Status
	order.Status = status
	log.Info().Str("order_id", order.ID).Str("from", string(prev)).Str("to", string(status)).Msg("Order status changed")
	s.bus.Publish(ctx, events.New(events.OrderStatusChanged, order.ID, order))
	return order, nil
}
