package models

import (
	"encoding/json"
	"time"
)

// OutboxKind names the remote write an outbox entry replays.
type OutboxKind string

const (
	OutboxStockDecrement OutboxKind = "stock.decrement"
	OutboxProductUpsert  OutboxKind = "product.upsert"
	OutboxProductDelete  OutboxKind = "product.delete"
	OutboxBrandCreate    OutboxKind = "brand.create"
	OutboxBrandDelete    OutboxKind = "brand.delete"
	OutboxDeviceCreate   OutboxKind = "device.create"
	OutboxDeviceDelete   OutboxKind = "device.delete"
	OutboxDiscountUpsert OutboxKind = "discount.upsert"
	OutboxDiscountDelete OutboxKind = "discount.delete"
	OutboxSlideUpsert    OutboxKind = "slide.upsert"
	OutboxSlideDelete    OutboxKind = "slide.delete"
	OutboxSettingsSave   OutboxKind = "settings.save"
	OutboxOrderSync      OutboxKind = "order.inventory_sync"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxEntry is a pending write to the Store Gateway.
type OutboxEntry struct {
	ID            string          `json:"id"`
	Kind          OutboxKind      `json:"kind"`
	AggregateID   string          `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	Status        OutboxStatus    `json:"status"`
	LastError     string          `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// StockDecrement is the payload of a stock.decrement entry. It carries a
// delta, never an absolute stock value.
type StockDecrement struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"orderId,omitempty"`
}

// DeleteTarget is the payload of every delete entry.
type DeleteTarget struct {
	ID string `json:"id"`
}

// OrderSyncUpdate is the payload of an order.inventory_sync entry. Oversold
// is only ever raised, never cleared.
type OrderSyncUpdate struct {
	OrderID  string        `json:"orderId"`
	Sync     InventorySync `json:"sync"`
	Oversold bool          `json:"oversold"`
}

// StockChange describes the effect of one ledger decrement.
type StockChange struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Shortfall int    `json:"shortfall"`
	Aggregate int    `json:"aggregate"`
}

// Oversold reports whether the clamp at zero absorbed part of the request.
func (s StockChange) Oversold() bool {
	return s.Shortfall > 0
}
