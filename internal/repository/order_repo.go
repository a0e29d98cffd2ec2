package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/models"
)

type orderRow struct {
	ID             string         `db:"id"`
	OrderNumber    string         `db:"ordernumber"`
	CustomerName   string         `db:"customername"`
	Phone          string         `db:"phone"`
	City           string         `db:"city"`
	Address        string         `db:"address"`
	Items          []byte         `db:"items"`
	Subtotal       sql.NullInt64  `db:"subtotal"`
	DiscountAmount int64          `db:"discountamount"`
	DiscountCode   sql.NullString `db:"discountcode"`
	ShippingFee    int64          `db:"shippingfee"`
	TotalAmount    int64          `db:"totalamount"`
	Status         string         `db:"status"`
	Date           time.Time      `db:"date"`
	InventorySync  sql.NullString `db:"inventorysync"`
	Oversold       sql.NullBool   `db:"oversold"`
}

func (r *orderRow) toModel() (models.Order, error) {
	o := models.Order{
		ID:             r.ID,
		OrderNumber:    r.OrderNumber,
		CustomerName:   r.CustomerName,
		Phone:          r.Phone,
		City:           r.City,
		Address:        r.Address,
		DiscountAmount: r.DiscountAmount,
		DiscountCode:   r.DiscountCode.String,
		ShippingFee:    r.ShippingFee,
		TotalAmount:    r.TotalAmount,
		Status:         models.OrderStatus(r.Status),
		Date:           r.Date,
		InventorySync:  models.InventorySynced,
		Oversold:       r.Oversold.Bool,
	}
	if r.InventorySync.Valid && r.InventorySync.String != "" {
		o.InventorySync = models.InventorySync(r.InventorySync.String)
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return o, fmt.Errorf("decode items of order %s: %w", r.ID, err)
	}
	if r.Subtotal.Valid {
		o.Subtotal = r.Subtotal.Int64
	} else {
		o.Subtotal = o.TotalAmount - o.ShippingFee + o.DiscountAmount
	}
	return o, nil
}

// OrderRepository handles data access for orders.
type OrderRepository struct {
	db    *sqlx.DB
	schema *SchemaCache
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB, schema *SchemaCache) *OrderRepository {
	return &OrderRepository{db: db, schema: schema}
}

// Create inserts an order. Columns added after the original orders schema
// are written only when present.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	all := []column{
		{name: "id", value: o.ID},
		{name: "ordernumber", value: o.OrderNumber},
		{name: "customername", value: o.CustomerName},
		{name: "phone", value: o.Phone},
		{name: "city", value: o.City},
		{name: "address", value: o.Address},
		{name: "items", value: items},
		{name: "totalamount", value: o.TotalAmount},
		{name: "shippingfee", value: o.ShippingFee},
		{name: "discountamount", value: o.DiscountAmount},
		{name: "status", value: string(o.Status)},
		{name: "date", value: o.Date},
		{name: "discountcode", value: o.DiscountCode, optional: true},
		{name: "subtotal", value: o.Subtotal, optional: true},
		{name: "inventorysync", value: string(o.InventorySync), optional: true},
		{name: "oversold", value: o.Oversold, optional: true},
	}
	return r.schema.withSchema(ctx, "orders", func(supported ColumnSet) error {
		q, args := insertQuery("orders", shape(all, supported))
		// A replayed insert of the same order is a no-op.
		_, err := r.db.ExecContext(ctx, q+" ON CONFLICT (id) DO NOTHING", args...)
		return err
	})
}

// GetAll returns every order, newest first.
func (r *OrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	var rows []orderRow
	if err := r.db.Unsafe().SelectContext(ctx, &rows, `SELECT * FROM orders ORDER BY date DESC`); err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	if err := r.db.Unsafe().GetContext(ctx, &row, `SELECT * FROM orders WHERE id = $1`, id); err != nil {
		return nil, err
	}
	o, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus sets the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateInventorySync records the stock sync state of an order. It is a
// no-op on schemas without the tracking columns.
func (r *OrderRepository) UpdateInventorySync(ctx context.Context, id string, sync models.InventorySync, oversold bool) error {
	all := []column{
		{name: "inventorysync", value: string(sync), optional: true},
		{name: "oversold", value: oversold, optional: true},
	}
	return r.schema.withSchema(ctx, "orders", func(supported ColumnSet) error {
		cols := shape(all, supported)
		if len(cols) == 0 {
			return nil
		}
		q, args := updateQuery("orders", "id", id, cols)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}
