package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/storefront_api/internal/models"
)

// productRow mirrors the widest products schema. Columns missing from an
// older schema are left at their zero value.
type productRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	SKU         sql.NullString `db:"sku"`
	Price       int64          `db:"price"`
	SalePrice   sql.NullInt64  `db:"sale_price"`
	Description string         `db:"description"`
	Category    string         `db:"category"`
	Device      string         `db:"device"`
	Brand       string         `db:"brand"`
	Image       string         `db:"image"`
	Images      pq.StringArray `db:"images"`
	Rating      float64        `db:"rating"`
	Stock       int            `db:"stock"`
	Colors      pq.StringArray `db:"colors"`
	Variants    []byte         `db:"variants"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}

func (r *productRow) toModel() (models.Product, error) {
	p := models.Product{
		ID:          r.ID,
		Name:        r.Name,
		SKU:         r.SKU.String,
		Price:       r.Price,
		Description: r.Description,
		Category:    r.Category,
		Device:      r.Device,
		Brand:       r.Brand,
		Image:       r.Image,
		Images:      []string(r.Images),
		Rating:      r.Rating,
		Stock:       r.Stock,
		Colors:      []string(r.Colors),
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
	if r.SalePrice.Valid {
		sp := r.SalePrice.Int64
		p.SalePrice = &sp
	}
	if len(r.Variants) > 0 {
		if err := json.Unmarshal(r.Variants, &p.Variants); err != nil {
			return p, fmt.Errorf("decode variants of product %s: %w", r.ID, err)
		}
	}
	return p, nil
}

func variantsJSON(vs []models.Variant) ([]byte, error) {
	if vs == nil {
		vs = []models.Variant{}
	}
	return json.Marshal(vs)
}

func salePriceValue(p *models.Product) interface{} {
	if p.SalePrice == nil {
		return nil
	}
	return *p.SalePrice
}

// ProductRepository handles data access for products.
type ProductRepository struct {
	db    *sqlx.DB
	schema *SchemaCache
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB, schema *SchemaCache) *ProductRepository {
	return &ProductRepository{db: db, schema: schema}
}

// GetAll returns every product ordered by creation.
func (r *ProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var rows []productRow
	if err := r.db.Unsafe().SelectContext(ctx, &rows, `SELECT * FROM products ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

// GetByID returns a single product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var row productRow
	if err := r.db.Unsafe().GetContext(ctx, &row, `SELECT * FROM products WHERE id = $1 LIMIT 1`, id); err != nil {
		return nil, err
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func productColumns(p *models.Product) ([]column, error) {
	variants, err := variantsJSON(p.Variants)
	if err != nil {
		return nil, err
	}
	return []column{
		{name: "id", value: p.ID},
		{name: "name", value: p.Name},
		{name: "price", value: p.Price},
		{name: "description", value: p.Description},
		{name: "category", value: p.Category},
		{name: "device", value: p.Device},
		{name: "brand", value: p.Brand},
		{name: "image", value: p.Image},
		{name: "stock", value: p.Stock},
		{name: "sale_price", value: salePriceValue(p), optional: true},
		{name: "images", value: pq.Array(nonNil(p.Images)), optional: true},
		{name: "colors", value: pq.Array(nonNil(p.Colors)), optional: true},
		{name: "variants", value: variants, optional: true},
		{name: "sku", value: p.SKU, optional: true},
		{name: "rating", value: p.Rating, optional: true},
		{name: "updated_at", value: time.Now(), optional: true},
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Upsert inserts or replaces a product by id, writing only the columns the
// products table supports.
func (r *ProductRepository) Upsert(ctx context.Context, p *models.Product) error {
	all, err := productColumns(p)
	if err != nil {
		return err
	}
	return r.schema.withSchema(ctx, "products", func(supported ColumnSet) error {
		q, args := upsertQuery("products", "id", shape(all, supported))
		_, err := r.db.ExecContext(ctx, q, args...)
		return err
	})
}

// Delete removes a product. It reports whether a row was deleted.
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetForUpdate loads a product inside tx holding its row lock.
func (r *ProductRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Product, error) {
	var row productRow
	if err := tx.Unsafe().GetContext(ctx, &row, `SELECT * FROM products WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	p, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateStock writes the aggregate stock and variant list of p inside tx.
func (r *ProductRepository) UpdateStock(ctx context.Context, tx *sqlx.Tx, p *models.Product) error {
	variants, err := variantsJSON(p.Variants)
	if err != nil {
		return err
	}
	all := []column{
		{name: "stock", value: p.Stock},
		{name: "variants", value: variants, optional: true},
		{name: "colors", value: pq.Array(nonNil(p.Colors)), optional: true},
		{name: "updated_at", value: time.Now(), optional: true},
	}
	supported, err := r.schema.Columns(ctx, "products")
	if err != nil {
		return err
	}
	q, args := updateQuery("products", "id", p.ID, shape(all, supported))
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNoRows reports whether err is sql.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
