package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/models"
)

// DiscountRepository handles data access for discount codes.
type DiscountRepository struct {
	db *sqlx.DB
}

// NewDiscountRepository creates a new DiscountRepository.
func NewDiscountRepository(db *sqlx.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// GetAll returns every discount code.
func (r *DiscountRepository) GetAll(ctx context.Context) ([]models.DiscountCode, error) {
	const q = `SELECT id, code, type, value, minorderamount, isactive FROM discounts ORDER BY code`
	discounts := []models.DiscountCode{}
	if err := r.db.SelectContext(ctx, &discounts, q); err != nil {
		return nil, err
	}
	return discounts, nil
}

// Upsert inserts or replaces a discount code by id.
func (r *DiscountRepository) Upsert(ctx context.Context, d *models.DiscountCode) error {
	const q = `
        INSERT INTO discounts (id, code, type, value, minorderamount, isactive)
        VALUES (:id, :code, :type, :value, :minorderamount, :isactive)
        ON CONFLICT (id) DO UPDATE SET
            code = EXCLUDED.code,
            type = EXCLUDED.type,
            value = EXCLUDED.value,
            minorderamount = EXCLUDED.minorderamount,
            isactive = EXCLUDED.isactive`
	_, err := r.db.NamedExecContext(ctx, q, d)
	return err
}

// Delete removes a discount code and reports whether it existed.
func (r *DiscountRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
