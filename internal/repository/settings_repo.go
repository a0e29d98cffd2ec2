package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/models"
)

// SettingsRepository reads and writes the single store_settings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the store settings.
func (r *SettingsRepository) Get(ctx context.Context) (*models.StoreSettings, error) {
	var s models.StoreSettings
	if err := r.db.GetContext(ctx, &s, `SELECT shipping_fee, logo FROM store_settings WHERE id = 1`); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts the store settings.
func (r *SettingsRepository) Save(ctx context.Context, s *models.StoreSettings) error {
	const q = `
        INSERT INTO store_settings (id, shipping_fee, logo) VALUES (1, $1, $2)
        ON CONFLICT (id) DO UPDATE SET shipping_fee = EXCLUDED.shipping_fee, logo = EXCLUDED.logo`
	_, err := r.db.ExecContext(ctx, q, s.ShippingFee, s.Logo)
	return err
}
