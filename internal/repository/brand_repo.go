package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/models"
)

// BrandRepository handles data access for brands and devices.
type BrandRepository struct {
	db *sqlx.DB
}

// NewBrandRepository creates a new BrandRepository.
func NewBrandRepository(db *sqlx.DB) *BrandRepository {
	return &BrandRepository{db: db}
}

// GetBrands returns all brands ordered by name.
func (r *BrandRepository) GetBrands(ctx context.Context) ([]models.Brand, error) {
	brands := []models.Brand{}
	if err := r.db.SelectContext(ctx, &brands, `SELECT id, name, logo FROM brands ORDER BY name`); err != nil {
		return nil, err
	}
	return brands, nil
}

// CreateBrand inserts a brand.
func (r *BrandRepository) CreateBrand(ctx context.Context, b *models.Brand) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO brands (id, name, logo) VALUES (:id, :name, :logo) ON CONFLICT (id) DO NOTHING`, b)
	return err
}

// DeleteBrand removes a brand and reports whether it existed.
func (r *BrandRepository) DeleteBrand(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetDevices returns all devices ordered by name.
func (r *BrandRepository) GetDevices(ctx context.Context) ([]models.Device, error) {
	devices := []models.Device{}
	if err := r.db.SelectContext(ctx, &devices, `SELECT id, name FROM devices ORDER BY name`); err != nil {
		return nil, err
	}
	return devices, nil
}

// CreateDevice inserts a device.
func (r *BrandRepository) CreateDevice(ctx context.Context, d *models.Device) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO devices (id, name) VALUES (:id, :name) ON CONFLICT (id) DO NOTHING`, d)
	return err
}

// DeleteDevice removes a device and reports whether it existed.
func (r *BrandRepository) DeleteDevice(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
