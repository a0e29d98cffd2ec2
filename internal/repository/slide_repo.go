package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/storefront_api/internal/models"
)

// SlideRepository handles data access for carousel slides.
type SlideRepository struct {
	db *sqlx.DB
}

// NewSlideRepository creates a new SlideRepository.
func NewSlideRepository(db *sqlx.DB) *SlideRepository {
	return &SlideRepository{db: db}
}

// GetAll returns every slide ordered by id.
func (r *SlideRepository) GetAll(ctx context.Context) ([]models.Slide, error) {
	slides := []models.Slide{}
	err := r.db.SelectContext(ctx, &slides,
		`SELECT id, title, subtitle, description, color, image FROM slides ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return slides, nil
}

// Upsert inserts or replaces a slide.
func (r *SlideRepository) Upsert(ctx context.Context, s *models.Slide) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO slides (id, title, subtitle, description, color, image)
		VALUES (:id, :title, :subtitle, :description, :color, :image)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle,
			description = EXCLUDED.description,
			color = EXCLUDED.color,
			image = EXCLUDED.image`, s)
	return err
}

// Delete removes a slide and reports whether it existed.
func (r *SlideRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slides WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
