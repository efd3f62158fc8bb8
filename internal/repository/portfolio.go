package repository

import (
	"context"

	"gigfolio/internal/models"

	"gorm.io/gorm"
)

// PortfolioRepository defines persistence operations for portfolio items.
type PortfolioRepository interface {
	Create(ctx context.Context, item *models.PortfolioItem) error
	ListFilenamesByUser(ctx context.Context, userID uint) ([]string, error)
}

type portfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository returns a new PortfolioRepository implementation.
func NewPortfolioRepository(db *gorm.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

func (r *portfolioRepository) Create(ctx context.Context, item *models.PortfolioItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListFilenamesByUser returns the user's filenames in insertion order.
func (r *portfolioRepository) ListFilenamesByUser(ctx context.Context, userID uint) ([]string, error) {
	filenames := []string{}
	if err := r.db.WithContext(ctx).
		Model(&models.PortfolioItem{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("filename", &filenames).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return filenames, nil
}
