package repositories

import (
	"context"
	"time"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/uptrace/bun"
)

type SnipeRepository interface {
	GetEnabledConfigs(ctx context.Context, userID int64) ([]*models.SnipeConfig, error)
	// GetDealsAfter fetches deals created within the window whose id is
	// greater than the watermark, oldest first. A zero watermark means
	// "everything in the window".
	GetDealsAfter(ctx context.Context, watermark int64, window time.Duration, limit int) ([]*models.SnipeDeal, error)
}

type snipeRepository struct {
	db *bun.DB
}

func NewSnipeRepository(db *bun.DB) SnipeRepository {
	return &snipeRepository{db: db}
}

func (r *snipeRepository) GetEnabledConfigs(ctx context.Context, userID int64) ([]*models.SnipeConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, config.StreamQueryTimeout)
	defer cancel()

	var configs []*models.SnipeConfig
	err := r.db.NewSelect().
		Model(&configs).
		Where("user_id = ?", userID).
		Where("enabled = TRUE").
		Order("id ASC").
		Scan(ctx)

	return configs, err
}

func (r *snipeRepository) GetDealsAfter(ctx context.Context, watermark int64, window time.Duration, limit int) ([]*models.SnipeDeal, error) {
	ctx, cancel := context.WithTimeout(ctx, config.StreamQueryTimeout)
	defer cancel()

	cutoff := time.Now().Add(-window)

	query := r.db.NewSelect().
		Model((*models.SnipeDeal)(nil)).
		Where("created_at >= ?", cutoff).
		Order("id ASC").
		Limit(limit)

	if watermark > 0 {
		query = query.Where("id > ?", watermark)
	}

	var deals []*models.SnipeDeal
	err := query.Scan(ctx, &deals)
	return deals, err
}
