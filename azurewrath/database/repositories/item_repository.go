package repositories

import (
	"context"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/uptrace/bun"
)

type ItemRepository interface {
	GetAll(ctx context.Context) ([]*models.Item, error)
	GetByAssetID(ctx context.Context, assetID int64) (*models.Item, error)
	GetItemCount(ctx context.Context) (int64, error)
}

type itemRepository struct {
	db *bun.DB
}

func NewItemRepository(db *bun.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) GetAll(ctx context.Context) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var items []*models.Item
	err := r.db.NewSelect().
		Model(&items).
		Order("id ASC").
		Scan(ctx)

	return items, err
}

func (r *itemRepository) GetByAssetID(ctx context.Context, assetID int64) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	item := new(models.Item)
	err := r.db.NewSelect().
		Model(item).
		Where("asset_id = ?", assetID).
		Scan(ctx)

	return item, err
}

func (r *itemRepository) GetItemCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	count, err := r.db.NewSelect().
		Model((*models.Item)(nil)).
		Count(ctx)

	return int64(count), err
}
