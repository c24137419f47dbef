package repositories

import (
	"context"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/uptrace/bun"
)

type WatchlistRepository interface {
	// GetWatchersForItems maps each of the given item IDs to the users
	// watching it. Items nobody watches are absent from the result.
	GetWatchersForItems(ctx context.Context, itemIDs []int64) (map[int64][]int64, error)
}

type watchlistRepository struct {
	db *bun.DB
}

func NewWatchlistRepository(db *bun.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

func (r *watchlistRepository) GetWatchersForItems(ctx context.Context, itemIDs []int64) (map[int64][]int64, error) {
	if len(itemIDs) == 0 {
		return map[int64][]int64{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var entries []*models.Watchlist
	err := r.db.NewSelect().
		Model(&entries).
		Where("item_id IN (?)", bun.In(itemIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	watchers := make(map[int64][]int64)
	for _, entry := range entries {
		watchers[entry.ItemID] = append(watchers[entry.ItemID], entry.UserID)
	}
	return watchers, nil
}
