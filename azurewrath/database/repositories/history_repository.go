package repositories

import (
	"context"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/uptrace/bun"
)

type HistoryRepository interface {
	// LatestPrices returns, per item, the newest recorded non-null price.
	LatestPrices(ctx context.Context) (map[int64]int64, error)
	// LatestRAPs returns, per item, the newest recorded non-null RAP.
	// RAP and price can go stale independently, hence two queries.
	LatestRAPs(ctx context.Context) (map[int64]int64, error)
	GetRecentByItem(ctx context.Context, itemID int64, limit int) ([]*models.PriceHistory, error)
}

type historyRepository struct {
	db *bun.DB
}

func NewHistoryRepository(db *bun.DB) HistoryRepository {
	return &historyRepository{db: db}
}

type latestAxisRow struct {
	ItemID int64 `bun:"item_id"`
	Value  int64 `bun:"value"`
}

func (r *historyRepository) LatestPrices(ctx context.Context) (map[int64]int64, error) {
	return r.latestAxis(ctx, "price")
}

func (r *historyRepository) LatestRAPs(ctx context.Context) (map[int64]int64, error) {
	return r.latestAxis(ctx, "rap")
}

func (r *historyRepository) latestAxis(ctx context.Context, column string) (map[int64]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.CacheLoadTimeout)
	defer cancel()

	var rows []latestAxisRow
	err := r.db.NewSelect().
		TableExpr("price_history").
		ColumnExpr("DISTINCT ON (item_id) item_id").
		ColumnExpr("? AS value", bun.Ident(column)).
		Where("? IS NOT NULL", bun.Ident(column)).
		OrderExpr("item_id, timestamp DESC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Value
	}
	return out, nil
}

func (r *historyRepository) GetRecentByItem(ctx context.Context, itemID int64, limit int) ([]*models.PriceHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var history []*models.PriceHistory
	err := r.db.NewSelect().
		Model(&history).
		Where("item_id = ?", itemID).
		Order("timestamp DESC").
		Limit(limit).
		Scan(ctx)

	return history, err
}
