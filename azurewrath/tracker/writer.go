package tracker

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writer turns one cycle's classified results into database mutations:
// a history snapshot per changed item, a sale row per RAP movement, a
// snipe deal row per qualifying deal, and the cycle's notification rows.
// Everything happens in a single transaction; a failed cycle leaves the
// database and the state cache exactly as they were.
type Writer struct {
	pool    *pgxpool.Pool
	dealTTL time.Duration
	minDeal float64
}

func NewWriter(pool *pgxpool.Pool, dealTTL time.Duration, minDeal float64) *Writer {
	return &Writer{
		pool:    pool,
		dealTTL: dealTTL,
		minDeal: minDeal,
	}
}

// Write commits one cycle. The notification rows are built by the
// dispatcher but persist here so they share the cycle transaction.
func (w *Writer) Write(ctx context.Context, results []Result, alerts []*models.Notification, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, config.CycleWriteTimeout)
	defer cancel()

	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	purged, err := w.purgeStaleDeals(ctx, tx, now)
	if err != nil {
		return fmt.Errorf("failed to purge stale deals: %w", err)
	}

	rows := buildCycleRows(results, alerts, w.minDeal, now)

	if len(rows.history) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"price_history"},
			[]string{"item_id", "price", "rap", "timestamp"},
			pgx.CopyFromRows(rows.history),
		); err != nil {
			return fmt.Errorf("failed to copy price history: %w", err)
		}
	}

	if len(rows.sales) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"sales"},
			[]string{"item_id", "old_rap", "new_rap", "sale_date"},
			pgx.CopyFromRows(rows.sales),
		); err != nil {
			return fmt.Errorf("failed to copy sales: %w", err)
		}
	}

	if len(rows.deals) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"snipe_deals"},
			[]string{"asset_id", "name", "image_url", "price", "rap", "deal", "created_at"},
			pgx.CopyFromRows(rows.deals),
		); err != nil {
			return fmt.Errorf("failed to copy snipe deals: %w", err)
		}
	}

	if len(rows.alerts) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"notifications"},
			[]string{"user_id", "item_id", "type", "message", "old_value", "new_value", "read", "created_at"},
			pgx.CopyFromRows(rows.alerts),
		); err != nil {
			return fmt.Errorf("failed to copy notifications: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cycle: %w", err)
	}

	slog.Info("Cycle writes committed",
		slog.String("type", "db"),
		slog.Int("history_rows", len(rows.history)),
		slog.Int("sale_rows", len(rows.sales)),
		slog.Int("deal_rows", len(rows.deals)),
		slog.Int("notification_rows", len(rows.alerts)),
		slog.Int64("deals_purged", purged))

	return nil
}

// cycleRows is one cycle's bulk-insert payload, column order matching
// the CopyFrom calls in Write.
type cycleRows struct {
	history [][]any
	sales   [][]any
	deals   [][]any
	alerts  [][]any
}

// buildCycleRows maps classified results and alert records onto insert
// rows. A history row exists iff the item is first seen or either axis
// changed; a sale row per RAP movement; a deal row only at or above the
// global minimum deal percent.
func buildCycleRows(results []Result, alerts []*models.Notification, minDeal float64, now time.Time) cycleRows {
	rows := cycleRows{
		history: make([][]any, 0, len(results)),
		sales:   make([][]any, 0),
		deals:   make([][]any, 0),
		alerts:  make([][]any, 0, len(alerts)),
	}

	for i := range results {
		r := &results[i]

		if r.Changed() {
			rows.history = append(rows.history, []any{r.ItemID, r.Price, r.RAP, now})
		}

		if r.RAPChanged && r.OldRAP != nil {
			rows.sales = append(rows.sales, []any{r.ItemID, *r.OldRAP, r.RAP, now})
		}

		if r.IsDeal && r.DealPercent >= minDeal {
			var imageURL *string
			if r.ImageURL != "" {
				imageURL = &r.ImageURL
			}
			rows.deals = append(rows.deals, []any{r.AssetID, r.Name, imageURL, *r.Price, r.RAP, r.DealPercent, now})
		}
	}

	for _, alert := range alerts {
		rows.alerts = append(rows.alerts, []any{
			alert.UserID, alert.ItemID, alert.Type, alert.Message,
			alert.OldValue, alert.NewValue, false, now,
		})
	}

	return rows
}

func (w *Writer) purgeStaleDeals(ctx context.Context, tx pgx.Tx, now time.Time) (int64, error) {
	tag, err := tx.Exec(ctx,
		`DELETE FROM snipe_deals WHERE created_at < $1`,
		now.Add(-w.dealTTL),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
