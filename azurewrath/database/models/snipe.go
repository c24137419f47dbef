package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SnipeDeal flags an item currently listed below its RAP by at least the
// global threshold. Rows live for a few minutes before the writer purges
// them; the table is a sliding window, not a history. The bigserial id
// doubles as the stream watermark.
type SnipeDeal struct {
	bun.BaseModel `bun:"table:snipe_deals,alias:sd"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AssetID   int64     `bun:"asset_id,notnull"`
	Name      string    `bun:"name,notnull"`
	ImageURL  *string   `bun:"image_url"`
	Price     int64     `bun:"price,notnull"`
	RAP       int64     `bun:"rap,notnull"`
	Deal      float64   `bun:"deal,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// SnipeConfig is a per-user stream filter, managed by the web app and
// read-only to the worker. A nil AssetID matches every item.
type SnipeConfig struct {
	bun.BaseModel `bun:"table:snipe_configs,alias:sc"`

	ID       int64    `bun:"id,pk,autoincrement"`
	UserID   int64    `bun:"user_id,notnull"`
	AssetID  *int64   `bun:"asset_id"`
	MinDeal  float64  `bun:"min_deal,notnull"`
	MinPrice *int64   `bun:"min_price"`
	MaxPrice *int64   `bun:"max_price"`
	Enabled  bool     `bun:"enabled,notnull,default:true"`
}
