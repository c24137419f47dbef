package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PriceHistory is an append-only snapshot of an item's market state.
// A row is written only when something actually changed (or the item was
// seen for the first time), so consecutive rows for an item always differ
// in price or RAP.
type PriceHistory struct {
	bun.BaseModel `bun:"table:price_history,alias:ph"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ItemID    int64     `bun:"item_id,notnull"`
	Price     *int64    `bun:"price"`
	RAP       *int64    `bun:"rap"`
	Timestamp time.Time `bun:"timestamp,notnull"`
}
