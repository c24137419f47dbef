package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Sale records a RAP movement for an item: one row per cycle in which the
// recent average price changed.
type Sale struct {
	bun.BaseModel `bun:"table:sales,alias:s"`

	ID       int64     `bun:"id,pk,autoincrement"`
	ItemID   int64     `bun:"item_id,notnull"`
	OldRAP   int64     `bun:"old_rap,notnull"`
	NewRAP   int64     `bun:"new_rap,notnull"`
	SaleDate time.Time `bun:"sale_date,notnull"`
}
