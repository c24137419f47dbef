package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Item is a tracked limited item. Reference data, seeded out of band;
// the worker only ever reads it.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AssetID   int64     `bun:"asset_id,notnull,unique"`
	Name      string    `bun:"name,notnull"`
	ImageURL  string    `bun:"image_url"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
