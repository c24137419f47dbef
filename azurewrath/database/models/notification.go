package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification types. When both axes move in one cycle a single combined
// notification is written.
const (
	NotificationPriceChange       = "price_change"
	NotificationRAPChange         = "rap_change"
	NotificationPriceAndRAPChange = "price_and_rap_change"
)

// Notification is the durable per-user alert record. Delivery through
// push or Discord is best-effort on top of this row, never instead of it.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	ItemID    int64     `bun:"item_id,notnull"`
	Type      string    `bun:"type,notnull"`
	Message   string    `bun:"message,notnull"`
	OldValue  *int64    `bun:"old_value"`
	NewValue  *int64    `bun:"new_value"`
	Read      bool      `bun:"read,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// PushSubscription is a browser push endpoint registered by the web app.
// The worker deletes rows the push service reports as permanently gone.
type PushSubscription struct {
	bun.BaseModel `bun:"table:push_subscriptions,alias:ps"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	Endpoint  string    `bun:"endpoint,notnull"`
	P256DH    string    `bun:"p256dh,notnull"`
	Auth      string    `bun:"auth,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
