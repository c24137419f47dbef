package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an account known to the web app. The worker reads it to find
// Discord-linked users who opted in to DM alerts.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                   int64     `bun:"id,pk"`
	Username             string    `bun:"username"`
	DiscordID            *string   `bun:"discord_id"`
	DiscordNotifications bool      `bun:"discord_notifications,notnull,default:false"`
	CreatedAt            time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Watchlist links a user to an item they want alerts for.
type Watchlist struct {
	bun.BaseModel `bun:"table:watchlists,alias:w"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	ItemID    int64     `bun:"item_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
