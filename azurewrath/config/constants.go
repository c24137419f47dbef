package config

import "time"

// Application-wide constants organized by domain

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout = 30 * time.Second
	StreamQueryTimeout  = 10 * time.Second
	CacheLoadTimeout    = 2 * time.Minute
	CycleWriteTimeout   = 5 * time.Minute

	// Batch processing
	MinClassifyBatch   = 100
	MaxClassifyWorkers = 4
)

// Delivery Constants
const (
	// Discord allows at most 10 embeds per webhook call or message
	WebhookEmbedLimit = 10
	SummaryFieldLimit = 10
	DeliveryTimeout   = 10 * time.Second

	// Push messages stay queued this long before the service drops them
	PushTTLSeconds = 60

	// Embed colors
	ColorDeal       = 0x57F287 // green, price dropped
	ColorRAPChange  = 0x5865F2 // blurple, RAP moved
	ColorBothChange = 0xFEE75C // yellow, both axes moved
)

// Stream Constants
const (
	StreamHeartbeat = ": heartbeat\n\n"
	StreamConnected = ": connected\n\n"

	MaxSearchResults = 25
)
