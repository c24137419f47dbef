package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/disgoorg/snowflake/v2"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/v01dsy/Azurewrath/azurewrath/tracker"
)

// DMChannel sends watchlist alerts to users as Discord direct messages.
type DMChannel struct {
	rest rest.Rest
}

func NewDMChannel(rest rest.Rest) *DMChannel {
	return &DMChannel{rest: rest}
}

// Send delivers the user's alerts for this cycle: a single-item embed
// when there is one alert, otherwise a summary embed with one field per
// item, capped at SummaryFieldLimit.
func (c *DMChannel) Send(ctx context.Context, discordID string, alerts []*models.Notification, appURL string) error {
	userID, err := snowflake.Parse(discordID)
	if err != nil {
		return fmt.Errorf("invalid discord id %q: %w", discordID, err)
	}

	embed := c.buildEmbed(alerts, appURL)

	dmChannel, err := c.rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to create DM channel: %w", err)
	}

	_, err = c.rest.CreateMessage(dmChannel.ID(), discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	}, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}

func (c *DMChannel) buildEmbed(alerts []*models.Notification, appURL string) discord.Embed {
	if len(alerts) == 1 {
		alert := alerts[0]
		return discord.NewEmbedBuilder().
			SetTitle("📈 Watchlist Alert").
			SetDescription(alert.Message).
			SetColor(embedColor(alert.Type)).
			SetURL(fmt.Sprintf("%s/item/%d", appURL, alert.ItemID)).
			Build()
	}

	builder := discord.NewEmbedBuilder().
		SetTitle("📈 Watchlist Alerts").
		SetDescription(summaryBody(len(alerts))).
		SetColor(config.ColorBothChange).
		SetURL(appURL + "/notifications")

	for i, alert := range alerts {
		if i >= config.SummaryFieldLimit {
			builder.SetFooter(fmt.Sprintf("…and %d more", len(alerts)-config.SummaryFieldLimit), "")
			break
		}
		builder.AddField(alertTitle(alert.Type), alert.Message, false)
	}

	return builder.Build()
}

func alertTitle(alertType string) string {
	switch alertType {
	case models.NotificationRAPChange:
		return "RAP Change"
	case models.NotificationPriceAndRAPChange:
		return "Price & RAP Change"
	default:
		return "Price Change"
	}
}

func embedColor(alertType string) int {
	switch alertType {
	case models.NotificationRAPChange:
		return config.ColorRAPChange
	case models.NotificationPriceAndRAPChange:
		return config.ColorBothChange
	default:
		return config.ColorDeal
	}
}

// WebhookChannel broadcasts item changes to a shared Discord channel
// through an incoming webhook. One embed per changed item, batched to
// respect Discord's per-message embed limit.
type WebhookChannel struct {
	client webhook.Client
}

func NewWebhookChannel(id snowflake.ID, token string) *WebhookChannel {
	return &WebhookChannel{client: webhook.New(id, token)}
}

// Broadcast sends the embeds in batches and reports how many made it
// out. A failed batch is logged and skipped; the remaining batches
// still go out.
func (c *WebhookChannel) Broadcast(ctx context.Context, alerts []*models.Notification, itemsByID map[int64]*tracker.Result, appURL string) (sent, failed int) {
	embeds := make([]discord.Embed, 0, len(alerts))
	for _, alert := range alerts {
		embeds = append(embeds, c.buildItemEmbed(alert, itemsByID[alert.ItemID], appURL))
	}

	return sendEmbedBatches(embeds, func(batch []discord.Embed) error {
		_, err := c.client.CreateMessage(discord.WebhookMessageCreate{
			Embeds: batch,
		}, rest.WithCtx(ctx))
		return err
	})
}

func sendEmbedBatches(embeds []discord.Embed, send func([]discord.Embed) error) (sent, failed int) {
	for start := 0; start < len(embeds); start += config.WebhookEmbedLimit {
		end := start + config.WebhookEmbedLimit
		if end > len(embeds) {
			end = len(embeds)
		}

		if err := send(embeds[start:end]); err != nil {
			slog.Warn("Failed to send webhook batch",
				slog.String("type", "notify"),
				slog.Any("error", err))
			failed += end - start
			continue
		}
		sent += end - start
	}
	return sent, failed
}

func (c *WebhookChannel) buildItemEmbed(alert *models.Notification, r *tracker.Result, appURL string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(alertTitle(alert.Type)).
		SetDescription(alert.Message).
		SetColor(embedColor(alert.Type)).
		SetURL(fmt.Sprintf("%s/item/%d", appURL, alert.ItemID))

	if r != nil && r.ImageURL != "" {
		builder.SetThumbnail(r.ImageURL)
	}

	return builder.Build()
}

// Close releases the webhook client's underlying REST resources.
func (c *WebhookChannel) Close(ctx context.Context) {
	if c.client != nil {
		c.client.Close(ctx)
		slog.Debug("Webhook client closed", slog.String("type", "notify"))
	}
}
