package notifications

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/v01dsy/Azurewrath/azurewrath/database/repositories"
	"github.com/v01dsy/Azurewrath/azurewrath/tracker"
)

// PushSender delivers a single web-push notification. Its gone result
// reports that the endpoint is permanently unreachable and the
// subscription should be dropped.
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload PushPayload) (gone bool, err error)
}

// Dispatcher resolves watchers for changed items, builds one
// deduplicated alert per (user, item) pair, and delivers through the
// configured channels. The stored alert rows are the durable record;
// push, DM and webhook delivery are best-effort on top and isolated
// from each other.
type Dispatcher struct {
	watchlists repositories.WatchlistRepository
	users      repositories.UserRepository
	pushSubs   repositories.PushSubscriptionRepository

	// Any of these may be nil; an unconfigured channel is skipped
	// without affecting the others.
	push    PushSender
	dm      *DMChannel
	webhook *WebhookChannel

	appURL string
}

func NewDispatcher(
	watchlists repositories.WatchlistRepository,
	users repositories.UserRepository,
	pushSubs repositories.PushSubscriptionRepository,
	push PushSender,
	dm *DMChannel,
	webhook *WebhookChannel,
	appURL string,
) *Dispatcher {
	return &Dispatcher{
		watchlists: watchlists,
		users:      users,
		pushSubs:   pushSubs,
		push:       push,
		dm:         dm,
		webhook:    webhook,
		appURL:     appURL,
	}
}

type dedupKey struct {
	userID int64
	itemID int64
}

// BuildAlerts constructs the cycle's notification rows. At most one row
// exists per (user, item) pair regardless of how many watch relations
// point at it; the dedup set lives only for this call.
func (d *Dispatcher) BuildAlerts(ctx context.Context, results []tracker.Result, now time.Time) ([]*models.Notification, error) {
	changed := make([]*tracker.Result, 0, len(results))
	itemIDs := make([]int64, 0, len(results))
	for i := range results {
		if results[i].PriceChanged || results[i].RAPChanged {
			changed = append(changed, &results[i])
			itemIDs = append(itemIDs, results[i].ItemID)
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}

	watchers, err := d.watchlists.GetWatchersForItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watchers: %w", err)
	}
	if len(watchers) == 0 {
		return nil, nil
	}

	seen := make(map[dedupKey]struct{})
	var alerts []*models.Notification

	for _, r := range changed {
		userIDs := watchers[r.ItemID]
		if len(userIDs) == 0 {
			continue
		}

		alertType, message, oldValue, newValue := composeAlert(r)

		for _, userID := range userIDs {
			key := dedupKey{userID: userID, itemID: r.ItemID}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			alerts = append(alerts, &models.Notification{
				UserID:    userID,
				ItemID:    r.ItemID,
				Type:      alertType,
				Message:   message,
				OldValue:  oldValue,
				NewValue:  newValue,
				CreatedAt: now,
			})
		}
	}

	slog.Info("Alerts built",
		slog.String("type", "notify"),
		slog.Int("changed_items", len(changed)),
		slog.Int("alerts", len(alerts)))

	return alerts, nil
}

// Deliver fans the committed alerts out to every configured channel.
// Each channel and each recipient fails independently; nothing here can
// fail the cycle.
func (d *Dispatcher) Deliver(ctx context.Context, alerts []*models.Notification, results []tracker.Result) {
	if len(alerts) == 0 {
		return
	}

	byUser := make(map[int64][]*models.Notification)
	userIDs := make([]int64, 0)
	for _, alert := range alerts {
		if _, ok := byUser[alert.UserID]; !ok {
			userIDs = append(userIDs, alert.UserID)
		}
		byUser[alert.UserID] = append(byUser[alert.UserID], alert)
	}

	itemsByID := make(map[int64]*tracker.Result, len(results))
	for i := range results {
		itemsByID[results[i].ItemID] = &results[i]
	}

	if d.push != nil {
		d.deliverPush(ctx, byUser, userIDs)
	}

	if d.dm != nil {
		d.deliverDMs(ctx, byUser, userIDs)
	}

	if d.webhook != nil {
		d.deliverWebhook(ctx, alerts, itemsByID)
	}
}

func (d *Dispatcher) deliverPush(ctx context.Context, byUser map[int64][]*models.Notification, userIDs []int64) {
	subs, err := d.pushSubs.GetByUserIDs(ctx, userIDs)
	if err != nil {
		slog.Error("Failed to load push subscriptions",
			slog.String("type", "notify"),
			slog.Any("error", err))
		return
	}
	if len(subs) == 0 {
		return
	}

	sent, failed, cleaned := 0, 0, 0
	for _, sub := range subs {
		userAlerts := byUser[sub.UserID]
		if len(userAlerts) == 0 {
			continue
		}

		payload := d.composePushPayload(userAlerts)

		sendCtx, cancel := context.WithTimeout(ctx, config.DeliveryTimeout)
		gone, err := d.push.Send(sendCtx, sub, payload)
		cancel()
		switch {
		case gone:
			// The push service says this endpoint no longer exists
			if delErr := d.pushSubs.Delete(ctx, sub.ID); delErr != nil {
				slog.Warn("Failed to delete expired push subscription",
					slog.String("type", "notify"),
					slog.Int64("subscription_id", sub.ID),
					slog.Any("error", delErr))
			}
			cleaned++
		case err != nil:
			slog.Warn("Push delivery failed",
				slog.String("type", "notify"),
				slog.Int64("user_id", sub.UserID),
				slog.Any("error", err))
			failed++
		default:
			sent++
		}
	}

	slog.Info("Push delivery finished",
		slog.String("type", "notify"),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Int("cleaned", cleaned))
}

func (d *Dispatcher) composePushPayload(userAlerts []*models.Notification) PushPayload {
	if len(userAlerts) == 1 {
		alert := userAlerts[0]
		return PushPayload{
			Title: "Watchlist Alert",
			Body:  alert.Message,
			URL:   fmt.Sprintf("%s/item/%d", d.appURL, alert.ItemID),
		}
	}
	return PushPayload{
		Title: "Watchlist Alert",
		Body:  summaryBody(len(userAlerts)),
		URL:   d.appURL + "/notifications",
	}
}

func (d *Dispatcher) deliverDMs(ctx context.Context, byUser map[int64][]*models.Notification, userIDs []int64) {
	optIns, err := d.users.GetDiscordOptIns(ctx, userIDs)
	if err != nil {
		slog.Error("Failed to load Discord opt-ins",
			slog.String("type", "notify"),
			slog.Any("error", err))
		return
	}
	if len(optIns) == 0 {
		return
	}

	sent, failed := 0, 0
	for userID, discordID := range optIns {
		userAlerts := byUser[userID]
		if len(userAlerts) == 0 {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, config.DeliveryTimeout)
		err := d.dm.Send(sendCtx, discordID, userAlerts, d.appURL)
		cancel()
		if err != nil {
			slog.Warn("DM delivery failed",
				slog.String("type", "notify"),
				slog.Int64("user_id", userID),
				slog.Any("error", err))
			failed++
			continue
		}
		sent++
	}

	slog.Info("DM delivery finished",
		slog.String("type", "notify"),
		slog.Int("sent", sent),
		slog.Int("failed", failed))
}

// deliverWebhook broadcasts one embed per unique item, not per watcher,
// so popular items don't spam the channel.
func (d *Dispatcher) deliverWebhook(ctx context.Context, alerts []*models.Notification, itemsByID map[int64]*tracker.Result) {
	seenItems := make(map[int64]struct{})
	perItem := make([]*models.Notification, 0)

	for _, alert := range alerts {
		if _, dup := seenItems[alert.ItemID]; dup {
			continue
		}
		seenItems[alert.ItemID] = struct{}{}
		perItem = append(perItem, alert)
	}

	sent, failed := d.webhook.Broadcast(ctx, perItem, itemsByID, d.appURL)

	slog.Info("Webhook broadcast finished",
		slog.String("type", "notify"),
		slog.Int("sent", sent),
		slog.Int("failed", failed))
}
