package tracker

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/v01dsy/Azurewrath/azurewrath/database/repositories"
	"github.com/v01dsy/Azurewrath/azurewrath/logger"
)

// QuoteSource produces one cycle's raw quotes, keyed by stringified
// asset id. Quotes are untrusted and may be partial; a failed fetch
// aborts the cycle, a bad individual quote only skips that item.
type QuoteSource interface {
	FetchQuotes(ctx context.Context) (map[string]Quote, error)
}

// Dispatcher is the notification fan-out the tracker hands each cycle's
// changes to. BuildAlerts runs before the cycle commits (its rows join
// the cycle transaction); Deliver runs strictly after.
type Dispatcher interface {
	BuildAlerts(ctx context.Context, results []Result, now time.Time) ([]*models.Notification, error)
	Deliver(ctx context.Context, alerts []*models.Notification, results []Result)
}

// ThumbnailResolver fills in image URLs for items the catalog has none
// for. Optional; resolution failures only cost the embed its thumbnail.
type ThumbnailResolver interface {
	ImageURL(ctx context.Context, assetID int64) (string, error)
}

// Tracker owns the polling pipeline: fetch quotes, classify against the
// cache, persist, fan out, then fold the committed values back into the
// cache. Cycles never overlap; a failed cycle is simply retried on the
// next tick from fresh state.
type Tracker struct {
	source     QuoteSource
	items      repositories.ItemRepository
	history    repositories.HistoryRepository
	cache      *StateCache
	classifier *Classifier
	writer     *Writer
	dispatcher Dispatcher
	thumbs     ThumbnailResolver

	interval time.Duration
	cycles   int
}

func New(
	source QuoteSource,
	items repositories.ItemRepository,
	history repositories.HistoryRepository,
	writer *Writer,
	dispatcher Dispatcher,
	thumbs ThumbnailResolver,
	interval time.Duration,
) *Tracker {
	return &Tracker{
		source:     source,
		items:      items,
		history:    history,
		cache:      NewStateCache(),
		classifier: NewClassifier(),
		writer:     writer,
		dispatcher: dispatcher,
		thumbs:     thumbs,
		interval:   interval,
	}
}

// Cache exposes the state cache for startup loading and tests.
func (t *Tracker) Cache() *StateCache {
	return t.cache
}

// Run loads the cache and then polls until the context is cancelled.
// Each cycle runs to completion before the next one starts.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.cache.Load(ctx, t.history); err != nil {
		return fmt.Errorf("failed to load state cache: %w", err)
	}

	slog.Info("Tracker started",
		slog.String("type", "cycle"),
		slog.Duration("interval", t.interval))

	for {
		t.cycles++
		start := time.Now()

		err := t.RunCycle(ctx)
		logger.LogCycle(t.cycles, time.Since(start), err)

		select {
		case <-ctx.Done():
			slog.Info("Tracker stopped", slog.String("type", "cycle"))
			return ctx.Err()
		case <-time.After(t.interval):
		}
	}
}

// RunCycle executes exactly one poll → classify → persist → dispatch
// pass. The cache is mutated only after the writer commits.
func (t *Tracker) RunCycle(ctx context.Context) error {
	now := time.Now()

	items, err := t.items.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(items) == 0 {
		slog.Warn("No items in catalog, skipping cycle", slog.String("type", "cycle"))
		return nil
	}

	quotes, err := t.source.FetchQuotes(ctx)
	if err != nil {
		return fmt.Errorf("quote fetch failed: %w", err)
	}

	results, _, err := t.classifier.Classify(ctx, items, quotes, t.cache)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	t.resolveThumbnails(ctx, results)

	alerts, err := t.dispatcher.BuildAlerts(ctx, results, now)
	if err != nil {
		return fmt.Errorf("alert construction failed: %w", err)
	}

	if err := t.writer.Write(ctx, results, alerts, now); err != nil {
		return fmt.Errorf("persistence failed: %w", err)
	}

	// Only a committed cycle may touch the cache
	t.cache.ApplyResults(results)

	t.dispatcher.Deliver(ctx, alerts, results)

	return nil
}

// resolveThumbnails backfills image URLs for results that are about to
// surface somewhere visible (deal rows, embeds) and have none on file.
func (t *Tracker) resolveThumbnails(ctx context.Context, results []Result) {
	if t.thumbs == nil {
		return
	}

	for i := range results {
		r := &results[i]
		if r.ImageURL != "" || (!r.IsDeal && !r.Changed()) {
			continue
		}

		url, err := t.thumbs.ImageURL(ctx, r.AssetID)
		if err != nil {
			slog.Debug("Thumbnail lookup failed",
				slog.String("type", "cycle"),
				slog.Int64("asset_id", r.AssetID),
				slog.Any("error", err))
			continue
		}
		r.ImageURL = url
	}
}
