package tracker

import (
	"context"
	"strconv"
	"sync/atomic"

	"log/slog"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Quote is the raw positional array the quote source produces per item:
// index 0 name, index 1 best price, index 2 recent average price. The
// source is untrusted; every slot gets validated before use.
type Quote []any

// Result is one item's classification for a single cycle. It is the
// only thing the persistence writer and the notification dispatcher see.
type Result struct {
	ItemID   int64
	AssetID  int64
	Name     string
	ImageURL string

	Price *int64 // best price, absent when nothing is listed
	RAP   int64

	PriceChanged bool
	RAPChanged   bool
	FirstSeen    bool

	OldPrice *int64
	OldRAP   *int64

	// DealPercent is meaningful only when IsDeal is set.
	DealPercent float64
	IsDeal      bool
}

// Changed reports whether this result warrants a history row.
func (r *Result) Changed() bool {
	return r.FirstSeen || r.PriceChanged || r.RAPChanged
}

// Stats counts classification outcomes for one cycle.
type Stats struct {
	Processed int32
	Skipped   int32
	Malformed int32
}

// Classifier partitions the catalog into outcome classes by comparing
// fresh quotes against the state cache. Classification is independent
// per item, so the catalog is split into batches that run concurrently.
type Classifier struct {
	sem *semaphore.Weighted
}

func NewClassifier() *Classifier {
	return &Classifier{
		sem: semaphore.NewWeighted(config.MaxClassifyWorkers),
	}
}

// Classify runs one cycle's classification. Batch result order is not
// meaningful; callers must not rely on cross-batch ordering.
func (c *Classifier) Classify(ctx context.Context, items []*models.Item, quotes map[string]Quote, cache *StateCache) ([]Result, Stats, error) {
	if len(items) == 0 {
		return nil, Stats{}, nil
	}

	batchSize := len(items) / config.MaxClassifyWorkers
	if batchSize < config.MinClassifyBatch {
		batchSize = config.MinClassifyBatch
	}

	numBatches := (len(items) + batchSize - 1) / batchSize
	batchResults := make([][]Result, numBatches)
	stats := Stats{}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}

		batch := items[i:end]
		slot := i / batchSize

		g.Go(func() error {
			if err := c.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer c.sem.Release(1)

			batchResults[slot] = classifyBatch(batch, quotes, cache, &stats)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	results := make([]Result, 0, len(items))
	for _, batch := range batchResults {
		results = append(results, batch...)
	}

	slog.Info("Classification completed",
		slog.String("type", "cycle"),
		slog.Int("items", len(items)),
		slog.Int("batches", numBatches),
		slog.Int("processed", int(atomic.LoadInt32(&stats.Processed))),
		slog.Int("skipped", int(atomic.LoadInt32(&stats.Skipped))),
		slog.Int("malformed", int(atomic.LoadInt32(&stats.Malformed))))

	return results, stats, nil
}

func classifyBatch(items []*models.Item, quotes map[string]Quote, cache *StateCache, stats *Stats) []Result {
	results := make([]Result, 0, len(items))

	for _, item := range items {
		quote, ok := quotes[strconv.FormatInt(item.AssetID, 10)]
		if !ok {
			atomic.AddInt32(&stats.Skipped, 1)
			continue
		}

		// A quote must at least reach the RAP slot
		if len(quote) < 3 {
			atomic.AddInt32(&stats.Malformed, 1)
			continue
		}

		rap := toInt64(quote[2])
		if rap == nil || *rap == 0 {
			// RAP is the mandatory axis; nothing to track without it
			atomic.AddInt32(&stats.Skipped, 1)
			continue
		}

		price := toInt64(quote[1])
		if price != nil && *price == 0 {
			price = nil
		}

		oldPrice, oldRAP := cache.Get(item.ID)

		result := Result{
			ItemID:   item.ID,
			AssetID:  item.AssetID,
			Name:     item.Name,
			ImageURL: item.ImageURL,
			Price:    price,
			RAP:      *rap,
			OldPrice: oldPrice,
			OldRAP:   oldRAP,

			RAPChanged:   oldRAP != nil && *oldRAP != *rap,
			PriceChanged: price != nil && oldPrice != nil && *oldPrice != *price,
			FirstSeen:    oldRAP == nil && oldPrice == nil,
		}

		if price != nil && *price > 0 && *rap > 0 && *price < *rap {
			result.DealPercent = float64(*rap-*price) / float64(*rap) * 100
			result.IsDeal = true
		}

		results = append(results, result)
		atomic.AddInt32(&stats.Processed, 1)
	}

	return results
}

// toInt64 coerces a raw quote slot into an integer value. Quote arrays
// come from JSON, so numbers usually arrive as float64.
func toInt64(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		i := int64(n)
		return &i
	case float32:
		i := int64(n)
		return &i
	case int64:
		return &n
	case int:
		i := int64(n)
		return &i
	case string:
		if n == "" {
			return nil
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}
