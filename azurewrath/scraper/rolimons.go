package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/v01dsy/Azurewrath/azurewrath/tracker"
)

// RolimonsSource scrapes the Rolimons deals page with a headless
// browser and extracts the in-page item_details object. The page builds
// it with JavaScript, so a plain HTTP GET sees an empty shell.
type RolimonsSource struct {
	url       string
	userAgent string
	timeout   time.Duration
}

func NewRolimonsSource(url, userAgent string, timeout time.Duration) *RolimonsSource {
	return &RolimonsSource{url: url, userAgent: userAgent, timeout: timeout}
}

// FetchQuotes loads the deals page and returns the raw quote map keyed
// by asset id string. Each quote is a positional array: index 0 name,
// index 1 best price, index 2 RAP.
func (s *RolimonsSource) FetchQuotes(ctx context.Context) (map[string]tracker.Quote, error) {
	start := time.Now()

	if s.userAgent != "" {
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
			append(chromedp.DefaultExecAllocatorOptions[:], chromedp.UserAgent(s.userAgent))...)
		defer cancelAlloc()
		ctx = allocCtx
	}

	chromedpCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	chromedpCtx, cancel = context.WithTimeout(chromedpCtx, s.timeout)
	defer cancel()

	var raw string
	err := chromedp.Run(chromedpCtx,
		chromedp.Navigate(s.url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`JSON.stringify(typeof item_details !== "undefined" ? item_details : null)`, &raw),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape deals page: %w", err)
	}
	if raw == "" || raw == "null" {
		return nil, fmt.Errorf("deals page did not expose item details")
	}

	var quotes map[string]tracker.Quote
	if err := json.Unmarshal([]byte(raw), &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode item details: %w", err)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("deals page returned no items")
	}

	slog.Info("Quotes fetched",
		slog.String("type", "cycle"),
		slog.Int("items", len(quotes)),
		slog.Duration("took", time.Since(start)))

	return quotes, nil
}
