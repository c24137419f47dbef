package snipe

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sahilm/fuzzy"
	"github.com/valyala/fasthttp"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/repositories"
)

// DealEvent is the JSON body of a single SSE data frame.
type DealEvent struct {
	AssetID  int64   `json:"assetId"`
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl"`
	Price    int64   `json:"price"`
	RAP      int64   `json:"rap"`
	Deal     float64 `json:"deal"`
}

type itemResult struct {
	AssetID  int64  `json:"assetId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

type historyPoint struct {
	Price     *int64    `json:"price"`
	RAP       *int64    `json:"rap"`
	Timestamp time.Time `json:"timestamp"`
}

// Server exposes the live deal stream, item search and per-item price
// history over HTTP.
type Server struct {
	app     *fiber.App
	deals   repositories.SnipeRepository
	items   repositories.ItemRepository
	history repositories.HistoryRepository

	port      int
	pollEvery time.Duration
	window    time.Duration
	batchSize int
}

type ServerConfig struct {
	Port        int
	PollSeconds int
	WindowSecs  int
	BatchSize   int
}

func NewServer(cfg ServerConfig, deals repositories.SnipeRepository, items repositories.ItemRepository, history repositories.HistoryRepository) *Server {
	s := &Server{
		deals:     deals,
		items:     items,
		history:   history,
		port:      cfg.Port,
		pollEvery: time.Duration(cfg.PollSeconds) * time.Second,
		window:    time.Duration(cfg.WindowSecs) * time.Second,
		batchSize: cfg.BatchSize,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Azurewrath Snipe",
		ServerHeader:          "Azurewrath",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
	}))

	app.Get("/health", s.handleHealth)
	app.Get("/stream", s.handleStream)
	app.Get("/items/search", s.handleSearch)
	app.Get("/items/:assetId/history", s.handleHistory)

	s.app = app
	return s
}

// Run blocks serving HTTP until ctx is cancelled, then shuts the
// listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(fmt.Sprintf(":%d", s.port))
	}()

	slog.Info("Snipe server listening",
		slog.String("type", "sse"),
		slog.Int("port", s.port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStream serves the per-user deal stream. Each connection polls
// the deal table on its own ticker and filters rows against the user's
// enabled configs; the first config that accepts a deal wins.
func (s *Server) handleStream(c *fiber.Ctx) error {
	rawUserID := c.Query("userId")
	if rawUserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId query parameter is required",
		})
	}
	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId must be an integer",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		s.streamDeals(w, userID)
	}))
	return nil
}

func (s *Server) streamDeals(w *bufio.Writer, userID int64) {
	if _, err := w.WriteString(config.StreamConnected); err != nil {
		return
	}
	if err := w.Flush(); err != nil {
		return
	}

	slog.Debug("Stream opened",
		slog.String("type", "sse"),
		slog.Int64("user_id", userID))

	// The first tick replays deals still inside the recency window;
	// after that the watermark keeps every row exactly-once.
	var watermark int64

	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for range ticker.C {
		// The heartbeat doubles as the disconnect probe; a dead client
		// surfaces here as a write error.
		if _, err := w.WriteString(config.StreamHeartbeat); err != nil {
			return
		}

		_, newWatermark, err := s.pollOnce(w, userID, watermark)
		if err != nil {
			slog.Debug("Stream closed",
				slog.String("type", "sse"),
				slog.Int64("user_id", userID))
			return
		}
		watermark = newWatermark

		if err := w.Flush(); err != nil {
			return
		}
	}
}

// pollOnce runs one tick: load configs, fetch new deals, emit matches.
// It returns a write error only when the client is gone; query errors
// are logged and the connection stays up.
func (s *Server) pollOnce(w *bufio.Writer, userID, watermark int64) (emitted bool, newWatermark int64, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), config.StreamQueryTimeout)
	defer cancel()

	newWatermark = watermark

	configs, qErr := s.deals.GetEnabledConfigs(ctx, userID)
	if qErr != nil {
		slog.Warn("Failed to load snipe configs",
			slog.String("type", "sse"),
			slog.Int64("user_id", userID),
			slog.Any("error", qErr))
		return false, newWatermark, nil
	}
	if len(configs) == 0 {
		return false, newWatermark, nil
	}

	deals, qErr := s.deals.GetDealsAfter(ctx, watermark, s.window, s.batchSize)
	if qErr != nil {
		slog.Warn("Failed to load deals",
			slog.String("type", "sse"),
			slog.Int64("user_id", userID),
			slog.Any("error", qErr))
		return false, newWatermark, nil
	}

	for _, deal := range deals {
		// The watermark moves past every fetched row, matched or not,
		// so a non-matching deal is never re-examined.
		if deal.ID > newWatermark {
			newWatermark = deal.ID
		}

		if FirstMatch(configs, deal) == nil {
			continue
		}

		body, mErr := json.Marshal(DealEvent{
			AssetID:  deal.AssetID,
			Name:     deal.Name,
			ImageURL: deal.ImageURL,
			Price:    deal.Price,
			RAP:      deal.RAP,
			Deal:     deal.Deal,
		})
		if mErr != nil {
			continue
		}

		if _, wErr := fmt.Fprintf(w, "data: %s\n\n", body); wErr != nil {
			return emitted, newWatermark, wErr
		}
		emitted = true
	}

	return emitted, newWatermark, nil
}

// handleSearch fuzzy-matches item names, capped at MaxSearchResults.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "q query parameter is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), config.StreamQueryTimeout)
	defer cancel()

	items, err := s.items.GetAll(ctx)
	if err != nil {
		slog.Error("Failed to load items for search",
			slog.String("type", "sse"),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to search items",
		})
	}

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}

	matches := fuzzy.Find(query, names)
	if len(matches) > config.MaxSearchResults {
		matches = matches[:config.MaxSearchResults]
	}

	results := make([]itemResult, 0, len(matches))
	for _, m := range matches {
		item := items[m.Index]
		results = append(results, itemResult{
			AssetID:  item.AssetID,
			Name:     item.Name,
			ImageURL: item.ImageURL,
		})
	}

	return c.JSON(results)
}

// handleHistory returns the newest recorded snapshots for one item,
// newest first.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	assetID, err := strconv.ParseInt(c.Params("assetId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "assetId must be an integer",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), config.StreamQueryTimeout)
	defer cancel()

	item, err := s.items.GetByAssetID(ctx, assetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown item",
			})
		}
		slog.Error("Failed to load item",
			slog.String("type", "sse"),
			slog.Int64("asset_id", assetID),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load item",
		})
	}

	rows, err := s.history.GetRecentByItem(ctx, item.ID, s.batchSize)
	if err != nil {
		slog.Error("Failed to load item history",
			slog.String("type", "sse"),
			slog.Int64("asset_id", assetID),
			slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load history",
		})
	}

	points := make([]historyPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, historyPoint{
			Price:     row.Price,
			RAP:       row.RAP,
			Timestamp: row.Timestamp,
		})
	}

	return c.JSON(points)
}
