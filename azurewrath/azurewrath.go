package azurewrath

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"golang.org/x/sync/errgroup"

	"github.com/v01dsy/Azurewrath/azurewrath/database"
	"github.com/v01dsy/Azurewrath/azurewrath/database/repositories"
	"github.com/v01dsy/Azurewrath/azurewrath/notifications"
	"github.com/v01dsy/Azurewrath/azurewrath/scraper"
	"github.com/v01dsy/Azurewrath/azurewrath/snipe"
	"github.com/v01dsy/Azurewrath/azurewrath/tracker"
)

// The catalog tops out in the low thousands, so this effectively never
// evicts.
const thumbnailCacheSize = 4096

func New(cfg *Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// App wires the tracker pipeline, the notification channels and the
// snipe server together over one database connection.
type App struct {
	Cfg     *Config
	Version string
	Commit  string

	DB     *database.DB
	Client bot.Client

	ItemRepository  repositories.ItemRepository
	HistoryRepo     repositories.HistoryRepository
	SnipeRepository repositories.SnipeRepository

	Tracker     *tracker.Tracker
	SnipeServer *snipe.Server

	webhook *notifications.WebhookChannel
}

// Setup connects the database, initializes the schema and builds every
// component. Discord and push channels are only constructed when their
// config sections are filled in.
func (a *App) Setup(ctx context.Context) error {
	db, err := database.New(ctx, database.DBConfig{
		Host:     a.Cfg.DB.Host,
		Port:     a.Cfg.DB.Port,
		User:     a.Cfg.DB.User,
		Password: a.Cfg.DB.Password,
		Database: a.Cfg.DB.Database,
		PoolSize: a.Cfg.DB.PoolSize,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db

	if err := db.InitializeSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	a.ItemRepository = repositories.NewItemRepository(db.BunDB())

	count, err := a.ItemRepository.GetItemCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count tracked items: %w", err)
	}
	if count == 0 {
		slog.Warn("Item catalog is empty; the first cycle will register every scraped item",
			slog.String("type", "sys"))
	} else {
		slog.Info("Item catalog loaded",
			slog.String("type", "sys"),
			slog.Int64("items", count))
	}

	a.HistoryRepo = repositories.NewHistoryRepository(db.BunDB())
	a.SnipeRepository = repositories.NewSnipeRepository(db.BunDB())
	watchlistRepo := repositories.NewWatchlistRepository(db.BunDB())
	userRepo := repositories.NewUserRepository(db.BunDB())
	pushRepo := repositories.NewPushSubscriptionRepository(db.BunDB())

	var dm *notifications.DMChannel
	if a.Cfg.Discord.Token != "" {
		client, err := disgo.New(a.Cfg.Discord.Token)
		if err != nil {
			return fmt.Errorf("failed to create discord client: %w", err)
		}
		a.Client = client
		dm = notifications.NewDMChannel(client.Rest())
		slog.Info("Discord DM channel enabled", slog.String("type", "notify"))
	}

	if a.Cfg.Discord.WebhookID != 0 && a.Cfg.Discord.WebhookToken != "" {
		a.webhook = notifications.NewWebhookChannel(a.Cfg.Discord.WebhookID, a.Cfg.Discord.WebhookToken)
		slog.Info("Discord webhook channel enabled", slog.String("type", "notify"))
	}

	var push notifications.PushSender
	if a.Cfg.Push.VAPIDPublicKey != "" && a.Cfg.Push.VAPIDPrivateKey != "" {
		push = notifications.NewPushChannel(
			a.Cfg.Push.VAPIDPublicKey,
			a.Cfg.Push.VAPIDPrivateKey,
			a.Cfg.Push.Subscriber,
		)
		slog.Info("Web push channel enabled", slog.String("type", "notify"))
	}

	dispatcher := notifications.NewDispatcher(
		watchlistRepo,
		userRepo,
		pushRepo,
		push,
		dm,
		a.webhook,
		a.Cfg.Worker.AppURL,
	)

	source := scraper.NewRolimonsSource(
		a.Cfg.Scraper.DealsURL,
		a.Cfg.Scraper.UserAgent,
		time.Duration(a.Cfg.Scraper.TimeoutSeconds)*time.Second,
	)
	thumbs := scraper.NewThumbnailClient(thumbnailCacheSize)

	writer := tracker.NewWriter(
		db.GetPool(),
		time.Duration(a.Cfg.Worker.DealTTLMinutes)*time.Minute,
		a.Cfg.Worker.MinDealPercent,
	)

	a.Tracker = tracker.New(
		source,
		a.ItemRepository,
		a.HistoryRepo,
		writer,
		dispatcher,
		thumbs,
		time.Duration(a.Cfg.Worker.IntervalSeconds)*time.Second,
	)

	a.SnipeServer = snipe.NewServer(snipe.ServerConfig{
		Port:        a.Cfg.Snipe.Port,
		PollSeconds: a.Cfg.Snipe.PollSeconds,
		WindowSecs:  a.Cfg.Snipe.WindowSeconds,
		BatchSize:   a.Cfg.Snipe.BatchSize,
	}, a.SnipeRepository, a.ItemRepository, a.HistoryRepo)

	return nil
}

// Run drives the tracker loop and the snipe server until ctx is
// cancelled; the first hard failure takes both down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Tracker.Run(ctx)
	})
	g.Go(func() error {
		return a.SnipeServer.Run(ctx)
	})

	return g.Wait()
}

func (a *App) Close(ctx context.Context) {
	if a.webhook != nil {
		a.webhook.Close(ctx)
	}
	if a.Client != nil {
		a.Client.Close(ctx)
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
