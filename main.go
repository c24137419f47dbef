package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/v01dsy/Azurewrath/azurewrath"
	"github.com/v01dsy/Azurewrath/azurewrath/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Azurewrath tracker",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	runOnce := flag.Bool("once", false, "run a single tracking cycle and exit")
	flag.Parse()

	cfg, err := azurewrath.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	setupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	app := azurewrath.New(cfg, version, commit)
	if err := app.Setup(setupCtx); err != nil {
		logger.LogError("Failed to set up application", err)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Close(ctx)
	}()

	if *runOnce {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := app.Tracker.Cache().Load(ctx, app.HistoryRepo); err != nil {
			slog.Error("Failed to load state cache", slog.Any("error", err))
			os.Exit(-1)
		}
		if err := app.Tracker.RunCycle(ctx); err != nil {
			slog.Error("Cycle failed", slog.Any("error", err))
			os.Exit(-1)
		}
		return
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.LogSystem("Azurewrath is running. Press CTRL-C to exit.")
	if err := app.Run(runCtx); err != nil && runCtx.Err() == nil {
		logger.LogError("Application exited with error", err)
		os.Exit(-1)
	}
	logger.LogSystem("Shutting down...")
}
