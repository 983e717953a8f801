package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexjbarnes/media-sync/internal/config"
	"github.com/alexjbarnes/media-sync/internal/logging"
	"github.com/alexjbarnes/media-sync/internal/media"
	"github.com/alexjbarnes/media-sync/internal/state"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)
	logger.Info("media-sync starting",
		slog.String("version", Version),
		slog.String("library", cfg.LibraryDir),
		slog.String("server", cfg.ServerURL),
		slog.Bool("auto_upload", cfg.AutoUpload),
		slog.Duration("interval", cfg.SyncInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appState, err := state.LoadAt(cfg.StatePath())
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	// A token from the environment seeds the cache; once stored it does
	// not need to be set again.
	if cfg.Token != "" {
		if err := appState.SetToken(cfg.Token); err != nil {
			return fmt.Errorf("caching token: %w", err)
		}
	}

	library, err := media.NewLibrary(cfg.LibraryDir)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}

	rules, err := media.LoadRules(cfg.LibraryDir)
	if err != nil {
		return fmt.Errorf("loading sync rules: %w", err)
	}

	creds := media.NewStateCredentials(appState, logger)
	client := media.NewClient(cfg.ServerURL, cfg.DeviceName, nil)
	extractor := media.NewSidecarExtractor(library, logger)

	enumerator := media.NewEnumerator(library, rules, logger)

	engine := media.NewEngine(media.EngineConfig{
		Hasher:   media.NewFileHasher(library, logger),
		API:      client,
		Uploader: media.NewUploader(library, client, extractor, logger),
		Creds:    creds,
		Store:    appState,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	trigger := make(chan struct{}, 1)

	g.Go(func() error {
		return runLoop(gctx, engine, enumerator, cfg, trigger, logger)
	})

	if cfg.WatchLibrary {
		watcher, err := media.NewWatcher(library, logger)
		if err != nil {
			return fmt.Errorf("starting library watcher: %w", err)
		}

		g.Go(func() error {
			return watcher.Run(gctx)
		})

		g.Go(func() error {
			return forwardTriggers(gctx, watcher.Changes(), trigger)
		})
	}

	if cfg.EnableEvents {
		listener := media.NewEventListener(cfg.ServerURL, creds, appState, engine, trigger, logger)

		g.Go(func() error {
			return listener.Run(gctx)
		})
	}

	return g.Wait()
}

// runLoop drives sync runs: one immediately on startup, then on every
// interval tick or watcher trigger. A run failure is logged and the
// loop keeps going; only context cancellation stops it.
func runLoop(ctx context.Context, engine *media.Engine, enumerator *media.Enumerator, cfg *config.Config, trigger <-chan struct{}, logger *slog.Logger) error {
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		runOnce(ctx, engine, enumerator, cfg.AutoUpload, logger)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-trigger:
		}
	}
}

// runOnce enumerates the library and executes a single sync pass.
func runOnce(ctx context.Context, engine *media.Engine, enumerator *media.Enumerator, autoUpload bool, logger *slog.Logger) {
	items, err := enumerator.Enumerate()
	if err != nil {
		logger.Error("enumerating library", slog.String("error", err.Error()))
		return
	}

	result, err := engine.StartBatchSync(ctx, items, autoUpload)
	if err != nil {
		logger.Error("sync run failed", slog.String("error", err.Error()))
	} else {
		logger.Info("sync run finished",
			slog.Int("already_synced", len(result.AlreadySynced)),
			slog.Int("uploaded", result.UploadedCount),
			slog.Int("failed", result.FailedCount),
			slog.Int("pending", len(result.NeedsUpload)-result.UploadedCount),
			slog.Bool("cancelled", result.Cancelled),
		)
	}

	engine.Acknowledge()
}

// forwardTriggers coalesces watcher signals into the shared trigger
// channel.
func forwardTriggers(ctx context.Context, changes <-chan struct{}, trigger chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
	}
}
