package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/backdrop/internal/config"
	"github.com/genricoloni/backdrop/internal/decoder"
	"github.com/genricoloni/backdrop/internal/display"
	"github.com/genricoloni/backdrop/internal/domain"
	"github.com/genricoloni/backdrop/internal/engine"
	"github.com/genricoloni/backdrop/internal/ipc"
	"github.com/genricoloni/backdrop/internal/library"
	"github.com/genricoloni/backdrop/internal/notify"
	"github.com/genricoloni/backdrop/internal/store"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// AppOptions is the complete daemon graph without the fx logger
var AppOptions = fx.Options(
	fx.Provide(
		newLogger,
		fx.Annotate(config.NewAppConfig, fx.As(new(domain.Config))),
		newKV,
		store.NewSettings,
		display.New,
		fx.Annotate(decoder.NewFactory, fx.As(new(domain.DecoderFactory))),
		newBus,
		notify.NewDesktop,
		library.NewScanner,
		newThumbnailCache,
		library.NewWatcher,
		newEngine,
		newService,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	app := fx.New(
		// Logger configuration
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		AppOptions,
	)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	// Stop the application gracefully
	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// newLogger creates the production logger. BACKDROP_LOG_LEVEL overrides the level.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl := os.Getenv("BACKDROP_LOG_LEVEL"); lvl != "" {
		level, err := zap.ParseAtomicLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("invalid BACKDROP_LOG_LEVEL: %w", err)
		}
		cfg.Level = level
	}
	return cfg.Build()
}

// newKV opens the settings database; it is closed after every other component stopped
func newKV(lc fx.Lifecycle, cfg domain.Config, logger *zap.Logger) (*store.KV, error) {
	kv, err := store.Open(config.DatabasePath(cfg.GetDataDir()), logger.Named("store"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return kv.Close()
		},
	})
	return kv, nil
}

// newBus provides the bus both as itself and as the notifier used by the producers
func newBus(lc fx.Lifecycle, logger *zap.Logger) (*notify.Bus, domain.Notifier) {
	bus := notify.NewBus(logger.Named("notify"))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			bus.Close()
			return nil
		},
	})
	return bus, bus
}

func newThumbnailCache(cfg domain.Config, logger *zap.Logger) *library.ThumbnailCache {
	return library.NewThumbnailCache(config.ThumbnailDir(cfg.GetCacheDir()), logger.Named("thumbnails"))
}

// newEngine exposes the engine as the controller served over IPC
func newEngine(
	logger *zap.Logger,
	cfg domain.Config,
	disp domain.Display,
	decoders domain.DecoderFactory,
	settings *store.Settings,
	scanner *library.Scanner,
	notifier domain.Notifier,
) (*engine.Engine, domain.Controller) {
	e := engine.NewEngine(logger.Named("engine"), cfg, disp, decoders, settings, scanner, notifier)
	return e, e
}

func newService(ctrl domain.Controller, thumbs *library.ThumbnailCache, bus *notify.Bus, logger *zap.Logger) *ipc.Service {
	return ipc.NewService(ctrl, thumbs, bus, logger.Named("ipc"))
}

// registerHooks starts components in dependency order; fx stops them in reverse
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	desktop *notify.Desktop,
	service *ipc.Service,
	eng *engine.Engine,
	watcher *library.Watcher,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Backdrop daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			return nil
		},
	})
	lc.Append(fx.Hook{OnStart: desktop.Start, OnStop: desktop.Stop})
	lc.Append(fx.Hook{OnStart: service.Start, OnStop: service.Stop})
	lc.Append(fx.Hook{OnStart: eng.Start, OnStop: eng.Stop})
	lc.Append(fx.Hook{OnStart: watcher.Start, OnStop: watcher.Stop})
}
