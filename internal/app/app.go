// Package app wires the event scripting host together and manages its
// lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dshills/eventscript/internal/config"
	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/event/events"
	"github.com/dshills/eventscript/internal/observability"
	"github.com/dshills/eventscript/internal/script"
	slua "github.com/dshills/eventscript/internal/script/lua"
	"github.com/dshills/eventscript/internal/taxonomy"
)

// Application owns the bus, the event taxonomy and the loaded scripts.
type Application struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *observability.Collector
	metrics   observability.MetricsRecorder

	bus      event.Bus
	catalog  *taxonomy.Catalog
	registry *taxonomy.Registry
	loader   *script.Loader

	mu      sync.Mutex
	plugins []string

	running atomic.Bool
	stopped atomic.Bool
}

// Options configures the application.
type Options struct {
	// Config is used as is when set.
	Config *config.Config

	// ConfigPath is loaded when Config is nil. Empty means the default
	// file in the working directory.
	ConfigPath string

	// Logger overrides the logger built from the logging section.
	Logger *slog.Logger

	// LogOutput receives log records when Logger is nil. Defaults to
	// stderr.
	LogOutput io.Writer
}

// New creates the application. Nothing is scanned or loaded until Start.
func New(opts Options) (*Application, error) {
	app := &Application{cfg: opts.Config, logger: opts.Logger}
	if err := app.bootstrap(opts); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap(opts Options) error {
	// 1. Config
	if app.cfg == nil {
		cfg, err := config.Load(config.Options{Path: opts.ConfigPath})
		if err != nil {
			return &InitError{Component: "config", Err: err}
		}
		app.cfg = cfg
	} else if err := app.cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}

	// 2. Logging
	if app.logger == nil {
		out := opts.LogOutput
		if out == nil {
			out = os.Stderr
		}
		logger, err := observability.NewLogger(out, app.cfg.LoggerOptions())
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		app.logger = logger
	}

	// 3. Metrics
	app.metrics = observability.NoopMetrics{}
	if app.cfg.Metrics.Enabled {
		app.collector = observability.NewCollector()
		app.metrics = observability.NewMetricsRecorder(app.collector.MeterProvider())
	}

	// 4. Event bus
	app.bus = event.NewBus(event.WithLogger(app.logger), event.WithMetrics(app.metrics))
	if err := app.bus.Start(); err != nil {
		return &InitError{Component: "event bus", Err: err}
	}

	// 5. Taxonomy
	if err := app.buildTaxonomy(); err != nil {
		return &InitError{Component: "taxonomy", Err: err}
	}

	// 6. Script loader
	timeout, err := app.cfg.Lua.ExecutionTimeout()
	if err != nil {
		return &InitError{Component: "script loader", Err: err}
	}
	app.loader = script.NewLoader(app.registry,
		script.WithLogger(app.logger),
		script.WithMetrics(app.metrics),
		script.WithBus(app.bus),
		script.WithExtensions(app.cfg.Scripts.Extensions...),
		script.WithStateOptions(
			slua.WithExecutionTimeout(timeout),
			slua.WithUnsafe(app.cfg.Lua.Unsafe),
		))

	return nil
}

func (app *Application) buildTaxonomy() error {
	app.catalog = taxonomy.NewCatalog()
	if err := app.catalog.Register(taxonomy.NewStaticModule(taxonomy.HostModule, events.Host()...)); err != nil {
		return err
	}
	if app.cfg.Taxonomy.Extension {
		if err := app.catalog.Register(taxonomy.NewStaticModule(taxonomy.ExtensionModule, events.Extension()...)); err != nil {
			return err
		}
		app.catalog.Provide(events.Extension()...)
	}
	app.catalog.Provide(events.Host()...)

	app.registry = taxonomy.New(app.catalog,
		taxonomy.WithLogger(app.logger),
		taxonomy.WithMetrics(app.metrics),
		taxonomy.WithExtension(taxonomy.ExtensionModule, app.cfg.Taxonomy.ExtensionMarker))

	if app.cfg.Plugins.Dir == "" {
		return nil
	}
	modules, err := taxonomy.DiscoverManifests(app.cfg.Plugins.Dir, app.catalog.LookupType)
	if err != nil {
		return fmt.Errorf("discover plugins in %s: %w", app.cfg.Plugins.Dir, err)
	}
	for _, m := range modules {
		if err := app.catalog.Register(m); err != nil {
			app.logger.Warn("skipping plugin",
				slog.String(observability.KeyModule, m.Name()),
				slog.String("path", m.Path()),
				slog.Any("error", err))
			continue
		}
		app.plugins = append(app.plugins, m.Name())
	}
	return nil
}

// Start scans the taxonomy, loads scripts and publishes ServerStarted.
// A plugin whose manifest fails to open is logged and skipped.
func (app *Application) Start(ctx context.Context) error {
	if app.stopped.Load() {
		return ErrNotRunning
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if err := app.registry.Initialize(); err != nil {
		app.running.Store(false)
		return &InitError{Component: "taxonomy", Err: err}
	}
	for _, name := range app.Plugins() {
		if _, err := app.registry.InitializePlugin(name); err != nil {
			app.logger.Warn("plugin events unavailable",
				slog.String(observability.KeyModule, name),
				slog.Any("error", err))
		}
	}

	dir := app.cfg.Scripts.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		app.running.Store(false)
		return &InitError{Component: "scripts directory", Err: err}
	}
	loaded, err := app.loader.Load(dir)
	if err != nil {
		app.running.Store(false)
		return &InitError{Component: "scripts", Err: err}
	}

	app.logger.Info("host started",
		slog.Int("events", app.registry.Len()),
		slog.Int("plugins", len(app.Plugins())),
		slog.Int("scripts", loaded))

	if err := app.bus.Call(ctx, events.NewServerStarted(loaded)); err != nil {
		app.logger.Warn("server started handlers failed", slog.Any("error", err))
	}
	return nil
}

// Shutdown unloads every script and stops the bus. It is safe to call more
// than once.
func (app *Application) Shutdown(ctx context.Context) error {
	if !app.stopped.CompareAndSwap(false, true) {
		return nil
	}
	app.running.Store(false)

	unloaded := app.loader.UnloadAll()
	if err := app.bus.Stop(); err != nil {
		app.logger.Warn("could not stop event bus", slog.Any("error", err))
	}
	if app.collector != nil {
		if err := app.collector.Shutdown(ctx); err != nil {
			app.logger.Warn("could not shut down metrics", slog.Any("error", err))
		}
	}

	app.logger.Info("host stopped", slog.Int("scripts", unloaded))
	return nil
}

// IsRunning reports whether Start succeeded and Shutdown was not called.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the resolved configuration.
func (app *Application) Config() *config.Config { return app.cfg }

// Logger returns the root logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Bus returns the event bus.
func (app *Application) Bus() event.Bus { return app.bus }

// Registry returns the event taxonomy.
func (app *Application) Registry() *taxonomy.Registry { return app.registry }

// Loader returns the script loader.
func (app *Application) Loader() *script.Loader { return app.loader }

// Collector returns the metrics collector, or nil when metrics are
// disabled.
func (app *Application) Collector() *observability.Collector { return app.collector }

// Plugins returns the names of the registered plugin modules.
func (app *Application) Plugins() []string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return append([]string(nil), app.plugins...)
}
