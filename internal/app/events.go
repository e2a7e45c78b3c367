package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/event/events"
	"github.com/dshills/eventscript/internal/observability"
	"github.com/dshills/eventscript/internal/taxonomy"
)

// Fire delivers ev to its handlers.
func (app *Application) Fire(ctx context.Context, ev event.Event) error {
	if !app.running.Load() {
		return ErrNotRunning
	}
	return app.bus.Call(ctx, ev)
}

// NewEvent builds an event of the named type through its factory. Names
// resolve as in script registrations.
func (app *Application) NewEvent(name string) (event.Event, error) {
	t, err := app.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	ev, ok := t.New()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInstantiable, t.Name())
	}
	return ev, nil
}

// Command publishes a ServerCommand for line. It reports whether a handler
// cancelled it, in which case the caller should not handle the command.
func (app *Application) Command(ctx context.Context, sender, line string) (bool, error) {
	ev := events.NewServerCommand(sender, line)
	err := app.Fire(ctx, ev)
	return ev.IsCancelled(), err
}

// EnablePlugin registers the plugin manifest at path under name. A running
// application scans it immediately; otherwise Start does.
func (app *Application) EnablePlugin(name, path string) error {
	m := taxonomy.NewManifestModule(name, path, app.catalog.LookupType)
	if err := app.catalog.Register(m); err != nil {
		return err
	}

	app.mu.Lock()
	app.plugins = append(app.plugins, name)
	app.mu.Unlock()

	if !app.running.Load() {
		return nil
	}
	if _, err := app.registry.InitializePlugin(name); err != nil {
		return err
	}
	app.logger.Info("plugin enabled",
		slog.String(observability.KeyModule, name),
		slog.String("path", path))
	return nil
}
