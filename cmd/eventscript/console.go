package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/dshills/eventscript/internal/app"
)

// ConsoleSender is the sender of ServerCommand events typed on the console.
const ConsoleSender = "console"

// Console executes console commands against a running application.
type Console struct {
	app *app.Application
	out io.Writer
}

// NewConsole creates a console writing to out.
func NewConsole(application *app.Application, out io.Writer) *Console {
	return &Console{app: application, out: out}
}

// SetOutput redirects console output.
func (c *Console) SetOutput(out io.Writer) {
	c.out = out
}

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args string) error
}

var commands = map[string]command{
	"fire": {"fire <event> [json]", "fire an event with optional JSON fields", func(c *Console, ctx context.Context, args string) error {
		name, payload, _ := strings.Cut(args, " ")
		if name == "" {
			return fmt.Errorf("usage: fire <event> [json]")
		}
		return c.Fire(ctx, name, strings.TrimSpace(payload))
	}},
	"types":   {"types", "list the event types scripts can listen to", (*Console).types},
	"scripts": {"scripts", "list loaded scripts", (*Console).scripts},
	"load":    {"load <path>", "load a script file", (*Console).load},
	"unload":  {"unload <name>", "unload a script", (*Console).unload},
	"plugin":  {"plugin <name> <manifest>", "enable a plugin event manifest", (*Console).plugin},
	"stats":   {"stats", "show bus statistics and metrics", (*Console).stats},
}

var commandOrder = []string{"fire", "types", "scripts", "load", "unload", "plugin", "stats"}

// Exec runs one console line. Every line except quit is first published as
// a ServerCommand; a cancelled command is not handled further. It reports
// whether the console should exit.
func (c *Console) Exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	if name == "quit" || name == "exit" {
		return true, nil
	}

	cancelled, err := c.app.Command(ctx, ConsoleSender, line)
	if err != nil {
		c.Errorf("command handlers failed: %v", err)
	}
	if cancelled {
		return false, nil
	}

	if name == "help" {
		c.Help()
		return false, nil
	}
	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q, type help", name)
	}
	return false, cmd.run(c, ctx, args)
}

// Help prints the command list.
func (c *Console) Help() {
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintf(c.out, "  %-26s %s\n", "help", "show this help")
	for _, name := range commandOrder {
		cmd := commands[name]
		fmt.Fprintf(c.out, "  %-26s %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintf(c.out, "  %-26s %s\n", "quit", "exit the console")
}

// Errorf prints an error line.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintf(c.out, "error: "+format+"\n", args...)
}

// Fire builds the named event, applies payload and delivers it. The event
// is printed after delivery so script changes are visible.
func (c *Console) Fire(ctx context.Context, name, payload string) error {
	ev, err := c.app.NewEvent(name)
	if err != nil {
		return err
	}
	if err := applyPayload(ev, payload); err != nil {
		return err
	}

	deliveryErr := c.app.Fire(ctx, ev)

	rendered, err := renderEvent(ev)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, rendered)
	return deliveryErr
}

func (c *Console) types(_ context.Context, _ string) error {
	rendered, err := renderTypes(c.app.Registry())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, rendered)
	return nil
}

func (c *Console) scripts(_ context.Context, _ string) error {
	loader := c.app.Loader()
	names := loader.Sessions()
	if len(names) == 0 {
		fmt.Fprintln(c.out, "no scripts loaded")
		return nil
	}
	for _, name := range names {
		if s, ok := loader.Session(name); ok {
			fmt.Fprintf(c.out, "%-24s %d listeners\n", name, s.ListenerCount())
		}
	}
	return nil
}

func (c *Console) load(_ context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: load <path>")
	}
	s, err := c.app.Loader().LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "loaded %s with %d listeners\n", s.Name(), s.ListenerCount())
	return nil
}

func (c *Console) unload(_ context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("usage: unload <name>")
	}
	if err := c.app.Loader().Unload(name); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "unloaded %s\n", name)
	return nil
}

func (c *Console) plugin(_ context.Context, args string) error {
	name, path, _ := strings.Cut(args, " ")
	path = strings.TrimSpace(path)
	if name == "" || path == "" {
		return fmt.Errorf("usage: plugin <name> <manifest>")
	}
	if err := c.app.EnablePlugin(name, filepath.Clean(path)); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "plugin %s enabled, %d event types known\n", name, c.app.Registry().Len())
	return nil
}

func (c *Console) stats(ctx context.Context, _ string) error {
	st := c.app.Bus().Stats()
	fmt.Fprintf(c.out, "events called:     %d\n", st.EventsCalled)
	fmt.Fprintf(c.out, "handlers executed: %d\n", st.HandlersExecuted)
	fmt.Fprintf(c.out, "handlers skipped:  %d\n", st.HandlersSkipped)
	fmt.Fprintf(c.out, "handler errors:    %d\n", st.HandlerErrors)
	fmt.Fprintf(c.out, "handler panics:    %d\n", st.HandlerPanics)

	ds := c.app.Bus().DispatchStats()
	fmt.Fprintf(c.out, "dispatched:        %d (ok %d, failed %d, panicked %d, skipped %d)\n",
		ds.Dispatched, ds.Succeeded, ds.Failed, ds.Panicked, ds.Skipped)
	fmt.Fprintf(c.out, "dispatch time:     total %s, avg %s\n", ds.TotalDuration, ds.AvgDuration)

	collector := c.app.Collector()
	if collector == nil {
		return nil
	}
	samples, err := collector.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, s := range samples {
		attrs := ""
		if s.Attributes != "" {
			attrs = "{" + s.Attributes + "}"
		}
		if s.Count > 0 {
			fmt.Fprintf(c.out, "%s%s count=%d sum=%g\n", s.Name, attrs, s.Count, s.Value)
			continue
		}
		fmt.Fprintf(c.out, "%s%s %g\n", s.Name, attrs, s.Value)
	}
	return nil
}

// Completer completes command names, event names and script names.
func (c *Console) Completer() readline.AutoCompleter {
	eventNames := func(string) []string { return c.app.Registry().Names() }
	scriptNames := func(string) []string { return c.app.Loader().Sessions() }

	items := make([]readline.PrefixCompleterInterface, 0, len(commandOrder)+2)
	items = append(items, readline.PcItem("help"))
	for _, name := range commandOrder {
		switch name {
		case "fire":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(eventNames)))
		case "unload":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(scriptNames)))
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	items = append(items, readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}
