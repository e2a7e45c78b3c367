// Package main is the entry point of the event scripting host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/dshills/eventscript/internal/app"
	"github.com/dshills/eventscript/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	scriptsDir string
	pluginsDir string
	logLevel   string
	fire       string
	payload    string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, exit, ok := parseFlags()
	if !ok {
		return exit
	}

	cfg, err := config.Load(config.Options{Path: opts.configPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if opts.scriptsDir != "" {
		cfg.Scripts.Dir = opts.scriptsDir
	}
	if opts.pluginsDir != "" {
		cfg.Plugins.Dir = opts.pluginsDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	application, err := app.New(app.Options{Config: cfg})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure cleanup on all exit paths
	defer func() { _ = application.Shutdown(context.Background()) }()

	if err := application.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start: %v\n", err)
		return 1
	}

	console := NewConsole(application, os.Stdout)

	if opts.fire != "" {
		if err := console.Fire(ctx, opts.fire, opts.payload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := interactive(ctx, console); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// interactive runs the console until quit, EOF or a signal.
func interactive(ctx context.Context, console *Console) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "eventscript> ",
		AutoComplete:    console.Completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	console.SetOutput(rl.Stdout())
	console.Help()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		quit, err := console.Exec(ctx, line)
		if err != nil {
			console.Errorf("%v", err)
		}
		if quit {
			return nil
		}
	}
}

func parseFlags() (options, int, bool) {
	var opts options
	var showVersion bool

	defaultConfig := os.Getenv("EVENTSCRIPT_CONFIG")

	flag.StringVar(&opts.configPath, "config", defaultConfig, "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", defaultConfig, "Path to configuration file (shorthand)")
	flag.StringVar(&opts.scriptsDir, "scripts", "", "Script directory (overrides scripts.dir)")
	flag.StringVar(&opts.pluginsDir, "plugins", "", "Plugin manifest directory (overrides plugins.dir)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.fire, "fire", "", "Fire one event by name and exit")
	flag.StringVar(&opts.payload, "payload", "", "JSON object of event fields for -fire")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "eventscript - Lua scripting for host events\n\n")
		fmt.Fprintf(os.Stderr, "Usage: eventscript [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  eventscript                                   Start the console\n")
		fmt.Fprintf(os.Stderr, "  eventscript -scripts ./scripts                Load scripts from ./scripts\n")
		fmt.Fprintf(os.Stderr, "  eventscript -fire PlayerJoinEvent -payload '{\"player\":\"alice\"}'\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("eventscript %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return opts, 0, false
	}

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		flag.Usage()
		return opts, 2, false
	}
	if opts.payload != "" && opts.fire == "" {
		fmt.Fprintf(os.Stderr, "Error: -payload requires -fire\n")
		return opts, 2, false
	}

	return opts, 0, true
}
