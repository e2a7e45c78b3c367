package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/eventscript/internal/config/loader"
	"github.com/dshills/eventscript/internal/event/events"
	"github.com/dshills/eventscript/internal/observability"
)

// DefaultFile is the configuration file read when no path is given.
const DefaultFile = "eventscript.toml"

// Config is the resolved host configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Scripts  ScriptsConfig  `toml:"scripts"`
	Plugins  PluginsConfig  `toml:"plugins"`
	Taxonomy TaxonomyConfig `toml:"taxonomy"`
	Lua      LuaConfig      `toml:"lua"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// ScriptsConfig configures the script loader.
type ScriptsConfig struct {
	// Dir is the script root. It is created at startup if missing.
	Dir string `toml:"dir"`

	// Extensions lists accepted file extensions, dot included.
	Extensions []string `toml:"extensions"`
}

// PluginsConfig configures plugin event manifests.
type PluginsConfig struct {
	// Dir holds plugin manifests. Empty disables plugin discovery.
	Dir string `toml:"dir"`
}

// TaxonomyConfig configures event type discovery.
type TaxonomyConfig struct {
	// Extension enables the extension event module.
	Extension bool `toml:"extension"`

	// ExtensionMarker is the type whose presence activates the extension
	// scan.
	ExtensionMarker string `toml:"extensionMarker"`
}

// LuaConfig configures script engines.
type LuaConfig struct {
	// Timeout bounds each script invocation, as a Go duration. "0"
	// disables it.
	Timeout string `toml:"timeout"`

	// Unsafe opens the io and os libraries.
	Unsafe bool `toml:"unsafe"`
}

// MetricsConfig configures OpenTelemetry metrics.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Scripts: ScriptsConfig{Dir: "scripts", Extensions: []string{".lua"}},
		Plugins: PluginsConfig{Dir: "plugins"},
		Taxonomy: TaxonomyConfig{
			Extension:       true,
			ExtensionMarker: events.ExtensionMarker,
		},
		Lua:     LuaConfig{Timeout: "5s"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Options controls where Load reads from.
type Options struct {
	// Path is the TOML file. Empty means DefaultFile; a missing file is
	// not an error.
	Path string

	// FS reads Path. Nil means the OS file system.
	FS loader.FileSystem

	// Environ overrides the process environment, as KEY=VALUE pairs.
	Environ []string

	// SkipEnv disables environment overrides.
	SkipEnv bool
}

// Load resolves the configuration from defaults, the TOML file and the
// environment, then validates it.
func Load(opts Options) (*Config, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}
	path := opts.Path
	if path == "" {
		path = DefaultFile
	}

	raw, err := loader.NewTOMLLoaderWithFS(fsys, path).Load()
	if err != nil {
		return nil, err
	}

	if !opts.SkipEnv {
		env := loader.NewEnvLoader(loader.DefaultPrefix)
		if opts.Environ != nil {
			env = loader.NewEnvLoaderFrom(loader.DefaultPrefix, opts.Environ)
		}
		overrides, err := env.Load()
		if err != nil {
			return nil, err
		}
		raw = loader.DeepMerge(raw, overrides)
	}

	cfg, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a TOML document over the defaults without environment
// overrides.
func Parse(r io.Reader) (*Config, error) {
	raw, err := loader.NewTOMLLoader("").LoadFromReader(r)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies raw over the defaults. Keys not present keep their
// default values.
func decode(raw map[string]any) (*Config, error) {
	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}

	data, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format: unknown format %q", ErrInvalidConfig, c.Logging.Format)
	}

	if strings.TrimSpace(c.Scripts.Dir) == "" {
		return fmt.Errorf("%w: scripts.dir is empty", ErrInvalidConfig)
	}
	for _, ext := range c.Scripts.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%w: scripts.extensions: %q must start with a dot", ErrInvalidConfig, ext)
		}
	}

	if c.Taxonomy.Extension && c.Taxonomy.ExtensionMarker == "" {
		return fmt.Errorf("%w: taxonomy.extensionMarker is empty", ErrInvalidConfig)
	}

	if _, err := c.Lua.ExecutionTimeout(); err != nil {
		return err
	}
	return nil
}

// ExecutionTimeout parses Timeout. An empty value means zero.
func (l LuaConfig) ExecutionTimeout() (time.Duration, error) {
	if l.Timeout == "" || l.Timeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: lua.timeout: %w", ErrInvalidConfig, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: lua.timeout is negative", ErrInvalidConfig)
	}
	return d, nil
}

// LoggerOptions returns the logging section as observability options.
func (c *Config) LoggerOptions() observability.LoggerOptions {
	return observability.LoggerOptions{Level: c.Logging.Level, Format: c.Logging.Format}
}
