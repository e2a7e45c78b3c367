package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/observability"
	slua "github.com/dshills/eventscript/internal/script/lua"
)

// DefaultExtensions are the script file extensions loaded by default.
var DefaultExtensions = []string{".lua"}

// Loader loads script files and tracks their sessions by name.
// It is safe for concurrent use.
type Loader struct {
	resolver   Resolver
	bus        event.Bus
	root       *slog.Logger
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	extensions []string
	stateOpts  []slua.StateOption

	mu      sync.Mutex
	scripts map[string]*loadedScript
}

type loadedScript struct {
	session *Session
	state   *slua.State
	path    string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) LoaderOption {
	return func(l *Loader) {
		if m != nil {
			l.metrics = m
		}
	}
}

// WithBus sets the bus every session registers its listeners through.
func WithBus(bus event.Bus) LoaderOption {
	return func(l *Loader) {
		l.bus = bus
	}
}

// WithExtensions sets the accepted file extensions, dot included. An empty
// list accepts every file.
func WithExtensions(exts ...string) LoaderOption {
	return func(l *Loader) {
		l.extensions = exts
	}
}

// WithStateOptions sets options for every engine the loader creates.
func WithStateOptions(opts ...slua.StateOption) LoaderOption {
	return func(l *Loader) {
		l.stateOpts = opts
	}
}

// NewLoader creates a loader whose sessions resolve events with resolver.
func NewLoader(resolver Resolver, opts ...LoaderOption) *Loader {
	l := &Loader{
		resolver:   resolver,
		logger:     observability.Discard(),
		metrics:    observability.NoopMetrics{},
		extensions: DefaultExtensions,
		scripts:    make(map[string]*loadedScript),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.root = l.logger
	l.logger = observability.Component(l.logger, "loader")
	return l
}

// Load walks dir and loads every accepted regular file. A script's name is
// its path relative to dir without the extension, using forward slashes.
// Files that fail to load are logged and skipped. It returns the number of
// scripts loaded; an error means dir itself could not be walked.
func (l *Loader) Load(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("load scripts: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("load scripts: %s is not a directory", dir)
	}

	loaded := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			l.logger.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if !d.Type().IsRegular() || !l.accepts(path) {
			return nil
		}

		name, err := scriptName(dir, path)
		if err != nil {
			l.logger.Warn("skipping script", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if _, err := l.load(name, path); err == nil {
			loaded++
		}
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("load scripts: %w", err)
	}

	l.logger.Info("scripts loaded", slog.String("dir", dir), slog.Int("count", loaded))
	return loaded, nil
}

// LoadFile loads one script, named after its file name without the
// extension.
func (l *Loader) LoadFile(path string) (*Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	base := filepath.Base(path)
	return l.load(strings.TrimSuffix(base, filepath.Ext(base)), path)
}

func (l *Loader) load(name, path string) (*Session, error) {
	logger := observability.ScriptLogger(observability.Component(l.root, "script"), name)

	l.mu.Lock()
	_, exists := l.scripts[name]
	l.mu.Unlock()
	if exists {
		err := fmt.Errorf("%w: %s", ErrDuplicateScript, name)
		logger.Warn("script name already loaded, skipping", slog.String("path", path))
		l.metrics.RecordScriptLoad(context.Background(), name, err)
		return nil, err
	}

	opts := append(slices.Clone(l.stateOpts), slua.WithPrint(func(msg string) {
		logger.Info(msg)
	}))
	state, err := slua.NewState(opts...)
	if err != nil {
		logger.Error("could not create script engine", slog.Any("error", err))
		l.metrics.RecordScriptLoad(context.Background(), name, err)
		return nil, err
	}

	session := NewSession(name, state, l.resolver,
		WithSessionLogger(observability.Component(l.root, "script")),
		WithSessionMetrics(l.metrics),
		WithSessionBus(l.bus))
	session.Install(state)

	if err := state.DoFile(path); err != nil {
		logger.Error("could not load script", slog.String("path", path), slog.Any("error", err))
		session.Unload()
		_ = state.Close()
		l.metrics.RecordScriptLoad(context.Background(), name, err)
		return nil, err
	}

	l.mu.Lock()
	if _, exists := l.scripts[name]; exists {
		l.mu.Unlock()
		session.Unload()
		_ = state.Close()
		err := fmt.Errorf("%w: %s", ErrDuplicateScript, name)
		l.metrics.RecordScriptLoad(context.Background(), name, err)
		return nil, err
	}
	l.scripts[name] = &loadedScript{session: session, state: state, path: path}
	l.mu.Unlock()

	l.metrics.RecordScriptLoad(context.Background(), name, nil)
	logger.Info("script loaded",
		slog.String("path", path),
		slog.Int("listeners", session.ListenerCount()))
	return session, nil
}

// Unload unloads the script name and closes its engine.
func (l *Loader) Unload(name string) error {
	l.mu.Lock()
	s, ok := l.scripts[name]
	delete(l.scripts, name)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	l.release(name, s)
	return nil
}

// UnloadAll unloads every script and returns how many were unloaded.
func (l *Loader) UnloadAll() int {
	l.mu.Lock()
	scripts := l.scripts
	l.scripts = make(map[string]*loadedScript)
	l.mu.Unlock()

	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		l.release(name, scripts[name])
	}
	return len(names)
}

func (l *Loader) release(name string, s *loadedScript) {
	s.session.Unload()
	s.session.Sweep()
	if err := s.state.Close(); err != nil && !errors.Is(err, slua.ErrStateClosed) {
		l.logger.Warn("could not close script engine", slog.String("script", name), slog.Any("error", err))
	}
	l.logger.Info("script unloaded", slog.String(observability.KeyScript, name))
}

// Session returns the session of the script name.
func (l *Loader) Session(name string) (*Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.scripts[name]
	if !ok {
		return nil, false
	}
	return s.session, true
}

// Sessions returns the loaded script names in sorted order.
func (l *Loader) Sessions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.scripts))
	for name := range l.scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of loaded scripts.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.scripts)
}

func (l *Loader) accepts(path string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	return slices.Contains(l.extensions, filepath.Ext(path))
}

// scriptName derives a script name from its path below root.
func scriptName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel), nil
}
