package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/event/events"
	"github.com/dshills/eventscript/internal/observability"
)

// Default module names.
const (
	// HostModule is the catalog name of the host's bundled events.
	HostModule = "host"

	// ExtensionModule is the catalog name of the extension's events.
	ExtensionModule = "ext"
)

// Registry maps event names to event types.
// It is safe for concurrent use.
type Registry struct {
	catalog *Catalog
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	hostModule      string
	extensionModule string
	marker          string
	filters         []Filter

	mu        sync.RWMutex
	byName    map[string]*event.Type
	qualified map[string]*event.Type
	scanned   map[string]bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithHostModule sets the catalog name of the host module.
func WithHostModule(name string) Option {
	return func(r *Registry) {
		r.hostModule = name
	}
}

// WithExtension sets the catalog name of the extension module and the
// qualified name of the marker type gating its scan.
func WithExtension(module, marker string) Option {
	return func(r *Registry) {
		r.extensionModule = module
		r.marker = marker
	}
}

// WithFilters replaces the filters applied to scanned types.
func WithFilters(filters ...Filter) Option {
	return func(r *Registry) {
		r.filters = filters
	}
}

// New creates a registry over the modules of catalog.
func New(catalog *Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog:         catalog,
		logger:          observability.Discard(),
		metrics:         observability.NoopMetrics{},
		hostModule:      HostModule,
		extensionModule: ExtensionModule,
		marker:          events.ExtensionMarker,
		filters:         DefaultFilters,
		byName:          make(map[string]*event.Type),
		qualified:       make(map[string]*event.Type),
		scanned:         make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = observability.Component(r.logger, "taxonomy")
	return r
}

// Initialize scans the host module and, when the marker type is known to
// the catalog, the extension module. Modules already scanned are not
// scanned again.
func (r *Registry) Initialize() error {
	host, ok := r.catalog.Module(r.hostModule)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, r.hostModule)
	}
	if _, err := r.scanOnce(host, HostPattern); err != nil {
		return err
	}

	if _, ok := r.catalog.LookupType(r.marker); !ok {
		r.logger.Debug("extension marker not found, skipping extension scan",
			slog.String("marker", r.marker))
		return nil
	}
	ext, ok := r.catalog.Module(r.extensionModule)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, r.extensionModule)
	}
	_, err := r.scanOnce(ext, ExtensionPattern)
	return err
}

// InitializePlugin scans the catalog module name. It returns false if the
// module was already scanned or is not in the catalog.
func (r *Registry) InitializePlugin(name string) (bool, error) {
	m, ok := r.catalog.Module(name)
	if !ok {
		return false, nil
	}
	return r.scanOnce(m, AnyPattern)
}

// InitializeModule scans m whether or not it is in the catalog. It returns
// false if a module of the same name was already scanned.
func (r *Registry) InitializeModule(m Module) (bool, error) {
	if m == nil {
		return false, nil
	}
	return r.scanOnce(m, AnyPattern)
}

func (r *Registry) scanOnce(m Module, pattern Pattern) (bool, error) {
	name := m.Name()

	r.mu.RLock()
	done := r.scanned[name]
	r.mu.RUnlock()
	if done {
		return false, nil
	}

	types, err := m.Open()
	if err != nil {
		return false, &ModuleError{Module: name, Err: err}
	}
	r.catalog.Provide(types...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scanned[name] {
		return false, nil
	}
	r.scanned[name] = true

	added := 0
	for _, t := range types {
		if t == nil {
			continue
		}
		if !pattern.Matches(t.Name()) || !Eligible(t, r.filters...) {
			r.logger.Debug("skipping type",
				slog.String(observability.KeyModule, name),
				slog.String("type", t.Name()))
			continue
		}
		if r.add(t) {
			added++
		}
	}

	r.metrics.RecordTypesDiscovered(context.Background(), name, added)
	r.logger.Info("scanned event module",
		slog.String(observability.KeyModule, name),
		slog.String("pattern", string(pattern)),
		slog.Int("types", added))
	return true, nil
}

// add must be called with the write lock held.
func (r *Registry) add(t *event.Type) bool {
	if _, exists := r.qualified[t.Name()]; !exists {
		r.qualified[t.Name()] = t
	}

	simple := t.SimpleName()
	if existing, exists := r.byName[simple]; exists {
		if existing != t {
			r.logger.Warn("event name already taken, keeping first",
				slog.String(observability.KeyEvent, simple),
				slog.String("kept", existing.Name()),
				slog.String("ignored", t.Name()))
		}
		return false
	}
	r.byName[simple] = t
	return true
}

// Resolve returns the type registered under name. Simple names are tried
// first, then qualified names.
func (r *Registry) Resolve(name string) (*event.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.byName[name]; ok {
		return t, nil
	}
	if t, ok := r.qualified[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// IsKnown reports whether name resolves.
func (r *Registry) IsKnown(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// Names returns the registered simple names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Types returns the registered types ordered by simple name.
func (r *Registry) Types() []*event.Type {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]*event.Type, 0, len(names))
	for _, name := range names {
		if t, ok := r.byName[name]; ok {
			types = append(types, t)
		}
	}
	return types
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Scanned reports whether the module name has been scanned.
func (r *Registry) Scanned(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scanned[name]
}

// Endpoint returns the handler list events of type t are delivered
// through: the one t declares, else the nearest one declared by an ancestor.
func (r *Registry) Endpoint(t *event.Type) (*event.HandlerList, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrMisconfiguredType)
	}
	list, ok := t.HandlerList()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMisconfiguredType, t.Name())
	}
	return list, nil
}
