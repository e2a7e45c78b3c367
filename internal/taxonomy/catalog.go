package taxonomy

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/eventscript/internal/event"
)

// Catalog holds the modules available for scanning and an index of known
// type descriptors by qualified name.
//
// The type index answers marker probes and manifest parent lookups. It is
// independent of the taxonomy: a type can be known to the catalog without
// ever being scanned.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]Module
	order   []string
	types   map[string]*event.Type
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		modules: make(map[string]Module),
		types:   make(map[string]*event.Type),
	}
}

// Register adds a module.
func (c *Catalog) Register(m Module) error {
	if m == nil {
		return fmt.Errorf("%w: nil module", ErrModuleNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := m.Name()
	if _, exists := c.modules[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
	}
	c.modules[name] = m
	c.order = append(c.order, name)
	return nil
}

// Module returns the module registered under name.
func (c *Catalog) Module(name string) (Module, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[name]
	return m, ok
}

// Modules returns the module names in registration order.
func (c *Catalog) Modules() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}

// Provide indexes type descriptors by qualified name. An existing entry is
// kept.
func (c *Catalog) Provide(types ...*event.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range types {
		if t == nil {
			continue
		}
		if _, exists := c.types[t.Name()]; !exists {
			c.types[t.Name()] = t
		}
	}
}

// LookupType returns the type indexed under the qualified name.
func (c *Catalog) LookupType(qualified string) (*event.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[qualified]
	return t, ok
}
