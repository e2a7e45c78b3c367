package taxonomy

import (
	"slices"

	"github.com/dshills/eventscript/internal/event"
)

// Module is a named source of event types.
type Module interface {
	// Name identifies the module in the catalog.
	Name() string

	// Open returns the module's types. An error means the module could not
	// be read at all and aborts the scan.
	Open() ([]*event.Type, error)
}

// StaticModule is a module whose types are defined in Go.
type StaticModule struct {
	name  string
	types []*event.Type
}

// NewStaticModule creates a module serving types.
func NewStaticModule(name string, types ...*event.Type) *StaticModule {
	return &StaticModule{name: name, types: types}
}

// Name returns the module name.
func (m *StaticModule) Name() string { return m.name }

// Open returns the module's types.
func (m *StaticModule) Open() ([]*event.Type, error) {
	return slices.Clone(m.types), nil
}
