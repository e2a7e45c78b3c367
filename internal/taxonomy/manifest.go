package taxonomy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/dshills/eventscript/internal/event"
)

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "events.yaml"

// manifestSchema is the JSON schema every event manifest must satisfy.
const manifestSchema = `{
  "type": "object",
  "required": ["events"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string"},
    "description": {"type": "string"},
    "events": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_]*(\\.[A-Za-z_][A-Za-z0-9_]*)*$"},
          "parent": {"type": "string", "minLength": 1},
          "abstract": {"type": "boolean"},
          "internal": {"type": "boolean"},
          "handlerList": {"type": "boolean"},
          "fields": {"type": "object"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchema))
		if err != nil {
			errSchema = fmt.Errorf("parse manifest schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.json", doc); err != nil {
			errSchema = fmt.Errorf("add manifest schema: %w", err)
			return
		}
		compiledSchema, errSchema = c.Compile("manifest.json")
	})
	return compiledSchema, errSchema
}

// Manifest declares the event types of a plugin.
type Manifest struct {
	Version     string      `yaml:"version"`
	Description string      `yaml:"description"`
	Events      []EventSpec `yaml:"events"`
}

// EventSpec declares one event type.
type EventSpec struct {
	// Name is the qualified type name.
	Name string `yaml:"name"`

	// Parent is the qualified name of the supertype. It may name a type
	// declared earlier in the same manifest or any type known to the
	// catalog. Empty means event.Root.
	Parent string `yaml:"parent"`

	Abstract    bool `yaml:"abstract"`
	Internal    bool `yaml:"internal"`
	HandlerList bool `yaml:"handlerList"`

	// Fields holds the default field values of new events.
	Fields map[string]any `yaml:"fields"`
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	// The validator works on JSON values; round-trip the YAML document.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return &m, nil
}

// TypeLookup resolves a qualified type name.
type TypeLookup func(qualified string) (*event.Type, bool)

// ManifestModule is a module backed by a YAML manifest file. Its events
// are event.Dynamic values.
//
// The manifest is read on the first successful Open; later calls return the
// same descriptors so type identity is stable.
type ManifestModule struct {
	name   string
	path   string
	lookup TypeLookup

	mu       sync.Mutex
	manifest *Manifest
	types    []*event.Type
}

// NewManifestModule creates a module for the manifest at path. lookup
// resolves parent names that the manifest does not declare itself; it may be
// nil.
func NewManifestModule(name, path string, lookup TypeLookup) *ManifestModule {
	return &ManifestModule{name: name, path: path, lookup: lookup}
}

// Name returns the module name.
func (m *ManifestModule) Name() string { return m.name }

// Path returns the manifest path.
func (m *ManifestModule) Path() string { return m.path }

// Manifest returns the parsed manifest, or nil before the first Open.
func (m *ManifestModule) Manifest() *Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest
}

// Open reads the manifest and builds its types. Declarations whose parent
// cannot be resolved are skipped.
func (m *ManifestModule) Open() ([]*event.Type, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.manifest != nil {
		return slices.Clone(m.types), nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]*event.Type, len(manifest.Events))
	types := make([]*event.Type, 0, len(manifest.Events))
	for _, spec := range manifest.Events {
		if _, dup := declared[spec.Name]; dup {
			continue
		}
		parent, ok := m.resolveParent(spec.Parent, declared)
		if !ok {
			continue
		}
		t := newManifestType(m.name, spec, parent)
		declared[spec.Name] = t
		types = append(types, t)
	}

	m.manifest = manifest
	m.types = types
	return slices.Clone(types), nil
}

func (m *ManifestModule) resolveParent(name string, declared map[string]*event.Type) (*event.Type, bool) {
	if name == "" {
		return event.Root, true
	}
	if t, ok := declared[name]; ok {
		return t, true
	}
	if m.lookup != nil {
		return m.lookup(name)
	}
	return nil, false
}

func newManifestType(source string, spec EventSpec, parent *event.Type) *event.Type {
	defaults := maps.Clone(spec.Fields)

	opts := []event.TypeOption{
		event.WithFactory(func(t *event.Type) event.Event {
			ev := event.NewDynamic(t, source)
			for k, v := range defaults {
				ev.Set(k, v)
			}
			return ev
		}),
	}
	if spec.Abstract {
		opts = append(opts, event.Abstract())
	}
	if spec.Internal {
		opts = append(opts, event.Internal())
	}
	if spec.HandlerList {
		opts = append(opts, event.WithHandlerList())
	}
	return event.NewType(spec.Name, parent, opts...)
}

// DiscoverManifests finds plugin manifests in dir. A plugin is either a
// subdirectory holding ManifestFile, named after the directory, or a
// top-level .yaml/.yml file, named after the file. A missing dir yields no
// modules.
func DiscoverManifests(dir string, lookup TypeLookup) ([]*ManifestModule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]bool)
	var modules []*ManifestModule
	add := func(name, path string) {
		if seen[name] {
			return
		}
		seen[name] = true
		modules = append(modules, NewManifestModule(name, path, lookup))
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			manifest := filepath.Join(path, ManifestFile)
			if info, err := os.Stat(manifest); err == nil && info.Mode().IsRegular() {
				add(entry.Name(), manifest)
			}
			continue
		}
		switch ext := filepath.Ext(entry.Name()); ext {
		case ".yaml", ".yml":
			add(strings.TrimSuffix(entry.Name(), ext), path)
		}
	}

	slices.SortFunc(modules, func(a, b *ManifestModule) int {
		return strings.Compare(a.name, b.name)
	})
	return modules, nil
}
