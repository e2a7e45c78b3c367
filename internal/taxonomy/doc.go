// Package taxonomy maps event names to host event types.
//
// Event types are provided by modules. The host's bundled events, the
// optional extension and every plugin each expose their types through a
// Module, either defined in Go (StaticModule) or declared in a YAML
// manifest (ManifestModule). A Catalog holds the available modules.
//
// The Registry scans modules and builds the name table:
//
//	reg := taxonomy.New(catalog, taxonomy.WithLogger(logger))
//	if err := reg.Initialize(); err != nil {
//	    return err
//	}
//	t, err := reg.Resolve("PlayerJoinEvent")
//
// Initialize scans the host module for types under host.event.** and, when
// the extension's marker type is present in the catalog, the extension
// module for types under ext.event.**. Plugin modules are scanned on demand
// with InitializePlugin.
//
// A scan keeps a type only if it descends from event.Root, is public and is
// not abstract. Other entries are skipped without error. Names are simple
// type names; the first type registered under a name keeps it.
//
// Endpoint returns the handler list a type delivers through: its own, or
// the nearest one declared by an ancestor.
package taxonomy
