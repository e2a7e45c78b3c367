// Package config loads the host configuration.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML file, eventscript.toml by default
//  3. Environment variables prefixed with EVENTSCRIPT_
//
// Environment names map to section.setting paths: EVENTSCRIPT_LUA_UNSAFE
// sets lua.unsafe and EVENTSCRIPT_METRICS_ENABLED sets metrics.enabled.
// Values are converted to booleans, numbers or JSON arrays where they parse
// as such.
//
// # Example
//
//	[logging]
//	level = "debug"
//	format = "json"
//
//	[scripts]
//	dir = "scripts"
//	extensions = [".lua"]
//
//	[plugins]
//	dir = "plugins"
//
//	[taxonomy]
//	extension = true
//
//	[lua]
//	timeout = "2s"
//
//	[metrics]
//	enabled = true
package config
