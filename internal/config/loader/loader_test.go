package loader

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOMLLoader_Load(t *testing.T) {
	fsys := fstest.MapFS{"config.toml": {Data: []byte(`
[scripts]
dir = "scripts"
extensions = [".lua"]

[lua]
unsafe = true
`)}}

	config, err := NewTOMLLoaderWithFS(fsys, "config.toml").Load()
	require.NoError(t, err)

	scripts, ok := config["scripts"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scripts", scripts["dir"])
	assert.Equal(t, []any{".lua"}, scripts["extensions"])
	assert.Equal(t, map[string]any{"unsafe": true}, config["lua"])
}

func TestTOMLLoader_Missing(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(fstest.MapFS{}, "config.toml").Load()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestTOMLLoader_ParseError(t *testing.T) {
	_, err := NewTOMLLoader("").LoadFromReader(strings.NewReader("key = "))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "<reader>", perr.Path)
	assert.Contains(t, perr.Error(), "parse error in <reader>")
	assert.NotNil(t, perr.Unwrap())
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"logging": map[string]any{"level": "info", "format": "text"},
		"scripts": map[string]any{"dir": "scripts"},
	}
	src := map[string]any{
		"logging": map[string]any{"level": "debug"},
		"scripts": "replaced",
		"metrics": map[string]any{"enabled": false},
	}

	got := DeepMerge(dst, src)
	assert.Equal(t, map[string]any{
		"logging": map[string]any{"level": "debug", "format": "text"},
		"scripts": "replaced",
		"metrics": map[string]any{"enabled": false},
	}, got)

	assert.Equal(t, map[string]any{"a": 1}, DeepMerge(nil, map[string]any{"a": 1}))
}

func TestEnvLoader_Load(t *testing.T) {
	environ := []string{
		"EVENTSCRIPT_LOG_LEVEL=debug",
		"EVENTSCRIPT_PLUGINS=/srv/plugins",
		"EVENTSCRIPT_LUA_TIMEOUT=2s",
		"EVENTSCRIPT_LUA_EXECUTION_LIMIT=10",
		"EVENTSCRIPT_METRICS_ENABLED=off",
		"EVENTSCRIPT_SCRIPTS_EXTENSIONS=[\".lua\",\".luau\"]",
		"EVENTSCRIPT_NOSECTION=1",
		"EVENTSCRIPT_EMPTY_VALUE=",
		"PATH=/usr/bin",
		"malformed",
	}

	config, err := NewEnvLoaderFrom(DefaultPrefix, environ).Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"logging": map[string]any{"level": "debug"},
		"plugins": map[string]any{"dir": "/srv/plugins"},
		"lua":     map[string]any{"timeout": "2s", "executionLimit": int64(10)},
		"metrics": map[string]any{"enabled": false},
		"scripts": map[string]any{"extensions": []any{".lua", ".luau"}},
		"empty":   map[string]any{"value": ""},
	}, config)
}

func TestEnvLoader_AddMapping(t *testing.T) {
	l := NewEnvLoaderFrom("APP_", []string{"APP_DIR=/x"})
	l.AddMapping("APP_DIR", "scripts.dir")

	config, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"scripts": map[string]any{"dir": "/x"}}, config)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"No", false},
		{"42", int64(42)},
		{"1.5", 1.5},
		{".lua", ".lua"},
		{"2s", "2s"},
		{`{"a":1}`, map[string]any{"a": float64(1)}},
		{"[broken", "[broken"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}
