package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/hdrbind/internal/codegen/common"
)

const colorHeader = "typedef enum color_t { color_CORNFLOWER_BLUE, color_RED } color_t;\n"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func writeHeader(t *testing.T, dir, src string) string {
	t.Helper()
	path := filepath.Join(dir, "example.h")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func defaultOptions(header, root string) BindOptions {
	return BindOptions{
		Header:        header,
		Lang:          "rust",
		Root:          root,
		AllowlistType: []string{"color_t"},
		EnumStyle:     "rust_non_exhaustive",
		Serialization: true,
		SerdeFeature:  "serde",
		SerializeAll:  "SCREAMING_SNAKE_CASE",
		Package:       "bindings",
	}
}

func TestGenerateRust(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, colorHeader)

	var stdout bytes.Buffer
	g := &Generate{BindOptions: defaultOptions(header, dir), Cargo: true}
	require.NoError(t, g.Execute(t.Context(), discard(), &stdout))

	data, err := os.ReadFile(filepath.Join(dir, "src", "bindings.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "#[repr(u32)]\n#[non_exhaustive]\n")
	assert.Contains(t, string(data), "pub enum Color {\n    CornflowerBlue = 0,\n    Red = 1,\n}")
	assert.Contains(t, string(data), `#[cfg_attr(feature = "serde", derive(serde::Deserialize, serde::Serialize))]`)
	assert.Equal(t, "cargo:rerun-if-changed="+header+"\n", stdout.String())
}

func TestGenerateGoNoSerialization(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, colorHeader)

	opts := defaultOptions(header, dir)
	opts.Lang = "go"
	opts.Output = "color/color.go"
	opts.Package = "color"
	opts.Serialization = false
	g := &Generate{BindOptions: opts}
	var stdout bytes.Buffer
	require.NoError(t, g.Execute(t.Context(), discard(), &stdout))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(filepath.Join(dir, "color", "color.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package color\n")
	assert.Contains(t, string(data), "ColorCornflowerBlue Color = 0")
	assert.NotContains(t, string(data), "MarshalText")
}

func TestGenerateErrors(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, colorHeader)

	tests := []struct {
		name   string
		modify func(*BindOptions)
	}{
		{"missing header", func(o *BindOptions) { o.Header = filepath.Join(dir, "missing.h") }},
		{"unknown type", func(o *BindOptions) { o.AllowlistType = []string{"shape_t"} }},
		{"bad case", func(o *BindOptions) { o.SerializeAll = "Title Case" }},
		{"bad style", func(o *BindOptions) { o.EnumStyle = "bitflags" }},
		{"bad language", func(o *BindOptions) { o.Lang = "cobol" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := defaultOptions(header, dir)
			tt.modify(&opts)
			g := &Generate{BindOptions: opts}
			assert.Error(t, g.Execute(t.Context(), discard(), &bytes.Buffer{}))
		})
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, colorHeader)
	opts := defaultOptions(header, dir)

	c := &Check{BindOptions: opts}
	assert.ErrorIs(t, c.Run(discard()), common.ErrStale)

	g := &Generate{BindOptions: opts}
	require.NoError(t, g.Execute(t.Context(), discard(), &bytes.Buffer{}))
	assert.NoError(t, c.Run(discard()))

	writeHeader(t, dir, "typedef enum color_t { color_RED } color_t;\n")
	assert.ErrorIs(t, c.Run(discard()), common.ErrStale)
}

func TestRustExampleUpToDate(t *testing.T) {
	root := filepath.Join("..", "..", "examples", "rust", "color")
	opts := defaultOptions(filepath.Join(root, "color.h"), root)
	c := &Check{BindOptions: opts}
	require.NoError(t, c.Run(discard()), "examples/rust/color/src/bindings.rs is stale")

	buildScript, err := os.ReadFile(filepath.Join(root, "build.rs"))
	require.NoError(t, err)
	assert.Contains(t, string(buildScript), `println!("cargo:rerun-if-changed=build.rs");`)
}

func TestScanFormats(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, "#define COUNT 3\n"+colorHeader+"struct point { int x, y; };\n")

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		s := &Scan{Header: header, Format: "json"}
		require.NoError(t, s.Execute(discard(), &out))

		var res struct {
			Path    string `json:"path"`
			Defines []struct {
				Name  string `json:"name"`
				Value int64  `json:"value"`
			} `json:"defines"`
			Decls []struct {
				Kind string         `json:"kind"`
				Decl map[string]any `json:"decl"`
			} `json:"decls"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, header, res.Path)
		require.Len(t, res.Defines, 1)
		assert.Equal(t, "COUNT", res.Defines[0].Name)
		assert.Equal(t, int64(3), res.Defines[0].Value)
		require.Len(t, res.Decls, 2)
		assert.Equal(t, "enum", res.Decls[0].Kind)
		assert.Equal(t, "color_t", res.Decls[0].Decl["tag"])
		assert.Equal(t, "struct", res.Decls[1].Kind)
	})

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		s := &Scan{Header: header, Format: "yaml"}
		require.NoError(t, s.Execute(discard(), &out))

		var res map[string]any
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &res))
		assert.Equal(t, header, res["path"])
		assert.Len(t, res["decls"], 2)
	})

	t.Run("pretty", func(t *testing.T) {
		var out bytes.Buffer
		s := &Scan{Header: header, Format: "pretty"}
		require.NoError(t, s.Execute(discard(), &out))
		assert.Contains(t, out.String(), "cheader.Enum{")
		assert.Contains(t, out.String(), `"color_CORNFLOWER_BLUE"`)
	})

	t.Run("syntax error", func(t *testing.T) {
		bad := writeHeader(t, t.TempDir(), "enum e { A = };\n")
		s := &Scan{Header: bad, Format: "json"}
		assert.Error(t, s.Execute(discard(), &bytes.Buffer{}))
	})
}

func TestWatchRegenerates(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, colorHeader)

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, discard(), header, 10*time.Millisecond, func() error {
			calls.Add(1)
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		_ = os.WriteFile(header, []byte(colorHeader), 0o644)
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	header := writeHeader(t, dir, colorHeader)

	var calls atomic.Int32
	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "other.h"), []byte("int x;\n"), 0o644)
	}()
	require.NoError(t, watchFile(ctx, discard(), header, 10*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	}))
	assert.Zero(t, calls.Load())
}

func TestBuildMapFromStruct(t *testing.T) {
	m := buildMapFromStruct(reflect.TypeOf(Generate{}), snakeKeys)

	assert.Equal(t, "example.h", m["header"])
	assert.Equal(t, "rust", m["lang"])
	assert.Equal(t, []string{"color_t"}, m["allowlist_type"])
	assert.Equal(t, []string{}, m["allowlist_var"])
	assert.Equal(t, true, m["serialization"])
	assert.Equal(t, "SCREAMING_SNAKE_CASE", m["serialize_all"])
	assert.Equal(t, "rust_non_exhaustive", m["enum_style"])
	assert.Equal(t, "200ms", m["debounce"])
	assert.Equal(t, false, m["watch"])
	assert.NotContains(t, m, "bind_options")

	k := buildMapFromStruct(reflect.TypeOf(Generate{}), kebabKeys)
	assert.Equal(t, []string{"color_t"}, k["allowlist-type"])
	assert.Equal(t, "serde", k["serde-feature"])
	assert.NotContains(t, k, "allowlist_type")
}

func TestConfigTemplateLayout(t *testing.T) {
	gen := reflect.TypeOf(Generate{})

	flat := configTemplate("json", "generate", gen)
	assert.Contains(t, flat, "clang_args")

	nested := configTemplate("yaml", "generate", gen)
	require.Len(t, nested, 1)
	sub, ok := nested["generate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rust", sub["lang"])
	assert.Contains(t, sub, "clang-args")

	assert.Contains(t, configTemplate("toml", "generate", gen), "clang-args")
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		dest := filepath.Join(dir, "hdrbind.json")
		c := &ConfigInit{Command: "generate", Format: "json", Output: dest}
		require.NoError(t, c.Run(discard()))

		var m map[string]any
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, "example.h", m["header"])
		assert.Equal(t, []any{"color_t"}, m["allowlist_type"])

		assert.Error(t, c.Run(discard()), "exists without --force")
		c.Force = true
		assert.NoError(t, c.Run(discard()))
	})

	t.Run("toml", func(t *testing.T) {
		dest := filepath.Join(dir, "nested", "scan.toml")
		c := &ConfigInit{Command: "scan", Format: "toml", Output: dest}
		require.NoError(t, c.Run(discard()))

		tree, err := toml.LoadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "json", tree.Get("format"))
		assert.Equal(t, "example.h", tree.Get("header"))
		assert.Equal(t, "", tree.Get("clang-args"))
	})

	t.Run("yaml", func(t *testing.T) {
		dest := filepath.Join(dir, "check.yml")
		c := &ConfigInit{Command: "check", Format: "yml", Output: dest}
		require.NoError(t, c.Run(discard()))

		var m map[string]any
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		require.NoError(t, yaml.Unmarshal(data, &m))
		check, ok := m["check"].(map[string]any)
		require.True(t, ok, "flags nest under the command")
		assert.Equal(t, "serde", check["serde-feature"])
	})

	t.Run("bad format", func(t *testing.T) {
		c := &ConfigInit{Command: "generate", Format: "ini"}
		assert.Error(t, c.Run(discard()))
	})
}
