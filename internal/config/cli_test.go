package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
	toml "github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/hdrbind/internal/cmd"
)

func parse(t *testing.T, args []string, opts ...kong.Option) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	opts = append([]kong.Option{kong.Name("hdrbind"), kong.Exit(func(int) { t.Fatal("unexpected exit") })}, opts...)
	parser, err := kong.New(&cli, opts...)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestDefaults(t *testing.T) {
	cli, ctx := parse(t, []string{})
	assert.Equal(t, "generate", ctx.Command())
	assert.Equal(t, "example.h", cli.Generate.Header)
	assert.Equal(t, "rust", cli.Generate.Lang)
	assert.Equal(t, []string{"color_t"}, cli.Generate.AllowlistType)
	assert.True(t, cli.Generate.Serialization)
	assert.Equal(t, "serde", cli.Generate.SerdeFeature)
	assert.Equal(t, "SCREAMING_SNAKE_CASE", cli.Generate.SerializeAll)
	assert.Equal(t, "rust_non_exhaustive", cli.Generate.EnumStyle)
	assert.Equal(t, "info", cli.Log.Level)
	assert.Equal(t, "auto", cli.Log.Format)
	assert.False(t, cli.StdoutReserved("generate"))
}

func TestGenerateFlags(t *testing.T) {
	cli, ctx := parse(t, []string{
		"generate", "--lang=go", "--no-serialization", "--cargo",
		"--allowlist-type=pixel_t", "--allowlist-type=value_t",
		"--log.level=debug",
	})
	assert.Equal(t, "generate", ctx.Command())
	assert.Equal(t, "go", cli.Generate.Lang)
	assert.False(t, cli.Generate.Serialization)
	assert.Equal(t, []string{"pixel_t", "value_t"}, cli.Generate.AllowlistType)
	assert.Equal(t, "debug", cli.Log.Level)
	assert.True(t, cli.StdoutReserved("generate"))
}

func TestEnvironment(t *testing.T) {
	t.Setenv("CARGO_MANIFEST_DIR", "/work/crate")
	t.Setenv("HDRBIND_LANG", "go")
	cli, _ := parse(t, []string{"check"})
	assert.Equal(t, "/work/crate", cli.Check.Root)
	assert.Equal(t, "go", cli.Check.Lang)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hdrbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generate:\n  lang: go\n  header: include/api.h\nlog.level: warn\n"), 0o644))

	cli, _ := parse(t, []string{"generate"}, kong.Configuration(kongyaml.Loader, path))
	assert.Equal(t, "go", cli.Generate.Lang)
	assert.Equal(t, "include/api.h", cli.Generate.Header)
	assert.Equal(t, "warn", cli.Log.Level)

	cli, _ = parse(t, []string{"generate", "--lang=rust"}, kong.Configuration(kongyaml.Loader, path))
	assert.Equal(t, "rust", cli.Generate.Lang, "flags override config")
}

func TestOtherCommands(t *testing.T) {
	cli, ctx := parse(t, []string{"scan", "--format=yaml"})
	assert.Equal(t, "scan", ctx.Command())
	assert.Equal(t, "yaml", cli.Scan.Format)
	assert.True(t, cli.StdoutReserved("scan"))

	cli, ctx = parse(t, []string{"config", "init", "generate", "--format=toml"})
	assert.Equal(t, "config init <command>", ctx.Command())
	assert.Equal(t, "toml", cli.Config.Init.Format)
}

func TestInvalidEnum(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("hdrbind"), kong.Exit(func(int) {}))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"generate", "--lang=cobol"})
	assert.Error(t, err)
}

func TestConfigInitRoundTrip(t *testing.T) {
	tests := []struct {
		format string
		loader kong.ConfigurationLoader
		decode func([]byte, any) error
		encode func(any) ([]byte, error)
	}{
		{"json", kong.JSON, json.Unmarshal, json.Marshal},
		{"yaml", kongyaml.Loader, yaml.Unmarshal, yaml.Marshal},
		{"toml", kongtoml.Loader, toml.Unmarshal, toml.Marshal},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "hdrbind."+tt.format)
			ci := &cmd.ConfigInit{Command: "generate", Format: tt.format, Output: path}
			require.NoError(t, ci.Run(slog.New(slog.DiscardHandler)))

			// The untouched template loads and reproduces the defaults.
			cli, _ := parse(t, []string{"generate"}, kong.Configuration(tt.loader, path))
			assert.Equal(t, "rust", cli.Generate.Lang)
			assert.Equal(t, []string{"color_t"}, cli.Generate.AllowlistType)
			assert.Equal(t, 200*time.Millisecond, cli.Generate.Debounce)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			doc := map[string]any{}
			require.NoError(t, tt.decode(data, &doc))
			flags := doc
			if tt.format == "yaml" {
				flags = doc["generate"].(map[string]any)
			}
			set := func(key string, v any) {
				if tt.format == "json" {
					key = strings.ReplaceAll(key, "-", "_")
				}
				require.Contains(t, flags, key)
				flags[key] = v
			}
			set("lang", "go")
			set("allowlist-type", []any{"pixel_t", "value_t"})
			set("serialization", false)
			set("serde-feature", "")
			set("debounce", "1s")
			data, err = tt.encode(doc)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, data, 0o644))

			cli, _ = parse(t, []string{"generate"}, kong.Configuration(tt.loader, path))
			assert.Equal(t, "go", cli.Generate.Lang)
			assert.Equal(t, []string{"pixel_t", "value_t"}, cli.Generate.AllowlistType)
			assert.False(t, cli.Generate.Serialization)
			assert.Equal(t, "", cli.Generate.SerdeFeature)
			assert.Equal(t, time.Second, cli.Generate.Debounce)
			assert.Equal(t, "rust_non_exhaustive", cli.Generate.EnumStyle)
			assert.Equal(t, "example.h", cli.Generate.Header)
		})
	}
}
