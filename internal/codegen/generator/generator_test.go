package generator_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/hdrbind/internal/codegen/builder"
	"github.com/Alia5/hdrbind/internal/codegen/common"
	"github.com/Alia5/hdrbind/internal/codegen/generator"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
	"github.com/Alia5/hdrbind/internal/codegen/naming"
)

const colorHeader = `typedef enum color_t { color_CORNFLOWER_BLUE, color_RED } color_t;`

func setup(t *testing.T) (*generator.Generator, *meta.Bindings, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	b, err := builder.New(logger).
		HeaderContents("color.h", []byte(colorHeader)).
		AllowlistType("color_t").
		ParseCallbacks(naming.NewNormalizer(naming.DefaultOptions())).
		Generate()
	require.NoError(t, err)
	root := t.TempDir()
	return generator.New(root, common.RenderOptions{Package: "color"}, logger), b, root
}

func TestLanguages(t *testing.T) {
	assert.Equal(t, []string{"go", "rust"}, generator.Languages())

	out, err := generator.DefaultOutput("rust")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("src", "bindings.rs"), out)

	_, err = generator.DefaultOutput("cobol")
	assert.ErrorIs(t, err, generator.ErrUnsupportedLanguage)
}

func TestGenerateLangIsIdempotent(t *testing.T) {
	g, b, root := setup(t)

	for _, lang := range generator.Languages() {
		t.Run(lang, func(t *testing.T) {
			path, err := g.GenerateLang(lang, "", b)
			require.NoError(t, err)
			def, _ := generator.DefaultOutput(lang)
			assert.Equal(t, filepath.Join(root, def), path)

			first, err := os.ReadFile(path)
			require.NoError(t, err)

			_, err = g.GenerateLang(lang, "", b)
			require.NoError(t, err)
			second, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, first, second)

			_, err = g.Check(lang, "", b)
			assert.NoError(t, err)
		})
	}
}

func TestRenderContainsVariantText(t *testing.T) {
	g, b, _ := setup(t)

	rs, err := g.Render("rust", b)
	require.NoError(t, err)
	assert.Contains(t, string(rs), "pub enum Color {\n    CornflowerBlue = 0,")
	assert.Contains(t, string(rs), `#[strum(serialize_all = "SCREAMING_SNAKE_CASE")]`)

	goSrc, err := g.Render("go", b)
	require.NoError(t, err)
	assert.Contains(t, string(goSrc), `return "CORNFLOWER_BLUE"`)

	_, err = g.Render("cobol", b)
	assert.ErrorIs(t, err, generator.ErrUnsupportedLanguage)
}

func TestCheckDetectsStaleOutput(t *testing.T) {
	g, b, root := setup(t)

	_, err := g.Check("rust", "out.rs", b)
	assert.ErrorIs(t, err, common.ErrStale, "missing file")

	require.NoError(t, os.WriteFile(filepath.Join(root, "out.rs"), []byte("// edited\n"), 0o644))
	_, err = g.Check("rust", "out.rs", b)
	assert.ErrorIs(t, err, common.ErrStale)

	path, err := g.GenerateLang("rust", "out.rs", b)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "out.rs"), path)
	_, err = g.Check("rust", "out.rs", b)
	assert.NoError(t, err)
}

func TestOutputPathAbsolute(t *testing.T) {
	g, _, _ := setup(t)
	abs := filepath.Join(t.TempDir(), "x.go")
	got, err := g.OutputPath("go", abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)
}
