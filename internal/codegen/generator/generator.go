package generator

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/Alia5/hdrbind/internal/codegen/common"
	"github.com/Alia5/hdrbind/internal/codegen/generator/golang"
	"github.com/Alia5/hdrbind/internal/codegen/generator/rust"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

// ErrUnsupportedLanguage is returned for a language with no registered generator.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageGenerator renders bindings as one source file.
type LanguageGenerator func(logger *slog.Logger, b *meta.Bindings, opts common.RenderOptions) ([]byte, error)

type language struct {
	render LanguageGenerator
	// output is the default output path relative to the project root.
	output string
}

var generators = map[string]language{
	"go":   {render: golang.Generate, output: "bindings.go"},
	"rust": {render: rust.Generate, output: filepath.Join("src", "bindings.rs")},
}

// Languages returns the supported languages in sorted order.
func Languages() []string {
	langs := make([]string, 0, len(generators))
	for k := range generators {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	return langs
}

func lookup(lang string) (language, error) {
	l, ok := generators[lang]
	if !ok {
		return language{}, fmt.Errorf("%w '%s' (supported: %v)", ErrUnsupportedLanguage, lang, Languages())
	}
	return l, nil
}

// DefaultOutput returns the output path used for lang when none is given.
func DefaultOutput(lang string) (string, error) {
	l, err := lookup(lang)
	if err != nil {
		return "", err
	}
	return l.output, nil
}

type Generator struct {
	root   string
	opts   common.RenderOptions
	logger *slog.Logger
}

// New returns a Generator writing relative output paths below root.
func New(root string, opts common.RenderOptions, logger *slog.Logger) *Generator {
	return &Generator{
		root:   root,
		opts:   opts,
		logger: logger,
	}
}

// OutputPath resolves output (or the language default when empty) against
// the project root.
func (g *Generator) OutputPath(lang, output string) (string, error) {
	if output == "" {
		var err error
		if output, err = DefaultOutput(lang); err != nil {
			return "", err
		}
	}
	if filepath.IsAbs(output) {
		return output, nil
	}
	return filepath.Join(g.root, output), nil
}

// Render produces the source text for lang in memory.
func (g *Generator) Render(lang string, b *meta.Bindings) ([]byte, error) {
	l, err := lookup(lang)
	if err != nil {
		return nil, err
	}
	src, err := l.render(g.logger, b, g.opts)
	if err != nil {
		return nil, fmt.Errorf("render %s bindings: %w", lang, err)
	}
	return src, nil
}

// GenerateLang renders b and writes it to the output path unless the file
// already holds the same contents. It returns the path written.
func (g *Generator) GenerateLang(lang, output string, b *meta.Bindings) (string, error) {
	path, err := g.OutputPath(lang, output)
	if err != nil {
		return "", err
	}

	g.logger.Info("Generating bindings", "language", lang, "header", b.Header)
	src, err := g.Render(lang, b)
	if err != nil {
		return "", err
	}

	wrote, err := common.WriteFileIfChanged(path, src)
	if err != nil {
		return "", err
	}
	if !wrote {
		g.logger.Info("Bindings up to date", "file", path)
		return path, nil
	}
	g.logger.Info("Generated bindings",
		"language", lang,
		"file", path,
		"items", len(b.Items),
		"size", humanize.Bytes(uint64(len(src))),
		"digest", common.Digest(src)[:12])
	return path, nil
}

// Check renders b and verifies the output file already holds the result.
func (g *Generator) Check(lang, output string, b *meta.Bindings) (string, error) {
	path, err := g.OutputPath(lang, output)
	if err != nil {
		return "", err
	}
	src, err := g.Render(lang, b)
	if err != nil {
		return "", err
	}
	if err := common.CheckFile(path, src); err != nil {
		return path, err
	}
	g.logger.Debug("Bindings up to date", "file", path, "digest", common.Digest(src)[:12])
	return path, nil
}
