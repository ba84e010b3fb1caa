// Package builder turns a parsed C header into meta.Bindings. It selects the
// allowlisted declarations and everything they reference, then runs the
// registered callbacks over every construct to decide names and annotations.
package builder

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
	"github.com/Alia5/hdrbind/internal/codegen/cheader"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

var (
	// ErrNoHeader is returned by Generate when no header was configured.
	ErrNoHeader = errors.New("no header configured")
	// ErrNothingAllowlisted is returned when the allowlist selects no declaration.
	ErrNothingAllowlisted = errors.New("allowlist matched no declarations")
	// ErrNameCollision is returned when two declarations end up with the same name.
	ErrNameCollision = errors.New("name collision")
	// ErrEmptyName is returned when a callback renames a type or variant to "".
	ErrEmptyName = errors.New("empty name")
)

// Builder configures one binding generation pass.
type Builder struct {
	logger     *slog.Logger
	header     string
	contents   []byte
	allowTypes []string
	allowVars  []string
	style      meta.EnumStyle
	callbacks  callbacks.Chain
	clangArgs  string
}

// New returns a Builder that emits non-exhaustive enums and runs no callbacks.
func New(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		logger: logger,
		style:  meta.StyleRustNonExhaustive,
	}
}

// Header sets the header file to parse.
func (b *Builder) Header(path string) *Builder {
	b.header = path
	b.contents = nil
	return b
}

// HeaderContents parses src instead of reading a file; name is used in
// diagnostics.
func (b *Builder) HeaderContents(name string, src []byte) *Builder {
	b.header = name
	b.contents = src
	return b
}

// AllowlistType adds regular expressions selecting types by original name.
// Patterns are anchored at both ends. Without any pattern every type is
// emitted.
func (b *Builder) AllowlistType(patterns ...string) *Builder {
	b.allowTypes = append(b.allowTypes, patterns...)
	return b
}

// AllowlistVar adds regular expressions selecting integer macros and
// enumerators of anonymous enums. Without any pattern no constant is emitted.
func (b *Builder) AllowlistVar(patterns ...string) *Builder {
	b.allowVars = append(b.allowVars, patterns...)
	return b
}

// DefaultEnumStyle sets how enumerations are emitted.
func (b *Builder) DefaultEnumStyle(style meta.EnumStyle) *Builder {
	b.style = style
	return b
}

// ParseCallbacks registers callbacks. Several registrations are chained in
// order; for names, the last callback that answers wins.
func (b *Builder) ParseCallbacks(cbs ...callbacks.ParseCallbacks) *Builder {
	b.callbacks = append(b.callbacks, cbs...)
	return b
}

// ClangArgs sets clang-style preprocessor arguments (-D, -U).
func (b *Builder) ClangArgs(args string) *Builder {
	b.clangArgs = args
	return b
}

// Generate parses the header and produces the bindings.
func (b *Builder) Generate() (*meta.Bindings, error) {
	if b.header == "" {
		return nil, ErrNoHeader
	}
	if _, err := meta.ParseEnumStyle(string(b.style)); err != nil {
		return nil, err
	}
	opts, err := cheader.ParseArgs(b.clangArgs)
	if err != nil {
		return nil, err
	}
	typeRes, err := compilePatterns(b.allowTypes)
	if err != nil {
		return nil, fmt.Errorf("allowlist type: %w", err)
	}
	varRes, err := compilePatterns(b.allowVars)
	if err != nil {
		return nil, fmt.Errorf("allowlist var: %w", err)
	}

	var h *cheader.Header
	var files []string
	if b.contents != nil {
		h, err = cheader.Parse(b.header, b.contents, opts)
	} else {
		h, err = cheader.ParseFile(b.header, opts)
		if h != nil {
			files = append(files, b.header)
			b.callbacks.IncludeFile(b.header)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.header, err)
	}
	b.logger.Debug("Parsed header",
		"path", b.header,
		"decls", len(h.Decls),
		"defines", len(h.Defines),
		"includes", len(h.Includes))

	g := newGraph(h, b.callbacks, b.logger)
	g.selectTypes(typeRes)

	out := &meta.Bindings{Header: b.header, Files: files}
	if err := g.emit(out, b.style); err != nil {
		return nil, err
	}
	consts := g.constants(h, varRes)
	for _, c := range consts {
		if prev, dup := g.taken[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrNameCollision, prev, c.OriginalName, c.Name)
		}
		g.taken[c.Name] = c.OriginalName
		out.Items = append(out.Items, c)
	}

	if len(out.Items) == 0 && (len(typeRes) > 0 || len(varRes) > 0) {
		return nil, fmt.Errorf("%w: %s", ErrNothingAllowlisted, strings.Join(slices.Concat(b.allowTypes, b.allowVars), ", "))
	}
	b.logger.Debug("Built bindings", "items", len(out.Items))
	return out, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
