package cmd

import (
	"log/slog"

	"github.com/Alia5/hdrbind/internal/codegen/builder"
	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
	"github.com/Alia5/hdrbind/internal/codegen/common"
	"github.com/Alia5/hdrbind/internal/codegen/generator"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
	"github.com/Alia5/hdrbind/internal/codegen/naming"
)

// BindOptions are the options shared by generate and check.
type BindOptions struct {
	Header        string   `help:"C header to generate bindings from" default:"example.h" env:"HDRBIND_HEADER"`
	Lang          string   `help:"Target language" default:"rust" enum:"rust,go" env:"HDRBIND_LANG"`
	Output        string   `help:"Output file relative to --root (defaults to src/bindings.rs or bindings.go)" env:"HDRBIND_OUTPUT"`
	Root          string   `help:"Project root the output path is relative to" default:"." env:"CARGO_MANIFEST_DIR,HDRBIND_ROOT"`
	AllowlistType []string `help:"Regex of type names to generate (repeatable); referenced types are pulled in" default:"color_t" env:"HDRBIND_ALLOWLIST_TYPE"`
	AllowlistVar  []string `help:"Regex of macro or anonymous enum constant names to generate (repeatable)" env:"HDRBIND_ALLOWLIST_VAR"`
	EnumStyle     string   `help:"How enumerations are rendered" default:"rust_non_exhaustive" enum:"rust,rust_non_exhaustive,consts" env:"HDRBIND_ENUM_STYLE"`
	Serialization bool     `help:"Attach the serialization derive and casing directive to enumerations" default:"true" negatable:"" env:"HDRBIND_SERIALIZATION"`
	SerdeFeature  string   `help:"Cargo feature gating the serialization derive (empty: unconditional)" default:"serde" env:"HDRBIND_SERDE_FEATURE"`
	SerializeAll  string   `help:"Case enum variants are rendered in as text" default:"SCREAMING_SNAKE_CASE" env:"HDRBIND_SERIALIZE_ALL"`
	Package       string   `help:"Package name for Go output" default:"bindings" env:"HDRBIND_PACKAGE"`
	ClangArgs     string   `help:"Compiler-style arguments; -D and -U are honoured" env:"HDRBIND_CLANG_ARGS"`
}

func (o *BindOptions) namingOptions() (naming.Options, error) {
	opts := naming.Options{
		Serialization: o.Serialization,
		SerdeFeature:  o.SerdeFeature,
		SerializeAll:  o.SerializeAll,
	}
	return opts, opts.Validate()
}

// bindings parses the header and runs the normalizer plus any extra
// callbacks over it.
func (o *BindOptions) bindings(logger *slog.Logger, extra ...callbacks.ParseCallbacks) (*meta.Bindings, error) {
	nopts, err := o.namingOptions()
	if err != nil {
		return nil, err
	}
	style, err := meta.ParseEnumStyle(o.EnumStyle)
	if err != nil {
		return nil, err
	}
	return builder.New(logger).
		Header(o.Header).
		AllowlistType(o.AllowlistType...).
		AllowlistVar(o.AllowlistVar...).
		DefaultEnumStyle(style).
		ClangArgs(o.ClangArgs).
		ParseCallbacks(naming.NewNormalizer(nopts)).
		ParseCallbacks(extra...).
		Generate()
}

func (o *BindOptions) generator(logger *slog.Logger) *generator.Generator {
	return generator.New(o.Root, common.RenderOptions{Package: o.Package}, logger)
}
