package naming

import (
	"fmt"
	"strings"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
)

// Options controls the enumeration annotations a Normalizer attaches.
type Options struct {
	// Serialization attaches the serialization derive and the casing
	// directive to every enumeration. When false both are omitted.
	Serialization bool
	// SerdeFeature gates the serialization derive behind a cargo feature.
	// Empty emits the derive unconditionally.
	SerdeFeature string
	// SerializeAll is the case variant names are rendered in.
	SerializeAll string
}

// DefaultOptions returns the options matching a plain build: serialization
// behind the "serde" feature, variants rendered in SCREAMING_SNAKE_CASE.
func DefaultOptions() Options {
	return Options{
		Serialization: true,
		SerdeFeature:  "serde",
		SerializeAll:  ScreamingSnakeCase,
	}
}

// Validate reports option combinations a Normalizer cannot honour.
func (o Options) Validate() error {
	if o.Serialization && !ValidCase(o.SerializeAll) {
		return fmt.Errorf("invalid serialize-all case %q (supported: %s)", o.SerializeAll, strings.Join(SupportedCases(), ", "))
	}
	return nil
}

// Normalizer implements callbacks.ParseCallbacks with the project's naming
// conventions.
type Normalizer struct {
	callbacks.Default
	opts Options
}

var _ callbacks.ParseCallbacks = (*Normalizer)(nil)

// NewNormalizer returns a Normalizer using opts.
func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// ItemName strips a trailing "_t" and converts the rest to upper camel case.
// It never declines.
func (n *Normalizer) ItemName(original string) (string, bool) {
	return UpperCamel(StripTypeSuffix(original)), true
}

// AddDerives gives every enumeration string conversion to its variant name.
func (n *Normalizer) AddDerives(info callbacks.DeriveInfo) []callbacks.Derive {
	if info.Kind != callbacks.Enum {
		return nil
	}
	return []callbacks.Derive{callbacks.DeriveAsRefStr, callbacks.DeriveIntoStaticStr}
}

// AddAttributes attaches the serialization derive and the casing directive
// to every enumeration.
func (n *Normalizer) AddAttributes(info callbacks.AttributeInfo) []callbacks.Attribute {
	if info.Kind != callbacks.Enum || !n.opts.Serialization {
		return nil
	}
	return []callbacks.Attribute{
		{Kind: callbacks.SerdeDerive, Feature: n.opts.SerdeFeature},
		{Kind: callbacks.SerializeAll, Case: n.opts.SerializeAll},
	}
}

// EnumVariantName strips the enum's own name (minus its trailing "t") from
// the front of the variant and converts the rest to upper camel case. The
// comparison is literal: for enum "color_t" the prefix is "color_".
// Enums without a name, or whose name does not end in "t", keep the
// default variant naming.
func (n *Normalizer) EnumVariantName(enumName string, hasEnumName bool, original string, _ callbacks.EnumVariantValue) (string, bool) {
	if !hasEnumName || !strings.HasSuffix(enumName, "t") {
		return "", false
	}
	prefix := strings.TrimSuffix(enumName, "t")
	return UpperCamel(strings.TrimPrefix(original, prefix)), true
}
