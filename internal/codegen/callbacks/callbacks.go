// Package callbacks defines the hooks a binding generation pass invokes for
// every construct it discovers in a header.
//
// A pass calls ItemName for every emitted type, AddDerives and AddAttributes
// for every record and enumeration, and EnumVariantName for every variant.
// Implementations must be pure: the same input always yields the same output.
package callbacks

import (
	"fmt"
	"strconv"
)

// TypeKind identifies the kind of construct a derive or attribute hook fires for.
type TypeKind int

const (
	Struct TypeKind = iota
	Union
	Enum
)

func (k TypeKind) String() string {
	switch k {
	case Struct:
		return "struct"
	case Union:
		return "union"
	case Enum:
		return "enum"
	default:
		return "TypeKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// DeriveInfo describes the construct AddDerives is asked about.
type DeriveInfo struct {
	Name string // original (pre-rewrite) name
	Kind TypeKind
}

// AttributeInfo describes the construct AddAttributes is asked about.
type AttributeInfo struct {
	Name string // original (pre-rewrite) name
	Kind TypeKind
}

// EnumVariantValue carries the numeric value of an enum variant.
type EnumVariantValue struct {
	Signed   bool
	Value    int64
	Unsigned uint64
}

// SignedValue returns a value for an enum whose representation is signed.
func SignedValue(v int64) EnumVariantValue {
	return EnumVariantValue{Signed: true, Value: v}
}

// UnsignedValue returns a value for an enum whose representation is unsigned.
func UnsignedValue(v uint64) EnumVariantValue {
	return EnumVariantValue{Unsigned: v}
}

func (v EnumVariantValue) String() string {
	if v.Signed {
		return strconv.FormatInt(v.Value, 10)
	}
	return strconv.FormatUint(v.Unsigned, 10)
}

// Derive is a derivable capability, spelled as the Rust path of its derive
// macro (e.g. "strum::AsRefStr").
type Derive string

const (
	DeriveAsRefStr      Derive = "strum::AsRefStr"
	DeriveIntoStaticStr Derive = "strum::IntoStaticStr"
	DeriveDisplay       Derive = "strum::Display"
	DeriveEnumString    Derive = "strum::EnumString"
	DeriveSerialize     Derive = "serde::Serialize"
	DeriveDeserialize   Derive = "serde::Deserialize"
)

// StringConversion reports whether d gives the type a conversion to its
// variant name.
func (d Derive) StringConversion() bool {
	switch d {
	case DeriveAsRefStr, DeriveIntoStaticStr, DeriveDisplay:
		return true
	}
	return false
}

// AttributeKind selects how an Attribute is rendered.
type AttributeKind int

const (
	// Raw attributes are emitted verbatim by generators that understand them.
	Raw AttributeKind = iota
	// SerdeDerive derives serialization, optionally gated by a cargo feature.
	SerdeDerive
	// SerializeAll sets the casing used when variant names are rendered as text.
	SerializeAll
)

// Attribute is an annotation attached to a generated declaration.
type Attribute struct {
	Kind    AttributeKind
	Feature string // SerdeDerive: feature gate, empty means unconditional
	Case    string // SerializeAll: case name, e.g. SCREAMING_SNAKE_CASE
	Text    string // Raw: full attribute text
}

// String renders the attribute as Rust source.
func (a Attribute) String() string {
	switch a.Kind {
	case SerdeDerive:
		derive := fmt.Sprintf("derive(%s, %s)", DeriveDeserialize, DeriveSerialize)
		if a.Feature == "" {
			return "#[" + derive + "]"
		}
		return fmt.Sprintf("#[cfg_attr(feature = %q, %s)]", a.Feature, derive)
	case SerializeAll:
		return fmt.Sprintf("#[strum(serialize_all = %q)]", a.Case)
	default:
		return a.Text
	}
}

// ParseCallbacks is implemented by anything that wants to influence naming
// and annotations during binding generation. Returning ok=false from a
// naming hook keeps the pipeline's default name.
type ParseCallbacks interface {
	ItemName(original string) (name string, ok bool)
	AddDerives(info DeriveInfo) []Derive
	AddAttributes(info AttributeInfo) []Attribute
	EnumVariantName(enumName string, hasEnumName bool, originalVariantName string, value EnumVariantValue) (name string, ok bool)
	IncludeFile(path string)
}

// Default implements every hook as a no-op. Embed it to override a subset.
type Default struct{}

func (Default) ItemName(string) (string, bool)          { return "", false }
func (Default) AddDerives(DeriveInfo) []Derive          { return nil }
func (Default) AddAttributes(AttributeInfo) []Attribute { return nil }
func (Default) IncludeFile(string)                      {}

func (Default) EnumVariantName(string, bool, string, EnumVariantValue) (string, bool) {
	return "", false
}
