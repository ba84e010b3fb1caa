// Package meta holds the binding declarations produced by the builder after
// every callback has run. Generators render it; they never see the parse
// tree.
package meta

import (
	"fmt"
	"math"
	"strings"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
)

// Bindings is everything one generation pass emits, in header discovery order.
type Bindings struct {
	// Header is the path of the parsed header.
	Header string
	Items  []Item
	// Files lists every file read while parsing.
	Files []string
}

// Enums returns the enum items.
func (b *Bindings) Enums() []*Enum {
	var out []*Enum
	for _, it := range b.Items {
		if e, ok := it.(*Enum); ok {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the item with the given rewritten name.
func (b *Bindings) Lookup(name string) (Item, bool) {
	for _, it := range b.Items {
		if it.ItemName() == name {
			return it, true
		}
	}
	return nil, false
}

// Item is one emitted declaration.
type Item interface {
	ItemName() string
	item()
}

// EnumStyle selects how enumerations are emitted.
type EnumStyle string

const (
	// StyleRust emits a native enum.
	StyleRust EnumStyle = "rust"
	// StyleRustNonExhaustive emits a native enum marked non-exhaustive.
	StyleRustNonExhaustive EnumStyle = "rust_non_exhaustive"
	// StyleConsts emits an integer type alias plus one constant per variant.
	StyleConsts EnumStyle = "consts"
)

// EnumStyles lists the accepted styles.
var EnumStyles = []EnumStyle{StyleRust, StyleRustNonExhaustive, StyleConsts}

// ParseEnumStyle validates s.
func ParseEnumStyle(s string) (EnumStyle, error) {
	for _, st := range EnumStyles {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown enum style %q", s)
}

// Repr is the integer representation of an enum or constant.
type Repr string

const (
	U32 Repr = "u32"
	I32 Repr = "i32"
	U64 Repr = "u64"
	I64 Repr = "i64"
)

// Signed reports whether r is a signed representation.
func (r Repr) Signed() bool { return r == I32 || r == I64 }

// Size is the width of r in bytes.
func (r Repr) Size() int64 {
	if r == U64 || r == I64 {
		return 8
	}
	return 4
}

// ReprFor picks the narrowest representation holding every value: unsigned
// 32-bit unless a value is negative or does not fit.
func ReprFor(values ...int64) Repr {
	var lo, hi int64
	for i, v := range values {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	switch {
	case lo >= 0 && hi <= math.MaxUint32:
		return U32
	case lo >= 0:
		return U64
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		return I32
	default:
		return I64
	}
}

// Enum is an enumeration.
type Enum struct {
	OriginalName string
	Name         string
	Repr         Repr
	Style        EnumStyle
	Variants     []EnumVariant
	Derives      []callbacks.Derive
	Attributes   []callbacks.Attribute
}

func (e *Enum) ItemName() string { return e.Name }
func (*Enum) item()              {}

// NonExhaustive reports whether the enum may gain variants.
func (e *Enum) NonExhaustive() bool { return e.Style == StyleRustNonExhaustive }

// HasDerive reports whether any derive satisfies pred.
func (e *Enum) HasDerive(pred func(callbacks.Derive) bool) bool {
	for _, d := range e.Derives {
		if pred(d) {
			return true
		}
	}
	return false
}

// Attribute returns the first attribute of the given kind.
func (e *Enum) Attribute(kind callbacks.AttributeKind) (callbacks.Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Kind == kind {
			return a, true
		}
	}
	return callbacks.Attribute{}, false
}

// EnumVariant is one enumerator.
type EnumVariant struct {
	OriginalName string
	Name         string
	Value        int64
	// AliasOf names the first variant carrying the same value, if any.
	AliasOf string
}

// TypeKind classifies a resolved type.
type TypeKind int

const (
	// Primitive is a C arithmetic type or void.
	Primitive TypeKind = iota
	// Ref names another item.
	Ref
	// FuncPtr is a pointer to a function.
	FuncPtr
)

// Type is a resolved field or alias type.
type Type struct {
	Kind TypeKind
	// Prim is the canonical C spelling for primitives ("unsigned int", "uint8_t").
	Prim string
	// Name is the rewritten item name for Ref.
	Name    string
	Const   bool
	Pointer int
	// ArrayLen lists array dimensions outermost first.
	ArrayLen []int64
}

// IsVoid reports whether t is plain void.
func (t Type) IsVoid() bool { return t.Kind == Primitive && t.Prim == "void" && t.Pointer == 0 }

func (t Type) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	switch t.Kind {
	case Primitive:
		b.WriteString(t.Prim)
	case Ref:
		b.WriteString(t.Name)
	case FuncPtr:
		b.WriteString("fn()")
	}
	b.WriteString(strings.Repeat("*", t.Pointer))
	for _, n := range t.ArrayLen {
		fmt.Fprintf(&b, "[%d]", n)
	}
	return b.String()
}

// Field is a struct or union member.
type Field struct {
	Name string
	Type Type
	// Bitfields names the C bit-fields packed into this storage unit.
	Bitfields []string
	Offset    int64
}

// Struct is a struct or union.
type Struct struct {
	OriginalName string
	Name         string
	Union        bool
	Fields       []Field
	// Opaque records were declared without a body and are only usable
	// through pointers.
	Opaque     bool
	Size       int64
	Align      int64
	Derives    []callbacks.Derive
	Attributes []callbacks.Attribute
}

func (s *Struct) ItemName() string { return s.Name }
func (*Struct) item()              {}

// Alias is a typedef that was not folded into the declaration it names.
type Alias struct {
	OriginalName string
	Name         string
	Target       Type
}

func (a *Alias) ItemName() string { return a.Name }
func (*Alias) item()              {}

// Const is an integer constant from a #define or an anonymous enum.
type Const struct {
	OriginalName string
	Name         string
	Value        int64
	Repr         Repr
	// Text is the macro body as written, empty for enumerators.
	Text string
}

func (c *Const) ItemName() string { return c.Name }
func (*Const) item()              {}
