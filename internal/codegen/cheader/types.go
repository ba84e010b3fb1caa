// Package cheader parses the declarations of a C header that binding
// generation needs: enumerations, structs, unions, typedefs and integer
// object-like macros.
//
// It is not a C compiler front end. Function prototypes, variables and
// anything it cannot describe are skipped; constructs it recognises but
// cannot represent are reported as errors pointing at the offending line.
package cheader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyntax is matched by every parse error (errors.Is).
var ErrSyntax = errors.New("syntax error")

// Pos is a source position.
type Pos struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Error is a diagnostic tied to a source position.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string { return e.Pos.String() + ": " + e.Msg }

func (e *Error) Is(target error) bool { return target == ErrSyntax }

// RefKind classifies a type reference.
type RefKind int

const (
	// Builtin is a C arithmetic type, void, or a well-known stdint/stddef name.
	Builtin RefKind = iota
	// Named refers to a typedef.
	Named
	EnumRef
	StructRef
	UnionRef
	// FuncPointer is a pointer to a function; parameters are not modelled.
	FuncPointer
)

func (k RefKind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case Named:
		return "named"
	case EnumRef:
		return "enum"
	case StructRef:
		return "struct"
	case UnionRef:
		return "union"
	case FuncPointer:
		return "funcptr"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

func (k RefKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// TypeRef is the type of a field or typedef target.
type TypeRef struct {
	Kind RefKind `json:"kind"`
	// Name is the canonical builtin spelling ("unsigned int", "uint32_t"),
	// the typedef name, or the record/enum tag.
	Name  string `json:"name,omitempty"`
	Const bool   `json:"const,omitempty"`
	// Pointer counts levels of indirection.
	Pointer int `json:"pointer,omitempty"`
	// ArrayLen lists array dimensions outermost first.
	ArrayLen []int64 `json:"arrayLen,omitempty"`
}

func (t TypeRef) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	switch t.Kind {
	case EnumRef, StructRef, UnionRef:
		b.WriteString(t.Kind.String())
		b.WriteByte(' ')
	}
	if t.Kind == FuncPointer {
		b.WriteString("fn()")
	} else {
		b.WriteString(t.Name)
	}
	for i := 0; i < t.Pointer; i++ {
		b.WriteByte('*')
	}
	for _, n := range t.ArrayLen {
		fmt.Fprintf(&b, "[%d]", n)
	}
	return b.String()
}

// Decl is a top-level declaration.
type Decl interface {
	Position() Pos
	decl()
}

// Variant is one enumerator.
type Variant struct {
	Pos   Pos    `json:"pos"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Enum is an enumeration definition.
type Enum struct {
	Pos         Pos       `json:"pos"`
	Tag         string    `json:"tag,omitempty"`
	TypedefName string    `json:"typedefName,omitempty"`
	Variants    []Variant `json:"variants"`
}

// Name returns the name the enum is known by: its tag, else the name it
// was typedef'd to. Anonymous enums report ok=false.
func (e *Enum) Name() (name string, ok bool) {
	if e.Tag != "" {
		return e.Tag, true
	}
	if e.TypedefName != "" {
		return e.TypedefName, true
	}
	return "", false
}

// RecordKind distinguishes structs from unions.
type RecordKind int

const (
	StructKind RecordKind = iota
	UnionKind
)

func (k RecordKind) String() string {
	if k == UnionKind {
		return "union"
	}
	return "struct"
}

func (k RecordKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Field is a struct or union member.
type Field struct {
	Pos  Pos     `json:"pos"`
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
	// BitWidth is set for bit-fields.
	BitWidth int `json:"bitWidth,omitempty"`
}

// Record is a struct or union. Opaque records were declared without a body.
type Record struct {
	Pos         Pos        `json:"pos"`
	Kind        RecordKind `json:"kind"`
	Tag         string     `json:"tag,omitempty"`
	TypedefName string     `json:"typedefName,omitempty"`
	Fields      []Field    `json:"fields,omitempty"`
	Opaque      bool       `json:"opaque,omitempty"`
}

// Name returns the record's tag, else its typedef name.
func (r *Record) Name() (name string, ok bool) {
	if r.Tag != "" {
		return r.Tag, true
	}
	if r.TypedefName != "" {
		return r.TypedefName, true
	}
	return "", false
}

// Typedef is an alias for another type.
type Typedef struct {
	Pos    Pos     `json:"pos"`
	Name   string  `json:"name"`
	Target TypeRef `json:"target"`
}

// Define is an object-like macro whose body is an integer constant expression.
type Define struct {
	Pos   Pos    `json:"pos"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Text  string `json:"text"`
}

func (d *Enum) Position() Pos    { return d.Pos }
func (d *Record) Position() Pos  { return d.Pos }
func (d *Typedef) Position() Pos { return d.Pos }
func (d *Define) Position() Pos  { return d.Pos }

func (*Enum) decl()    {}
func (*Record) decl()  {}
func (*Typedef) decl() {}
func (*Define) decl()  {}

// Header is the result of parsing one file.
type Header struct {
	Path string `json:"path"`
	// Decls holds enums, records and typedefs in source order.
	Decls []Decl `json:"decls"`
	// Defines holds integer macros in order of first definition.
	Defines []*Define `json:"defines,omitempty"`
	// Includes lists the #include targets seen in active code. They are
	// not followed.
	Includes []string `json:"includes,omitempty"`
}

// Enums returns the enums in source order.
func (h *Header) Enums() []*Enum {
	var out []*Enum
	for _, d := range h.Decls {
		if e, ok := d.(*Enum); ok {
			out = append(out, e)
		}
	}
	return out
}

// Records returns the structs and unions in source order.
func (h *Header) Records() []*Record {
	var out []*Record
	for _, d := range h.Decls {
		if r, ok := d.(*Record); ok {
			out = append(out, r)
		}
	}
	return out
}

// Typedefs returns the plain typedefs in source order.
func (h *Header) Typedefs() []*Typedef {
	var out []*Typedef
	for _, d := range h.Decls {
		if t, ok := d.(*Typedef); ok {
			out = append(out, t)
		}
	}
	return out
}
