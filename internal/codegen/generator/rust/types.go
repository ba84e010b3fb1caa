package rust

import (
	"fmt"
	"strings"

	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

const rawPrefix = "::std::os::raw::"

var primitives = map[string]string{
	"void":               rawPrefix + "c_void",
	"_Bool":              "bool",
	"char":               rawPrefix + "c_char",
	"signed char":        rawPrefix + "c_schar",
	"unsigned char":      rawPrefix + "c_uchar",
	"short":              rawPrefix + "c_short",
	"unsigned short":     rawPrefix + "c_ushort",
	"int":                rawPrefix + "c_int",
	"unsigned int":       rawPrefix + "c_uint",
	"long":               rawPrefix + "c_long",
	"unsigned long":      rawPrefix + "c_ulong",
	"long long":          rawPrefix + "c_longlong",
	"unsigned long long": rawPrefix + "c_ulonglong",
	"float":              "f32",
	"double":             "f64",
	"long double":        "u128",
	"int8_t":             "i8",
	"int16_t":            "i16",
	"int32_t":            "i32",
	"int64_t":            "i64",
	"uint8_t":            "u8",
	"uint16_t":           "u16",
	"uint32_t":           "u32",
	"uint64_t":           "u64",
	"intptr_t":           "isize",
	"uintptr_t":          "usize",
	"size_t":             "usize",
	"ssize_t":            "isize",
	"ptrdiff_t":          "isize",
	"wchar_t":            "i32",
	"char16_t":           "u16",
	"char32_t":           "u32",
}

// rustType maps a resolved C type to Rust. Function pointers are carried
// as untyped pointers since their signatures are not modelled.
func rustType(t meta.Type) string {
	var s string
	switch t.Kind {
	case meta.Primitive:
		s = primitives[t.Prim]
		if s == "" {
			s = rawPrefix + "c_int"
		}
	case meta.Ref:
		s = t.Name
	case meta.FuncPtr:
		s = "*mut " + rawPrefix + "c_void"
	}
	for i := 0; i < t.Pointer; i++ {
		if i == 0 && t.Const {
			s = "*const " + s
		} else {
			s = "*mut " + s
		}
	}
	for i := len(t.ArrayLen) - 1; i >= 0; i-- {
		s = fmt.Sprintf("[%s; %d]", s, t.ArrayLen[i])
	}
	return s
}

// fieldName escapes Rust keywords. Keywords that cannot be raw identifiers
// get a trailing underscore instead.
func fieldName(name string) string {
	switch {
	case strings.HasPrefix(name, "_bitfield_"):
		return name
	case name == "self" || name == "Self" || name == "super" || name == "crate":
		return name + "_"
	case isRustKeyword(name):
		return "r#" + name
	}
	return name
}

func isRustKeyword(s string) bool {
	keywords := map[string]bool{
		"as": true, "break": true, "const": true, "continue": true, "crate": true,
		"else": true, "enum": true, "extern": true, "false": true, "fn": true,
		"for": true, "if": true, "impl": true, "in": true, "let": true,
		"loop": true, "match": true, "mod": true, "move": true, "mut": true,
		"pub": true, "ref": true, "return": true, "self": true, "Self": true,
		"static": true, "struct": true, "super": true, "trait": true, "true": true,
		"type": true, "unsafe": true, "use": true, "where": true, "while": true,
		"async": true, "await": true, "dyn": true,
	}
	return keywords[s]
}
