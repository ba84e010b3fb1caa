package golang

import (
	"fmt"
	"strings"

	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

// primitives maps C builtins to Go types of the same size on LP64.
var primitives = map[string]string{
	"_Bool":              "bool",
	"char":               "int8",
	"signed char":        "int8",
	"unsigned char":      "uint8",
	"short":              "int16",
	"unsigned short":     "uint16",
	"int":                "int32",
	"unsigned int":       "uint32",
	"long":               "int64",
	"unsigned long":      "uint64",
	"long long":          "int64",
	"unsigned long long": "uint64",
	"float":              "float32",
	"double":             "float64",
	"long double":        "[16]byte",
	"int8_t":             "int8",
	"int16_t":            "int16",
	"int32_t":            "int32",
	"int64_t":            "int64",
	"uint8_t":            "uint8",
	"uint16_t":           "uint16",
	"uint32_t":           "uint32",
	"uint64_t":           "uint64",
	"intptr_t":           "int64",
	"uintptr_t":          "uintptr",
	"size_t":             "uint64",
	"ssize_t":            "int64",
	"ptrdiff_t":          "int64",
	"wchar_t":            "int32",
	"char16_t":           "uint16",
	"char32_t":           "uint32",
}

// goType maps a resolved C type to Go. void pointers and function pointers
// become unsafe.Pointer.
func (m *mapper) goType(t meta.Type) string {
	var s string
	pointers := t.Pointer
	switch {
	case t.Kind == meta.FuncPtr, t.Kind == meta.Primitive && t.Prim == "void" && pointers > 0:
		m.unsafe = true
		s = "unsafe.Pointer"
		if t.Kind == meta.Primitive {
			pointers--
		}
	case t.Kind == meta.Primitive:
		s = primitives[t.Prim]
		if s == "" {
			s = "int32"
		}
	default:
		s = t.Name
	}
	s = strings.Repeat("*", pointers) + s

	var dims strings.Builder
	for _, n := range t.ArrayLen {
		fmt.Fprintf(&dims, "[%d]", n)
	}
	return dims.String() + s
}
