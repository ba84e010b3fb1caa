package cheader

import "fmt"

var typeKeywords = map[string]bool{
	"void":     true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"float":    true,
	"double":   true,
	"signed":   true,
	"unsigned": true,
	"_Bool":    true,
	"bool":     true,
}

// wellKnownTypes are typedef names from <stdint.h>, <stddef.h> and
// <stdbool.h>. Headers are not followed, so these are treated as builtins.
var wellKnownTypes = map[string]bool{
	"int8_t":    true,
	"int16_t":   true,
	"int32_t":   true,
	"int64_t":   true,
	"uint8_t":   true,
	"uint16_t":  true,
	"uint32_t":  true,
	"uint64_t":  true,
	"intptr_t":  true,
	"uintptr_t": true,
	"size_t":    true,
	"ssize_t":   true,
	"ptrdiff_t": true,
	"wchar_t":   true,
	"char16_t":  true,
	"char32_t":  true,
}

func isTypeKeyword(s string) bool { return typeKeywords[s] }

// IsWellKnownType reports whether name is a standard library typedef that
// is treated as a builtin type.
func IsWellKnownType(name string) bool { return wellKnownTypes[name] }

// canonicalBuiltin folds a multiset of type keywords ("unsigned", "long",
// "int") into its canonical spelling ("unsigned long").
func canonicalBuiltin(words []string) (string, error) {
	var signed, unsigned, short, long, char, integer, float, double, void, boolean int
	for _, w := range words {
		switch w {
		case "signed":
			signed++
		case "unsigned":
			unsigned++
		case "short":
			short++
		case "long":
			long++
		case "char":
			char++
		case "int":
			integer++
		case "float":
			float++
		case "double":
			double++
		case "void":
			void++
		case "_Bool", "bool":
			boolean++
		}
	}
	invalid := func() (string, error) {
		return "", fmt.Errorf("invalid type specifier combination %v", words)
	}
	if signed+unsigned > 1 || integer > 1 || char > 1 || short > 1 || long > 2 ||
		(short > 0 && long > 0) {
		return invalid()
	}
	switch {
	case void > 0:
		if len(words) != 1 {
			return invalid()
		}
		return "void", nil
	case boolean > 0:
		if len(words) != 1 {
			return invalid()
		}
		return "_Bool", nil
	case float > 0:
		if len(words) != 1 {
			return invalid()
		}
		return "float", nil
	case double > 0:
		if double > 1 || len(words) != 1+long || long > 1 {
			return invalid()
		}
		if long == 1 {
			return "long double", nil
		}
		return "double", nil
	case char > 0:
		if short+long+integer > 0 {
			return invalid()
		}
		switch {
		case unsigned > 0:
			return "unsigned char", nil
		case signed > 0:
			return "signed char", nil
		default:
			return "char", nil
		}
	}

	prefix := ""
	if unsigned > 0 {
		prefix = "unsigned "
	}
	switch {
	case short > 0:
		return prefix + "short", nil
	case long == 1:
		return prefix + "long", nil
	case long == 2:
		return prefix + "long long", nil
	default:
		return prefix + "int", nil
	}
}
