package naming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ettle/strcase"
)

// Case names accepted by ApplyCase. They follow strum's serialize_all spelling.
const (
	ScreamingSnakeCase = "SCREAMING_SNAKE_CASE"
	SnakeCase          = "snake_case"
	KebabCase          = "kebab-case"
	ScreamingKebabCase = "SCREAMING-KEBAB-CASE"
	CamelCase          = "camelCase"
	PascalCase         = "PascalCase"
	LowerCase          = "lowercase"
	UpperCase          = "UPPERCASE"
)

// caser splits on separators, case transitions, acronym ends and
// letter/digit transitions. Initialisms are not preserved.
var caser = strcase.NewCaser(false, nil, strcase.NewSplitFn(
	[]rune{'_', '-', ' ', '.'},
	strcase.SplitCase,
	strcase.SplitAcronym,
	strcase.SplitBeforeNumber,
	strcase.SplitAfterNumber,
))

// textCaser splits the way strum's serialize_all does: digits stay with
// the word before them, so Rgb8 is RGB8 and Vec3F is VEC3_F.
var textCaser = strcase.NewCaser(false, nil, strcase.NewSplitFn(
	[]rune{'_', '-', ' ', '.'},
	strcase.SplitCase,
	strcase.SplitAcronym,
))

var casers = map[string]func(string) string{
	ScreamingSnakeCase: textCaser.ToSNAKE,
	SnakeCase:          textCaser.ToSnake,
	KebabCase:          textCaser.ToKebab,
	ScreamingKebabCase: textCaser.ToKEBAB,
	CamelCase:          textCaser.ToCamel,
	PascalCase:         textCaser.ToPascal,
	LowerCase:          func(s string) string { return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s)) },
	UpperCase:          func(s string) string { return strings.ToUpper(strings.NewReplacer("_", "", "-", "").Replace(s)) },
}

// UpperCamel converts s to upper camel case: "_" and case transitions are
// word boundaries, the first letter of each word is capitalised and the
// boundary characters are dropped.
//
//	UpperCamel("color")            == "Color"
//	UpperCamel("CORNFLOWER_BLUE")  == "CornflowerBlue"
//	UpperCamel("httpRequestState") == "HttpRequestState"
func UpperCamel(s string) string {
	return caser.ToPascal(s)
}

// ApplyCase renders s in the named case.
func ApplyCase(caseName, s string) (string, error) {
	fn, ok := casers[caseName]
	if !ok {
		return "", fmt.Errorf("unknown case %q (supported: %s)", caseName, strings.Join(SupportedCases(), ", "))
	}
	return fn(s), nil
}

// ValidCase reports whether ApplyCase accepts caseName.
func ValidCase(caseName string) bool {
	_, ok := casers[caseName]
	return ok
}

// SupportedCases lists the case names ApplyCase accepts, sorted.
func SupportedCases() []string {
	out := make([]string, 0, len(casers))
	for k := range casers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StripTypeSuffix removes a trailing "_t" from name, if present.
func StripTypeSuffix(name string) string {
	return strings.TrimSuffix(name, "_t")
}
