package golang

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"mvdan.cc/gofumpt/format"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
	"github.com/Alia5/hdrbind/internal/codegen/common"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
	"github.com/Alia5/hdrbind/internal/codegen/naming"
)

// DefaultPackage is the package clause used when none is configured.
const DefaultPackage = "bindings"

const bindingsTemplate = `// Code generated by {{.GeneratedBy}}. DO NOT EDIT.
// Source: {{.Header}}

package {{.Package}}
{{if .Imports}}
import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)
{{end}}
{{- range .Enums}}
{{template "enum" .}}
{{- end}}
{{- range .Structs}}
{{template "struct" .}}
{{- end}}
{{- if .Aliases}}
type (
{{- range .Aliases}}
	{{.Name}} = {{.Target}}
{{- end}}
)
{{end}}
{{- if .Consts}}
const (
{{- range .Consts}}
	{{.Name}} = {{.Value}}{{if .Text}} // {{.Text}}{{end}}
{{- end}}
)
{{end}}
{{- define "enum"}}
// {{.Name}} is generated from enum {{.Original}}.
type {{.Name}} {{.Underlying}}

const (
{{- range .Variants}}
	{{.Const}} {{$.Name}} = {{.Value}}
{{- end}}
)
{{if .Strings}}
// String returns the variant name{{if .Case}} in {{.Case}}{{end}}.
func (v {{.Name}}) String() string {
	switch v {
{{- range .Variants}}{{if not .Alias}}
	case {{.Const}}:
		return "{{.Text}}"
{{- end}}{{end}}
	default:
		return fmt.Sprintf("{{.Name}}(%d)", {{.Underlying}}(v))
	}
}

// Parse{{.Name}} returns the variant whose name is s.
func Parse{{.Name}}(s string) ({{.Name}}, error) {
	switch s {
{{- range .Variants}}
	case "{{.Text}}":
		return {{.Const}}, nil
{{- end}}
	}
	return 0, fmt.Errorf("invalid {{.Name}} %q", s)
}
{{end}}
{{- if .Text}}
func (v {{.Name}}) MarshalText() ([]byte, error) {
	s := v.String()
	if _, err := Parse{{.Name}}(s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (v *{{.Name}}) UnmarshalText(text []byte) error {
	parsed, err := Parse{{.Name}}(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
{{end}}
{{- end}}
{{- define "struct"}}
{{- if .Opaque}}
// {{.Name}} is the opaque {{.Kind}} {{.Original}}. Use it through pointers only.
type {{.Name}} struct{}
{{- else if .Union}}
// {{.Name}} is generated from union {{.Original}}. Members: {{.Members}}.
type {{.Name}} struct {
{{- if .AlignType}}
	_    [0]{{.AlignType}}
{{- end}}
	Data [{{.Size}}]byte
}
{{- else}}
// {{.Name}} is generated from struct {{.Original}}.
type {{.Name}} struct {
{{- range .Fields}}
	{{.Name}} {{.Type}}{{if .Comment}} // {{.Comment}}{{end}}
{{- end}}
}
{{- end}}
{{end}}`

var tmpl = template.Must(template.New("bindings").Parse(bindingsTemplate))

type goEnum struct {
	Name       string
	Original   string
	Underlying string
	// Strings adds String and Parse; Text adds text marshalling.
	Strings  bool
	Text     bool
	Case     string
	Variants []goVariant
}

type goVariant struct {
	Const string
	Value int64
	Text  string
	Alias bool
}

type goStruct struct {
	Name      string
	Original  string
	Kind      string
	Opaque    bool
	Union     bool
	Members   string
	Size      int64
	AlignType string
	Fields    []goField
}

type goField struct {
	Name    string
	Type    string
	Comment string
}

type goAlias struct {
	Name   string
	Target string
}

type goConst struct {
	Name  string
	Value int64
	Text  string
}

type bindingsData struct {
	GeneratedBy string
	Header      string
	Package     string
	Imports     []string
	Enums       []goEnum
	Structs     []goStruct
	Aliases     []goAlias
	Consts      []goConst
}

// Generate renders b as a single gofumpt-formatted Go file.
func Generate(logger *slog.Logger, b *meta.Bindings, opts common.RenderOptions) ([]byte, error) {
	by, err := common.GeneratedBy()
	if err != nil {
		return nil, err
	}
	data := bindingsData{
		GeneratedBy: by,
		Header:      b.Header,
		Package:     opts.Package,
	}
	if data.Package == "" {
		data.Package = DefaultPackage
	}

	m := &mapper{}
	for _, it := range b.Items {
		switch it := it.(type) {
		case *meta.Enum:
			e, err := enumData(it)
			if err != nil {
				return nil, err
			}
			data.Enums = append(data.Enums, e)
		case *meta.Struct:
			data.Structs = append(data.Structs, m.structData(it))
		case *meta.Alias:
			data.Aliases = append(data.Aliases, goAlias{Name: it.Name, Target: m.goType(it.Target)})
		case *meta.Const:
			data.Consts = append(data.Consts, goConst{Name: it.Name, Value: it.Value, Text: it.Text})
		default:
			return nil, fmt.Errorf("unexpected item %T", it)
		}
	}
	for _, e := range data.Enums {
		if e.Strings {
			data.Imports = append(data.Imports, "fmt")
			break
		}
	}
	if m.unsafe {
		data.Imports = append(data.Imports, "unsafe")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	formatted, err := format.Source(buf.Bytes(), format.Options{})
	if err != nil {
		return nil, fmt.Errorf("format generated Go: %w", err)
	}
	logger.Debug("Rendered Go bindings", "package", data.Package, "bytes", len(formatted))
	return formatted, nil
}

var underlying = map[meta.Repr]string{
	meta.U32: "uint32",
	meta.I32: "int32",
	meta.U64: "uint64",
	meta.I64: "int64",
}

func enumData(e *meta.Enum) (goEnum, error) {
	ge := goEnum{
		Name:       e.Name,
		Original:   e.OriginalName,
		Underlying: underlying[e.Repr],
		Strings:    e.HasDerive(callbacks.Derive.StringConversion),
	}
	if a, ok := e.Attribute(callbacks.SerializeAll); ok {
		ge.Case = a.Case
	}
	_, serde := e.Attribute(callbacks.SerdeDerive)
	ge.Text = ge.Strings && serde

	seen := make(map[string]string)
	for _, v := range e.Variants {
		text := v.Name
		if ge.Case != "" {
			var err error
			if text, err = naming.ApplyCase(ge.Case, v.Name); err != nil {
				return ge, fmt.Errorf("enum %s: %w", e.Name, err)
			}
		}
		if prev, dup := seen[text]; dup {
			return ge, fmt.Errorf("enum %s: variants %s and %s both render as %q", e.Name, prev, v.Name, text)
		}
		seen[text] = v.Name
		ge.Variants = append(ge.Variants, goVariant{
			Const: e.Name + v.Name,
			Value: v.Value,
			Text:  text,
			Alias: v.AliasOf != "",
		})
	}
	return ge, nil
}

var alignTypes = map[int64]string{
	2: "uint16",
	4: "uint32",
	8: "uint64",
}

type mapper struct {
	unsafe bool
}

func (m *mapper) structData(s *meta.Struct) goStruct {
	gs := goStruct{
		Name:     s.Name,
		Original: s.OriginalName,
		Kind:     "struct",
		Opaque:   s.Opaque,
		Union:    s.Union,
		Size:     s.Size,
	}
	if s.Union {
		gs.Kind = "union"
		gs.AlignType = alignTypes[min(s.Align, 8)]
		members := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			members = append(members, f.Name+" "+f.Type.String())
		}
		gs.Members = strings.Join(members, ", ")
		return gs
	}
	for i, f := range s.Fields {
		name := naming.UpperCamel(f.Name)
		if name == "" {
			name = fmt.Sprintf("Field%d", i)
		}
		gf := goField{Name: name, Type: m.goType(f.Type)}
		switch {
		case len(f.Bitfields) > 0:
			gf.Comment = "bit-fields: " + strings.Join(f.Bitfields, ", ")
		case f.Type.Kind == meta.FuncPtr:
			gf.Comment = "function pointer"
		}
		gs.Fields = append(gs.Fields, gf)
	}
	return gs
}
