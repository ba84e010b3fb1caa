package rust

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/Alia5/hdrbind/internal/codegen/callbacks"
	"github.com/Alia5/hdrbind/internal/codegen/common"
	"github.com/Alia5/hdrbind/internal/codegen/meta"
)

const bindingsTemplate = `/* automatically generated by {{.GeneratedBy}} */
{{range .Items}}
{{if eq .Kind "enum"}}{{template "enum" .Enum}}{{else if eq .Kind "consts"}}{{template "consts" .Enum}}{{else if eq .Kind "struct"}}{{template "struct" .Struct}}{{else if eq .Kind "alias"}}pub type {{.Alias.Name}} = {{.Alias.Target}};
{{else}}pub const {{.Const.Name}}: {{.Const.Type}} = {{.Const.Value}};
{{end}}{{end}}
{{- define "enum"}}#[repr({{.Repr}})]
{{if .NonExhaustive}}#[non_exhaustive]
{{end}}#[derive({{.Derives}})]
{{range .Attributes}}{{.}}
{{end}}pub enum {{.Name}} {
{{- range .Variants}}
    {{.Name}} = {{.Value}},
{{- end}}
}
{{if .Aliases}}impl {{.Name}} {
{{- range .Aliases}}
    pub const {{.Name}}: {{$.Name}} = {{$.Name}}::{{.Target}};
{{- end}}
}
{{end}}{{end}}
{{- define "consts"}}{{range .All}}pub const {{$.Name}}_{{.Name}}: {{$.Name}} = {{.Value}};
{{end}}pub type {{.Name}} = {{.Repr}};
{{end}}
{{- define "struct"}}#[repr(C)]
#[derive({{.Derives}})]
pub {{.Keyword}} {{.Name}} {
{{- if .Opaque}}
    _unused: [u8; 0],
{{- end}}
{{- range .Fields}}
{{- range .Doc}}
    /// {{.}}
{{- end}}
    pub {{.Name}}: {{.Type}},
{{- end}}
}
{{end}}`

var tmpl = template.Must(template.New("bindings").Parse(bindingsTemplate))

type rustItem struct {
	Kind   string
	Enum   *rustEnum
	Struct *rustStruct
	Alias  *rustAlias
	Const  *rustConst
}

type rustEnum struct {
	Name          string
	Repr          string
	NonExhaustive bool
	Derives       string
	Attributes    []string
	Variants      []rustVariant
	Aliases       []rustVariant
	// All holds every variant in declaration order for the consts style.
	All []rustVariant
}

type rustVariant struct {
	Name   string
	Value  int64
	Target string
}

type rustStruct struct {
	Keyword string
	Name    string
	Derives string
	Opaque  bool
	Fields  []rustField
}

type rustField struct {
	Name string
	Type string
	Doc  []string
}

type rustAlias struct {
	Name   string
	Target string
}

type rustConst struct {
	Name  string
	Type  string
	Value int64
}

type bindingsData struct {
	GeneratedBy string
	Items       []rustItem
}

// Generate renders b as Rust source suitable for include! from a crate.
func Generate(logger *slog.Logger, b *meta.Bindings, _ common.RenderOptions) ([]byte, error) {
	by, err := common.GeneratedBy()
	if err != nil {
		return nil, err
	}
	data := bindingsData{GeneratedBy: by}
	for _, it := range b.Items {
		switch it := it.(type) {
		case *meta.Enum:
			kind := "enum"
			if it.Style == meta.StyleConsts || len(it.Variants) == 0 {
				kind = "consts"
			}
			data.Items = append(data.Items, rustItem{Kind: kind, Enum: enumData(it)})
		case *meta.Struct:
			data.Items = append(data.Items, rustItem{Kind: "struct", Struct: structData(it)})
		case *meta.Alias:
			data.Items = append(data.Items, rustItem{Kind: "alias", Alias: &rustAlias{Name: it.Name, Target: rustType(it.Target)}})
		case *meta.Const:
			data.Items = append(data.Items, rustItem{Kind: "const", Const: &rustConst{Name: it.Name, Type: string(it.Repr), Value: it.Value}})
		default:
			return nil, fmt.Errorf("unexpected item %T", it)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	logger.Debug("Rendered Rust bindings", "items", len(data.Items), "bytes", buf.Len())
	return buf.Bytes(), nil
}

var baseEnumDerives = []string{"Debug", "Copy", "Clone", "Hash", "PartialEq", "Eq"}

func enumData(e *meta.Enum) *rustEnum {
	re := &rustEnum{
		Name:          e.Name,
		Repr:          string(e.Repr),
		NonExhaustive: e.NonExhaustive(),
		Derives:       joinDerives(baseEnumDerives, e.Derives),
	}
	for _, a := range e.Attributes {
		re.Attributes = append(re.Attributes, a.String())
	}
	for _, v := range e.Variants {
		rv := rustVariant{Name: v.Name, Value: v.Value}
		re.All = append(re.All, rv)
		if v.AliasOf != "" {
			rv.Target = v.AliasOf
			re.Aliases = append(re.Aliases, rv)
			continue
		}
		re.Variants = append(re.Variants, rv)
	}
	return re
}

func structData(s *meta.Struct) *rustStruct {
	rs := &rustStruct{
		Keyword: "struct",
		Name:    s.Name,
		Opaque:  s.Opaque,
	}
	base := []string{"Debug", "Copy", "Clone"}
	if s.Union {
		rs.Keyword = "union"
		// Unions cannot derive Debug.
		base = []string{"Copy", "Clone"}
	}
	rs.Derives = joinDerives(base, s.Derives)
	for _, f := range s.Fields {
		rf := rustField{Name: fieldName(f.Name), Type: rustType(f.Type)}
		if len(f.Bitfields) > 0 {
			rf.Doc = append(rf.Doc, "Bit-fields: "+strings.Join(f.Bitfields, ", "))
		}
		rs.Fields = append(rs.Fields, rf)
	}
	return rs
}

func joinDerives(base []string, extra []callbacks.Derive) string {
	out := append([]string(nil), base...)
	for _, d := range extra {
		out = append(out, string(d))
	}
	return strings.Join(out, ", ")
}
