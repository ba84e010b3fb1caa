package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kr/pretty"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/hdrbind/internal/codegen/cheader"
)

// Scan prints what the parser sees in a header, for debugging allowlists.
type Scan struct {
	Header    string `help:"C header to scan" default:"example.h" env:"HDRBIND_HEADER"`
	ClangArgs string `help:"Compiler-style arguments; -D and -U are honoured" env:"HDRBIND_CLANG_ARGS"`
	Format    string `help:"Output format" enum:"json,yaml,pretty" default:"json"`
}

type scannedDecl struct {
	Kind string       `json:"kind" yaml:"kind"`
	Decl cheader.Decl `json:"decl" yaml:"decl"`
}

type scanResult struct {
	Path     string            `json:"path" yaml:"path"`
	Includes []string          `json:"includes,omitempty" yaml:"includes,omitempty"`
	Defines  []*cheader.Define `json:"defines,omitempty" yaml:"defines,omitempty"`
	Decls    []scannedDecl     `json:"decls" yaml:"decls"`
}

// Run is called by Kong when the scan command is executed.
func (s *Scan) Run(logger *slog.Logger) error {
	return s.Execute(logger, os.Stdout)
}

func (s *Scan) Execute(logger *slog.Logger, w io.Writer) error {
	opts, err := cheader.ParseArgs(s.ClangArgs)
	if err != nil {
		return err
	}
	h, err := cheader.ParseFile(s.Header, opts)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.Header, err)
	}
	logger.Debug("Scanned header", "path", h.Path, "decls", len(h.Decls), "defines", len(h.Defines))

	if s.Format == "pretty" {
		_, err := pretty.Fprintf(w, "%# v\n", h)
		return err
	}

	res := scanResult{Path: h.Path, Includes: h.Includes, Defines: h.Defines, Decls: []scannedDecl{}}
	for _, d := range h.Decls {
		res.Decls = append(res.Decls, scannedDecl{Kind: declKind(d), Decl: d})
	}
	switch s.Format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
}

func declKind(d cheader.Decl) string {
	switch d := d.(type) {
	case *cheader.Enum:
		return "enum"
	case *cheader.Record:
		return d.Kind.String()
	case *cheader.Typedef:
		return "typedef"
	case *cheader.Define:
		return "define"
	}
	return "unknown"
}
