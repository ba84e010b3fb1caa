package callbacks

import (
	"fmt"
	"io"
)

// Cargo reports every file the parser reads as a cargo rerun-if-changed
// directive, so hdrbind can be driven from a Rust build script.
type Cargo struct {
	Default
	W io.Writer
}

// NewCargo returns a Cargo callback writing directives to w.
func NewCargo(w io.Writer) *Cargo {
	return &Cargo{W: w}
}

func (c *Cargo) IncludeFile(path string) {
	fmt.Fprintf(c.W, "cargo:rerun-if-changed=%s\n", path)
}
