package util

import (
	"bufio"
	"fmt"
	"io"
)

// ExitFunc wraps exit for a process that may own its console window. When
// fromGUI is set the window would close together with the output, so the
// returned function waits for Enter on in before exiting.
func ExitFunc(in io.Reader, out io.Writer, fromGUI bool, exit func(int)) func(int) {
	if !fromGUI {
		return exit
	}
	return func(code int) {
		_, _ = fmt.Fprint(out, "\nPress Enter to close...")
		_, _ = bufio.NewReader(in).ReadString('\n')
		exit(code)
	}
}
