package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitFuncFromShell(t *testing.T) {
	var got []int
	var out bytes.Buffer
	exit := ExitFunc(strings.NewReader(""), &out, false, func(code int) { got = append(got, code) })
	exit(3)
	assert.Equal(t, []int{3}, got)
	assert.Empty(t, out.String())
}

func TestExitFuncFromGUIWaitsForEnter(t *testing.T) {
	var got []int
	var out bytes.Buffer
	in := strings.NewReader("\n")
	exit := ExitFunc(in, &out, true, func(code int) { got = append(got, code) })
	exit(1)
	assert.Equal(t, []int{1}, got)
	assert.Contains(t, out.String(), "Press Enter to close")
	assert.Zero(t, in.Len())
}
