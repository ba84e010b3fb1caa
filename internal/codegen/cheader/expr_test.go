package cheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalString(t *testing.T, src string, ident identFunc) (int64, error) {
	t.Helper()
	toks, err := lex("expr", []byte(src))
	require.NoError(t, err)
	return evalTokens(toks[:len(toks)-1], ident)
}

func TestEvalTokens(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"1", 1},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"1 << 4 | 1", 17},
		{"0x10 >> 2", 4},
		{"-1", -1},
		{"~0", -1},
		{"!5", 0},
		{"10 % 3", 1},
		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 1 ? 4 : 5", 4},
		{"3 > 2 && 2 > 1", 1},
		{"1 == 2 || 0", 0},
		{"(unsigned int)7", 7},
		{"(uint8_t)'A'", 65},
		{"1 << 64", 0},
		{"FOO + 1", 42},
	}
	ident := func(tok token) (int64, error) {
		if tok.text == "FOO" {
			return 41, nil
		}
		return 0, &Error{Pos: tok.pos, Msg: "undefined " + tok.text}
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalString(t, tt.expr, ident)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalTokensErrors(t *testing.T) {
	tests := []string{
		"1 / 0",
		"1 +",
		"(1",
		"1 2",
		"BAR",
		"\"str\"",
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := evalString(t, expr, nil)
			assert.Error(t, err)
		})
	}
}

func TestCanonicalBuiltin(t *testing.T) {
	tests := []struct {
		words []string
		want  string
	}{
		{[]string{"int"}, "int"},
		{[]string{"unsigned"}, "unsigned int"},
		{[]string{"long", "unsigned", "int"}, "unsigned long"},
		{[]string{"long", "long"}, "long long"},
		{[]string{"signed", "char"}, "signed char"},
		{[]string{"short", "int"}, "short"},
		{[]string{"long", "double"}, "long double"},
		{[]string{"bool"}, "_Bool"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := canonicalBuiltin(tt.words)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range [][]string{{"short", "long"}, {"unsigned", "signed"}, {"void", "int"}, {"long", "long", "long"}} {
		_, err := canonicalBuiltin(bad)
		assert.Error(t, err, "%v", bad)
	}
}
