package cheader

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

type macro struct {
	name string
	body []token
	// fn marks function-like macros. Their invocations are left untouched.
	fn  bool
	pos Pos
}

type condFrame struct {
	pos          Pos
	parentActive bool
	active       bool
	taken        bool
	sawElse      bool
}

type preprocessor struct {
	macros   map[string]*macro
	defines  []*Define
	defIndex map[string]int
	includes []string
	conds    []condFrame
	out      []token
	errs     error
}

func newPreprocessor(opts Options) *preprocessor {
	pp := &preprocessor{
		macros:   make(map[string]*macro),
		defIndex: make(map[string]int),
	}
	pp.predefine("__STDC__", "1")
	pp.predefine("__STDC_VERSION__", "201112L")
	for _, name := range sortedKeys(opts.Defines) {
		pp.predefine(name, opts.Defines[name])
	}
	for _, name := range opts.Undefines {
		delete(pp.macros, name)
	}
	return pp
}

func (pp *preprocessor) predefine(name, value string) {
	if value == "" {
		value = "1"
	}
	body, err := lex("<command line>", []byte(value))
	if err != nil {
		pp.errs = multierr.Append(pp.errs, fmt.Errorf("-D%s=%s: %w", name, value, err))
		return
	}
	pp.macros[name] = &macro{name: name, body: body[:len(body)-1], pos: Pos{File: "<command line>"}}
}

func (pp *preprocessor) active() bool {
	return len(pp.conds) == 0 || pp.conds[len(pp.conds)-1].active
}

func (pp *preprocessor) errorf(p Pos, format string, args ...any) {
	pp.errs = multierr.Append(pp.errs, &Error{Pos: p, Msg: fmt.Sprintf(format, args...)})
}

// run filters toks down to the tokens of active code with object-like
// macros expanded.
func (pp *preprocessor) run(toks []token) []token {
	for i := 0; i < len(toks); {
		tok := toks[i]
		if tok.kind == tEOF {
			break
		}
		if tok.bol && tok.punct("#") {
			j := i + 1
			for j < len(toks) && !toks[j].bol && toks[j].kind != tEOF {
				j++
			}
			pp.directive(tok, toks[i+1:j])
			i = j
			continue
		}
		if pp.active() {
			pp.out = append(pp.out, pp.expand(tok, nil)...)
		}
		i++
	}
	for _, c := range pp.conds {
		pp.errorf(c.pos, "unterminated conditional directive")
	}
	eof := toks[len(toks)-1]
	eof.kind = tEOF
	pp.out = append(pp.out, eof)
	return pp.out
}

// expand returns tok with object-like macros replaced by their bodies.
// hide holds the macros already being expanded.
func (pp *preprocessor) expand(tok token, hide map[string]bool) []token {
	if tok.kind != tIdent || hide[tok.text] {
		return []token{tok}
	}
	m, ok := pp.macros[tok.text]
	if !ok || m.fn {
		return []token{tok}
	}
	inner := make(map[string]bool, len(hide)+1)
	for k := range hide {
		inner[k] = true
	}
	inner[m.name] = true
	var out []token
	for _, b := range m.body {
		b.bol = false
		for _, e := range pp.expand(b, inner) {
			// Report positions at the expansion site.
			e.pos = tok.pos
			out = append(out, e)
		}
	}
	if len(out) > 0 {
		out[0].space = tok.space
	}
	return out
}

func (pp *preprocessor) directive(hash token, line []token) {
	if len(line) == 0 {
		return // null directive
	}
	name := line[0]
	args := line[1:]
	switch name.text {
	case "if":
		pp.pushCond(hash.pos, func() bool { return pp.evalCond(hash, args) })
	case "ifdef", "ifndef":
		want := name.text == "ifdef"
		pp.pushCond(hash.pos, func() bool {
			if len(args) == 0 || args[0].kind != tIdent {
				pp.errorf(hash.pos, "#%s with no macro name", name.text)
				return false
			}
			_, defined := pp.macros[args[0].text]
			return defined == want
		})
	case "elif":
		if len(pp.conds) == 0 {
			pp.errorf(hash.pos, "#elif without #if")
			return
		}
		top := &pp.conds[len(pp.conds)-1]
		if top.sawElse {
			pp.errorf(hash.pos, "#elif after #else")
		}
		if top.taken || !top.parentActive {
			top.active = false
			return
		}
		top.active = pp.evalCond(hash, args)
		top.taken = top.active
	case "else":
		if len(pp.conds) == 0 {
			pp.errorf(hash.pos, "#else without #if")
			return
		}
		top := &pp.conds[len(pp.conds)-1]
		if top.sawElse {
			pp.errorf(hash.pos, "#else after #else")
		}
		top.sawElse = true
		top.active = top.parentActive && !top.taken
		top.taken = true
	case "endif":
		if len(pp.conds) == 0 {
			pp.errorf(hash.pos, "#endif without #if")
			return
		}
		pp.conds = pp.conds[:len(pp.conds)-1]
	}

	if !pp.active() {
		return
	}

	switch name.text {
	case "define":
		pp.define(hash, args)
	case "undef":
		if len(args) == 0 || args[0].kind != tIdent {
			pp.errorf(hash.pos, "#undef with no macro name")
			return
		}
		pp.undefine(args[0].text)
	case "include", "include_next", "import":
		pp.includes = append(pp.includes, joinTokens(args))
	case "error":
		pp.errorf(hash.pos, "#error %s", joinTokens(args))
	}
}

func (pp *preprocessor) pushCond(p Pos, eval func() bool) {
	parent := pp.active()
	frame := condFrame{pos: p, parentActive: parent}
	if parent {
		frame.active = eval()
		frame.taken = frame.active
	} else {
		frame.taken = true
	}
	pp.conds = append(pp.conds, frame)
}

func (pp *preprocessor) define(hash token, args []token) {
	if len(args) == 0 || args[0].kind != tIdent {
		pp.errorf(hash.pos, "#define with no macro name")
		return
	}
	name := args[0]
	m := &macro{name: name.text, pos: name.pos}
	body := args[1:]
	if len(body) > 0 && body[0].punct("(") && !body[0].space {
		m.fn = true
		pp.macros[m.name] = m
		pp.undefineConstant(m.name)
		return
	}
	m.body = body
	pp.macros[m.name] = m

	if len(body) == 0 {
		pp.undefineConstant(m.name)
		return
	}
	v, err := evalTokens(pp.expandAll(body, map[string]bool{m.name: true}), func(t token) (int64, error) {
		return 0, &Error{Pos: t.pos, Msg: fmt.Sprintf("%s is not an integer constant", t.text)}
	})
	if err != nil {
		// Not an integer macro; it still expands in code.
		pp.undefineConstant(m.name)
		return
	}
	d := &Define{Pos: name.pos, Name: m.name, Value: v, Text: joinTokens(body)}
	if i, ok := pp.defIndex[m.name]; ok {
		pp.defines[i] = d
		return
	}
	pp.defIndex[m.name] = len(pp.defines)
	pp.defines = append(pp.defines, d)
}

func (pp *preprocessor) undefine(name string) {
	delete(pp.macros, name)
	pp.undefineConstant(name)
}

func (pp *preprocessor) undefineConstant(name string) {
	i, ok := pp.defIndex[name]
	if !ok {
		return
	}
	pp.defines = append(pp.defines[:i], pp.defines[i+1:]...)
	delete(pp.defIndex, name)
	for k, j := range pp.defIndex {
		if j > i {
			pp.defIndex[k] = j - 1
		}
	}
}

func (pp *preprocessor) expandAll(toks []token, hide map[string]bool) []token {
	var out []token
	for _, t := range toks {
		out = append(out, pp.expand(t, hide)...)
	}
	return out
}

// evalCond evaluates the controlling expression of #if or #elif.
func (pp *preprocessor) evalCond(hash token, args []token) bool {
	if len(args) == 0 {
		pp.errorf(hash.pos, "#if with no expression")
		return false
	}
	resolved := make([]token, 0, len(args))
	for i := 0; i < len(args); i++ {
		t := args[i]
		if t.kind != tIdent || t.text != "defined" {
			resolved = append(resolved, pp.expand(t, nil)...)
			continue
		}
		var nameTok token
		switch {
		case i+1 < len(args) && args[i+1].kind == tIdent:
			nameTok = args[i+1]
			i++
		case i+3 < len(args) && args[i+1].punct("(") && args[i+2].kind == tIdent && args[i+3].punct(")"):
			nameTok = args[i+2]
			i += 3
		default:
			pp.errorf(t.pos, "operator \"defined\" requires an identifier")
			return false
		}
		_, ok := pp.macros[nameTok.text]
		resolved = append(resolved, token{kind: tInt, text: fmt.Sprint(boolInt(ok)), val: uint64(boolInt(ok)), pos: t.pos})
	}
	// Identifiers left after expansion evaluate to zero.
	v, err := evalTokens(resolved, func(token) (int64, error) { return 0, nil })
	if err != nil {
		pp.errs = multierr.Append(pp.errs, err)
		return false
	}
	return v != 0
}

func joinTokens(toks []token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t.space {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}
