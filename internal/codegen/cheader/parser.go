package cheader

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"go.uber.org/multierr"
)

// Options configures preprocessing.
type Options struct {
	// Defines are predefined object-like macros (-DNAME=VALUE). An empty
	// value defines the macro as 1.
	Defines map[string]string
	// Undefines removes predefined macros (-UNAME).
	Undefines []string
}

// ParseArgs builds Options from a clang-style argument string such as
// "-DFEATURE=1 -U NDEBUG -Iinclude". Include paths are accepted and ignored
// since includes are not followed.
func ParseArgs(args string) (Options, error) {
	var opts Options
	words, err := shlex.Split(args)
	if err != nil {
		return opts, fmt.Errorf("split clang args: %w", err)
	}
	for i := 0; i < len(words); i++ {
		w := words[i]
		value := func(flag string) (string, error) {
			if v := strings.TrimPrefix(w, flag); v != "" {
				return v, nil
			}
			if i+1 >= len(words) {
				return "", fmt.Errorf("clang arg %s requires a value", flag)
			}
			i++
			return words[i], nil
		}
		switch {
		case strings.HasPrefix(w, "-D"):
			v, err := value("-D")
			if err != nil {
				return opts, err
			}
			name, val, _ := strings.Cut(v, "=")
			if opts.Defines == nil {
				opts.Defines = make(map[string]string)
			}
			opts.Defines[name] = val
		case strings.HasPrefix(w, "-U"):
			v, err := value("-U")
			if err != nil {
				return opts, err
			}
			opts.Undefines = append(opts.Undefines, v)
		case strings.HasPrefix(w, "-I"), strings.HasPrefix(w, "-isystem"), strings.HasPrefix(w, "-include"):
			if w == "-I" || w == "-isystem" || w == "-include" {
				i++
			}
		case strings.HasPrefix(w, "-"):
			// Other compiler flags (-std=, -x c, warnings) do not affect parsing.
			if w == "-x" {
				i++
			}
		default:
			return opts, fmt.Errorf("unexpected clang arg %q", w)
		}
	}
	return opts, nil
}

// ParseFile reads and parses the header at path.
func ParseFile(path string, opts Options) (*Header, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return Parse(path, src, opts)
}

// Parse parses src as a C header named filename. On error the returned
// Header holds every declaration that parsed cleanly and the error lists
// each diagnostic.
func Parse(filename string, src []byte, opts Options) (*Header, error) {
	toks, err := lex(filename, src)
	if err != nil {
		return nil, err
	}
	pp := newPreprocessor(opts)
	code := pp.run(toks)

	p := &parser{
		toks:       code,
		h:          &Header{Path: filename},
		enumConsts: make(map[string]int64),
	}
	p.parseFile()
	p.h.Defines = pp.defines
	p.h.Includes = pp.includes
	return p.h, multierr.Combine(pp.errs, p.errs)
}

type parser struct {
	toks []token
	i    int
	h    *Header
	errs error
	// externC counts open extern "C" blocks.
	externC int
	// braces counts record and enum bodies opened by the current declaration.
	braces     int
	enumConsts map[string]int64
}

type declSpec struct {
	pos     Pos
	typedef bool
	typ     TypeRef
	// def is the enum or record defined by this specifier, if any.
	def Decl
}

type declarator struct {
	pos      Pos
	name     string
	pointer  int
	array    []int64
	funcPtr  bool
	function bool
}

var qualifiers = map[string]bool{
	"extern":        true,
	"static":        true,
	"inline":        true,
	"__inline":      true,
	"__inline__":    true,
	"volatile":      true,
	"__volatile__":  true,
	"register":      true,
	"restrict":      true,
	"__restrict":    true,
	"__restrict__":  true,
	"_Noreturn":     true,
	"__extension__": true,
	"_Thread_local": true,
	"__thread":      true,
	"_Atomic":       true,
	"auto":          true,
	"__cdecl":       true,
	"__stdcall":     true,
	"__fastcall":    true,
}

var constQualifiers = map[string]bool{
	"const":     true,
	"__const":   true,
	"__const__": true,
}

var attributeKeywords = map[string]bool{
	"__attribute__": true,
	"__attribute":   true,
	"__declspec":    true,
	"__asm__":       true,
	"__asm":         true,
	"asm":           true,
	"_Alignas":      true,
	"alignas":       true,
}

func (p *parser) peek() token { return p.peekN(0) }

func (p *parser) peekN(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.peek()
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *parser) accept(punct string) bool {
	if p.peek().punct(punct) {
		p.next()
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return &Error{Pos: p.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(punct string) error {
	if !p.accept(punct) {
		return p.errorf("expected %q, found %s", punct, p.peek())
	}
	return nil
}

func (p *parser) parseFile() {
	for {
		t := p.peek()
		switch {
		case t.kind == tEOF:
			if p.externC > 0 {
				p.errs = multierr.Append(p.errs, &Error{Pos: t.pos, Msg: "unterminated extern \"C\" block"})
			}
			return
		case t.punct(";"):
			p.next()
			continue
		case t.punct("}") && p.externC > 0:
			p.next()
			p.externC--
			continue
		case t.punct("}"):
			p.errs = multierr.Append(p.errs, &Error{Pos: t.pos, Msg: "unexpected '}'"})
			p.next()
			continue
		case t.is(tIdent, "extern") && p.peekN(1).kind == tString:
			p.i += 2
			if p.accept("{") {
				p.externC++
			}
			continue
		case t.is(tIdent, "_Static_assert") || t.is(tIdent, "static_assert"):
			p.next()
			p.skipParens()
			p.accept(";")
			continue
		}
		p.braces = 0
		start := p.i
		if err := p.externalDecl(); err != nil {
			p.errs = multierr.Append(p.errs, err)
			p.sync()
		}
		if p.i == start {
			// Every pass must consume at least one token.
			p.next()
		}
	}
}

// sync skips to the end of the declaration an error occurred in.
func (p *parser) sync() {
	depth := p.braces
	p.braces = 0
	for {
		t := p.peek()
		switch {
		case t.kind == tEOF:
			return
		case t.punct("{"):
			depth++
		case t.punct("}"):
			if depth == 0 {
				// A closing extern "C" brace or a stray one; parseFile
				// consumes it.
				return
			}
			depth--
		case t.punct(";") && depth == 0:
			p.next()
			return
		}
		p.next()
	}
}

// skipParens skips a balanced parenthesised group at the cursor, if any.
func (p *parser) skipParens() {
	if !p.peek().punct("(") {
		return
	}
	depth := 0
	for {
		t := p.next()
		switch {
		case t.kind == tEOF:
			return
		case t.punct("("):
			depth++
		case t.punct(")"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (p *parser) skipBraces() {
	depth := 0
	for {
		t := p.next()
		switch {
		case t.kind == tEOF:
			return
		case t.punct("{"):
			depth++
		case t.punct("}"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// skipInitializer skips an initializer up to the next ',' or ';' at depth 0.
func (p *parser) skipInitializer() {
	depth := 0
	for {
		t := p.peek()
		switch {
		case t.kind == tEOF:
			return
		case t.punct("(") || t.punct("{") || t.punct("["):
			depth++
		case t.punct(")") || t.punct("}") || t.punct("]"):
			depth--
		case (t.punct(",") || t.punct(";")) && depth == 0:
			return
		}
		p.next()
	}
}

// skipAttributes skips GNU attributes, declspecs and asm labels.
func (p *parser) skipAttributes() {
	for p.peek().kind == tIdent && attributeKeywords[p.peek().text] {
		p.next()
		p.skipParens()
	}
}

func (p *parser) externalDecl() error {
	spec, err := p.declSpecifiers()
	if err != nil {
		return err
	}
	if p.accept(";") {
		return nil
	}
	for {
		d, err := p.declarator()
		if err != nil {
			return err
		}
		if d.name == "" {
			return p.errorf("expected identifier in declaration, found %s", p.peek())
		}
		if spec.typedef {
			if err := p.addTypedef(spec, d); err != nil {
				return err
			}
		} else if d.function && p.peek().punct("{") {
			p.skipBraces()
			return nil
		}
		if p.accept("=") {
			p.skipInitializer()
		}
		if p.accept(",") {
			continue
		}
		return p.expect(";")
	}
}

func (p *parser) declSpecifiers() (declSpec, error) {
	s := declSpec{pos: p.peek().pos}
	var words []string
	var wordsPos Pos
	haveType := false
	isConst := false

loop:
	for {
		t := p.peek()
		if t.kind != tIdent {
			break
		}
		switch {
		case t.text == "typedef":
			s.typedef = true
			p.next()
		case constQualifiers[t.text]:
			isConst = true
			p.next()
		case qualifiers[t.text]:
			p.next()
		case attributeKeywords[t.text]:
			p.skipAttributes()
		case t.text == "enum":
			if haveType || len(words) > 0 {
				return s, p.errorf("unexpected enum after type specifier")
			}
			if err := p.enumSpecifier(&s); err != nil {
				return s, err
			}
			haveType = true
		case t.text == "struct" || t.text == "union":
			if haveType || len(words) > 0 {
				return s, p.errorf("unexpected %s after type specifier", t.text)
			}
			if err := p.recordSpecifier(&s); err != nil {
				return s, err
			}
			haveType = true
		case isTypeKeyword(t.text):
			if haveType {
				return s, p.errorf("unexpected %s after type specifier", t.text)
			}
			if len(words) == 0 {
				wordsPos = t.pos
			}
			words = append(words, t.text)
			p.next()
		case !haveType && len(words) == 0:
			kind := Named
			if IsWellKnownType(t.text) {
				kind = Builtin
			}
			s.typ = TypeRef{Kind: kind, Name: t.text}
			haveType = true
			p.next()
		default:
			// The declarator's identifier.
			break loop
		}
	}

	if len(words) > 0 {
		name, err := canonicalBuiltin(words)
		if err != nil {
			return s, &Error{Pos: wordsPos, Msg: err.Error()}
		}
		s.typ = TypeRef{Kind: Builtin, Name: name}
		haveType = true
	}
	if !haveType {
		return s, p.errorf("expected type specifier, found %s", p.peek())
	}
	s.typ.Const = isConst
	return s, nil
}

func (p *parser) enumSpecifier(s *declSpec) error {
	start := p.next() // enum
	p.skipAttributes()
	tag := ""
	if p.peek().kind == tIdent {
		tag = p.next().text
	}
	p.skipAttributes()
	s.typ = TypeRef{Kind: EnumRef, Name: tag}
	if !p.accept("{") {
		if tag == "" {
			return p.errorf("expected enum tag or body, found %s", p.peek())
		}
		return nil
	}
	nested := p.braces > 0
	p.braces++

	e := &Enum{Pos: start.pos, Tag: tag}
	next := int64(0)
	for !p.accept("}") {
		nameTok := p.peek()
		if nameTok.kind != tIdent {
			return p.errorf("expected enumerator name, found %s", nameTok)
		}
		p.next()
		p.skipAttributes()
		val := next
		if p.accept("=") {
			exprToks := p.collectUntil(",", "}")
			if len(exprToks) == 0 {
				return p.errorf("expected expression for enumerator %s", nameTok.text)
			}
			v, err := evalTokens(exprToks, p.enumIdent)
			if err != nil {
				return err
			}
			val = v
		}
		if _, dup := p.enumConsts[nameTok.text]; dup {
			return &Error{Pos: nameTok.pos, Msg: fmt.Sprintf("redeclaration of enumerator %s", nameTok.text)}
		}
		p.enumConsts[nameTok.text] = val
		e.Variants = append(e.Variants, Variant{Pos: nameTok.pos, Name: nameTok.text, Value: val})
		next = val + 1
		if !p.accept(",") && !p.peek().punct("}") {
			return p.errorf("expected ',' or '}' after enumerator, found %s", p.peek())
		}
	}
	p.braces--
	p.skipAttributes()
	if nested && tag == "" {
		return &Error{Pos: start.pos, Msg: "anonymous nested enum is not supported"}
	}

	p.h.Decls = append(p.h.Decls, e)
	s.def = e
	return nil
}

func (p *parser) enumIdent(t token) (int64, error) {
	if v, ok := p.enumConsts[t.text]; ok {
		return v, nil
	}
	return 0, &Error{Pos: t.pos, Msg: fmt.Sprintf("undefined identifier %s in constant expression", t.text)}
}

// collectUntil returns the tokens up to (not including) the first of the
// stop punctuators found outside parentheses.
func (p *parser) collectUntil(stops ...string) []token {
	var out []token
	depth := 0
	for {
		t := p.peek()
		if t.kind == tEOF {
			return out
		}
		if depth == 0 && t.kind == tPunct {
			for _, s := range stops {
				if t.text == s {
					return out
				}
			}
		}
		switch {
		case t.punct("(") || t.punct("["):
			depth++
		case t.punct(")") || t.punct("]"):
			depth--
		}
		out = append(out, p.next())
	}
}

func (p *parser) recordSpecifier(s *declSpec) error {
	start := p.next() // struct or union
	kind, refKind := StructKind, StructRef
	if start.text == "union" {
		kind, refKind = UnionKind, UnionRef
	}
	p.skipAttributes()
	tag := ""
	if p.peek().kind == tIdent {
		tag = p.next().text
	}
	p.skipAttributes()
	s.typ = TypeRef{Kind: refKind, Name: tag}
	if !p.accept("{") {
		if tag == "" {
			return p.errorf("expected %s tag or body, found %s", kind, p.peek())
		}
		return nil
	}
	nested := p.braces > 0
	p.braces++

	r := &Record{Pos: start.pos, Kind: kind, Tag: tag}
	for !p.accept("}") {
		if p.accept(";") {
			continue
		}
		fs, err := p.declSpecifiers()
		if err != nil {
			return err
		}
		if fs.typedef {
			return &Error{Pos: fs.pos, Msg: "typedef inside " + kind.String()}
		}
		if p.accept(";") {
			continue
		}
		for {
			d, err := p.declarator()
			if err != nil {
				return err
			}
			f := Field{Pos: d.pos, Name: d.name, Type: typeFor(fs, d)}
			if p.accept(":") {
				bits := p.collectUntil(",", ";")
				if len(bits) == 0 {
					return p.errorf("expected bit-field width")
				}
				w, err := evalTokens(bits, p.enumIdent)
				if err != nil {
					return err
				}
				if w < 0 || w > 64 {
					return &Error{Pos: bits[0].pos, Msg: fmt.Sprintf("invalid bit-field width %d", w)}
				}
				f.BitWidth = int(w)
			}
			p.skipAttributes()
			if d.name == "" && f.BitWidth == 0 {
				return p.errorf("expected field name, found %s", p.peek())
			}
			if d.function {
				return &Error{Pos: d.pos, Msg: "function member " + d.name + " in " + kind.String()}
			}
			if d.name != "" {
				r.Fields = append(r.Fields, f)
			}
			if p.accept(",") {
				continue
			}
			if err := p.expect(";"); err != nil {
				return err
			}
			break
		}
	}
	p.braces--
	p.skipAttributes()
	if nested && tag == "" {
		return &Error{Pos: start.pos, Msg: "anonymous nested " + kind.String() + " is not supported"}
	}

	p.h.Decls = append(p.h.Decls, r)
	s.def = r
	return nil
}

func (p *parser) declarator() (declarator, error) {
	d := declarator{pos: p.peek().pos}
	for {
		if p.accept("*") {
			d.pointer++
			continue
		}
		t := p.peek()
		if t.kind == tIdent && (constQualifiers[t.text] || qualifiers[t.text]) {
			p.next()
			continue
		}
		if t.kind == tIdent && attributeKeywords[t.text] {
			p.skipAttributes()
			continue
		}
		break
	}

	if p.peek().punct("(") && p.isNestedDeclarator() {
		// (*name)(params) or (*name[N])(params)
		p.next()
		inner := 0
		for {
			if p.accept("*") {
				inner++
				continue
			}
			t := p.peek()
			if t.kind == tIdent && (constQualifiers[t.text] || qualifiers[t.text]) {
				p.next()
				continue
			}
			break
		}
		if p.peek().kind == tIdent {
			d.pos = p.peek().pos
			d.name = p.next().text
		}
		if err := p.arrays(&d); err != nil {
			return d, err
		}
		if err := p.expect(")"); err != nil {
			return d, err
		}
		if p.peek().punct("(") {
			p.skipParens()
			if inner == 0 {
				return d, &Error{Pos: d.pos, Msg: "function type declarator is not supported"}
			}
			d.funcPtr = true
			d.pointer = 0
		} else {
			d.pointer += inner
		}
	} else if p.peek().kind == tIdent {
		d.pos = p.peek().pos
		d.name = p.next().text
	}

	if err := p.arrays(&d); err != nil {
		return d, err
	}
	if p.peek().punct("(") && !d.funcPtr {
		p.skipParens()
		d.function = true
	}
	p.skipAttributes()
	return d, nil
}

// isNestedDeclarator reports whether the '(' at the cursor opens a nested
// declarator such as "(*cb)" rather than a parameter list.
func (p *parser) isNestedDeclarator() bool {
	next := p.peekN(1)
	return next.punct("*") || next.is(tIdent, "__cdecl") || next.is(tIdent, "__stdcall")
}

func (p *parser) arrays(d *declarator) error {
	for p.accept("[") {
		toks := p.collectUntil("]")
		if err := p.expect("]"); err != nil {
			return err
		}
		if len(toks) == 0 {
			d.array = append(d.array, 0)
			continue
		}
		n, err := evalTokens(toks, p.enumIdent)
		if err != nil {
			return err
		}
		if n < 0 {
			return &Error{Pos: toks[0].pos, Msg: fmt.Sprintf("negative array length %d", n)}
		}
		d.array = append(d.array, n)
	}
	return nil
}

func typeFor(s declSpec, d declarator) TypeRef {
	if d.funcPtr || d.function {
		return TypeRef{Kind: FuncPointer, ArrayLen: d.array}
	}
	t := s.typ
	t.Pointer = d.pointer
	t.ArrayLen = d.array
	return t
}

func (p *parser) addTypedef(s declSpec, d declarator) error {
	plain := d.pointer == 0 && len(d.array) == 0 && !d.funcPtr && !d.function
	switch def := s.def.(type) {
	case *Enum:
		if plain && def.TypedefName == "" {
			def.TypedefName = d.name
			return nil
		}
		if def.Tag == "" {
			return &Error{Pos: d.pos, Msg: "typedef " + d.name + " refers to an anonymous enum"}
		}
	case *Record:
		if plain && def.TypedefName == "" {
			def.TypedefName = d.name
			return nil
		}
		if def.Tag == "" {
			return &Error{Pos: d.pos, Msg: "typedef " + d.name + " refers to an anonymous " + def.Kind.String()}
		}
	}
	p.h.Decls = append(p.h.Decls, &Typedef{Pos: d.pos, Name: d.name, Target: typeFor(s, d)})
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
