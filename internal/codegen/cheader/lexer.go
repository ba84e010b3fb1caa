package cheader

import (
	"fmt"
	"strconv"
	"strings"
)

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tInt
	tFloat
	tChar
	tString
	tPunct
)

func (k tokKind) String() string {
	switch k {
	case tEOF:
		return "end of file"
	case tIdent:
		return "identifier"
	case tInt:
		return "integer"
	case tFloat:
		return "float"
	case tChar:
		return "character"
	case tString:
		return "string"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokKind
	text string
	pos  Pos
	// bol is set for the first token of a logical line.
	bol bool
	// space is set when whitespace or a comment precedes the token.
	space bool
	// val holds the value of integer and character literals.
	val      uint64
	unsigned bool
}

func (t token) is(kind tokKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) punct(text string) bool { return t.is(tPunct, text) }

func (t token) String() string {
	if t.kind == tEOF {
		return t.kind.String()
	}
	return strconv.Quote(t.text)
}

// Longest first so that maximal munch picks "<<=" over "<<".
var puncts = []string{
	"...", "<<=", ">>=",
	"->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=", "##",
}

type lexer struct {
	file string
	src  string
	off  int
	line int
	col  int
	bol  bool
}

func lex(file string, src []byte) ([]token, error) {
	lx := &lexer{file: file, src: string(src), line: 1, col: 1, bol: true}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.kind == tEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) pos() Pos {
	return Pos{File: lx.file, Line: lx.line, Col: lx.col}
}

func (lx *lexer) errorf(p Pos, format string, args ...any) error {
	return &Error{Pos: p, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peekAt(i int) byte {
	if lx.off+i < len(lx.src) {
		return lx.src[lx.off+i]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.off < len(lx.src); i++ {
		if lx.src[lx.off] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.off++
	}
}

// skipSpace consumes whitespace, comments and line splices. It reports
// whether anything was skipped.
func (lx *lexer) skipSpace() (bool, error) {
	skipped := false
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == '\n':
			lx.bol = true
			lx.advance(1)
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.advance(1)
		case c == '\\' && (lx.peekAt(1) == '\n' || (lx.peekAt(1) == '\r' && lx.peekAt(2) == '\n')):
			if lx.peekAt(1) == '\r' {
				lx.advance(3)
			} else {
				lx.advance(2)
			}
		case c == '/' && lx.peekAt(1) == '/':
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				// A spliced line comment continues on the next line.
				if lx.src[lx.off] == '\\' && lx.peekAt(1) == '\n' {
					lx.advance(2)
					continue
				}
				lx.advance(1)
			}
		case c == '/' && lx.peekAt(1) == '*':
			start := lx.pos()
			end := strings.Index(lx.src[lx.off+2:], "*/")
			if end < 0 {
				return skipped, lx.errorf(start, "unterminated comment")
			}
			lx.advance(end + 4)
		default:
			return skipped, nil
		}
		skipped = true
	}
	return skipped, nil
}

func (lx *lexer) next() (token, error) {
	space, err := lx.skipSpace()
	if err != nil {
		return token{}, err
	}
	tok := token{pos: lx.pos(), bol: lx.bol, space: space}
	lx.bol = false
	if lx.off >= len(lx.src) {
		tok.kind = tEOF
		return tok, nil
	}

	c := lx.src[lx.off]
	start := lx.off
	switch {
	case isIdentStart(c):
		for lx.off < len(lx.src) && isIdentChar(lx.src[lx.off]) {
			lx.advance(1)
		}
		tok.kind = tIdent
		tok.text = lx.src[start:lx.off]
		// Wide and unicode literal prefixes.
		if (tok.text == "L" || tok.text == "u" || tok.text == "U" || tok.text == "u8") && lx.off < len(lx.src) {
			switch lx.src[lx.off] {
			case '\'':
				return lx.charLit(tok, start)
			case '"':
				return lx.stringLit(tok, start)
			}
		}
		return tok, nil
	case isDigit(c) || (c == '.' && isDigit(lx.peekAt(1))):
		return lx.number(tok, start)
	case c == '\'':
		return lx.charLit(tok, start)
	case c == '"':
		return lx.stringLit(tok, start)
	}

	tok.kind = tPunct
	for _, p := range puncts {
		if strings.HasPrefix(lx.src[lx.off:], p) {
			lx.advance(len(p))
			tok.text = p
			return tok, nil
		}
	}
	lx.advance(1)
	tok.text = string(c)
	return tok, nil
}

func (lx *lexer) number(tok token, start int) (token, error) {
	// pp-number: digits, letters, dots and signed exponents.
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		if (c == '+' || c == '-') && lx.off > start {
			prev := lx.src[lx.off-1] | 0x20
			isHex := len(lx.src[start:lx.off]) > 1 && (lx.src[start+1]|0x20) == 'x'
			if prev == 'p' || (prev == 'e' && !isHex) {
				lx.advance(1)
				continue
			}
			break
		}
		if !isIdentChar(c) && c != '.' {
			break
		}
		lx.advance(1)
	}
	tok.text = lx.src[start:lx.off]

	v, unsigned, ok := parseIntLiteral(tok.text)
	if ok {
		tok.kind = tInt
		tok.val = v
		tok.unsigned = unsigned
		return tok, nil
	}
	if _, err := strconv.ParseFloat(strings.TrimRight(tok.text, "fFlL"), 64); err == nil || strings.ContainsAny(tok.text, ".pP") {
		tok.kind = tFloat
		return tok, nil
	}
	return tok, lx.errorf(tok.pos, "invalid numeric literal %s", tok.text)
}

func parseIntLiteral(text string) (val uint64, unsigned bool, ok bool) {
	body := strings.TrimRight(text, "uUlL")
	suffix := strings.ToLower(text[len(body):])
	switch suffix {
	case "", "u", "l", "ul", "lu", "ll", "ull", "llu":
	default:
		return 0, false, false
	}
	unsigned = strings.Contains(suffix, "u")

	base := 10
	digits := body
	switch {
	case len(body) > 2 && (body[:2] == "0x" || body[:2] == "0X"):
		base, digits = 16, body[2:]
	case len(body) > 2 && (body[:2] == "0b" || body[:2] == "0B"):
		base, digits = 2, body[2:]
	case len(body) > 1 && body[0] == '0':
		base, digits = 8, body[1:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, false, false
	}
	return v, unsigned, true
}

func (lx *lexer) charLit(tok token, start int) (token, error) {
	lx.advance(1) // opening quote
	var val uint64
	n := 0
	for {
		if lx.off >= len(lx.src) || lx.src[lx.off] == '\n' {
			return tok, lx.errorf(tok.pos, "unterminated character literal")
		}
		c := lx.src[lx.off]
		if c == '\'' {
			lx.advance(1)
			break
		}
		r, err := lx.escape()
		if err != nil {
			return tok, err
		}
		val = val<<8 | uint64(r&0xff)
		n++
	}
	if n == 0 {
		return tok, lx.errorf(tok.pos, "empty character literal")
	}
	tok.kind = tChar
	tok.text = lx.src[start:lx.off]
	tok.val = val
	return tok, nil
}

func (lx *lexer) stringLit(tok token, start int) (token, error) {
	lx.advance(1) // opening quote
	for {
		if lx.off >= len(lx.src) || lx.src[lx.off] == '\n' {
			return tok, lx.errorf(tok.pos, "unterminated string literal")
		}
		if lx.src[lx.off] == '"' {
			lx.advance(1)
			break
		}
		if _, err := lx.escape(); err != nil {
			return tok, err
		}
	}
	tok.kind = tString
	tok.text = lx.src[start:lx.off]
	return tok, nil
}

// escape consumes one possibly escaped character and returns its value.
func (lx *lexer) escape() (uint64, error) {
	c := lx.src[lx.off]
	if c != '\\' {
		lx.advance(1)
		return uint64(c), nil
	}
	p := lx.pos()
	lx.advance(1)
	if lx.off >= len(lx.src) {
		return 0, lx.errorf(p, "unterminated escape sequence")
	}
	c = lx.src[lx.off]
	lx.advance(1)
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'a':
		return 7, nil
	case 'b':
		return 8, nil
	case 'f':
		return 12, nil
	case 'v':
		return 11, nil
	case 'e':
		return 27, nil
	case '\\', '\'', '"', '?':
		return uint64(c), nil
	case 'x':
		var v uint64
		n := 0
		for lx.off < len(lx.src) && isHexDigit(lx.src[lx.off]) {
			v = v<<4 | uint64(hexVal(lx.src[lx.off]))
			lx.advance(1)
			n++
		}
		if n == 0 {
			return 0, lx.errorf(p, "\\x used with no following hex digits")
		}
		return v, nil
	default:
		if c >= '0' && c <= '7' {
			v := uint64(c - '0')
			for i := 0; i < 2 && lx.off < len(lx.src) && lx.src[lx.off] >= '0' && lx.src[lx.off] <= '7'; i++ {
				v = v<<3 | uint64(lx.src[lx.off]-'0')
				lx.advance(1)
			}
			return v, nil
		}
		return 0, lx.errorf(p, "unknown escape sequence \\%c", c)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f')
}

func hexVal(c byte) byte {
	if isDigit(c) {
		return c - '0'
	}
	return c|0x20 - 'a' + 10
}
