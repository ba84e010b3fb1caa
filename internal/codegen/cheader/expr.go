package cheader

import (
	"fmt"
)

// identFunc resolves an identifier inside a constant expression.
type identFunc func(tok token) (int64, error)

// evalTokens evaluates an integer constant expression.
func evalTokens(toks []token, ident identFunc) (int64, error) {
	if len(toks) == 0 {
		return 0, fmt.Errorf("empty expression")
	}
	e := &exprParser{toks: toks, ident: ident}
	v, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if e.i < len(e.toks) {
		t := e.toks[e.i]
		return 0, &Error{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s in constant expression", t)}
	}
	return v, nil
}

type exprParser struct {
	toks  []token
	i     int
	ident identFunc
}

func (e *exprParser) peek() token {
	if e.i < len(e.toks) {
		return e.toks[e.i]
	}
	var end token
	if len(e.toks) > 0 {
		end.pos = e.toks[len(e.toks)-1].pos
	}
	return end
}

func (e *exprParser) errorf(format string, args ...any) error {
	return &Error{Pos: e.peek().pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *exprParser) accept(p string) bool {
	if e.peek().punct(p) {
		e.i++
		return true
	}
	return false
}

func (e *exprParser) ternary() (int64, error) {
	cond, err := e.binary(0)
	if err != nil {
		return 0, err
	}
	if !e.accept("?") {
		return cond, nil
	}
	a, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if !e.accept(":") {
		return 0, e.errorf("expected ':' in conditional expression")
	}
	b, err := e.ternary()
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6,
	"!=": 6,
	"<":  7,
	"<=": 7,
	">":  7,
	">=": 7,
	"<<": 8,
	">>": 8,
	"+":  9,
	"-":  9,
	"*":  10,
	"/":  10,
	"%":  10,
}

func (e *exprParser) binary(minPrec int) (int64, error) {
	lhs, err := e.unary()
	if err != nil {
		return 0, err
	}
	for {
		t := e.peek()
		prec, ok := binaryPrec[t.text]
		if t.kind != tPunct || !ok || prec <= minPrec {
			return lhs, nil
		}
		e.i++
		rhs, err := e.binary(prec)
		if err != nil {
			return 0, err
		}
		lhs, err = applyBinary(t, lhs, rhs)
		if err != nil {
			return 0, err
		}
	}
}

func applyBinary(op token, a, b int64) (int64, error) {
	switch op.text {
	case "||":
		return boolInt(a != 0 || b != 0), nil
	case "&&":
		return boolInt(a != 0 && b != 0), nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "&":
		return a & b, nil
	case "==":
		return boolInt(a == b), nil
	case "!=":
		return boolInt(a != b), nil
	case "<":
		return boolInt(a < b), nil
	case "<=":
		return boolInt(a <= b), nil
	case ">":
		return boolInt(a > b), nil
	case ">=":
		return boolInt(a >= b), nil
	case "<<":
		if b < 0 || b >= 64 {
			return 0, nil
		}
		return a << uint(b), nil
	case ">>":
		if b < 0 || b >= 64 {
			return 0, nil
		}
		return a >> uint(b), nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "%":
		if b == 0 {
			return 0, &Error{Pos: op.pos, Msg: "division by zero in constant expression"}
		}
		if op.text == "/" {
			return a / b, nil
		}
		return a % b, nil
	}
	return 0, &Error{Pos: op.pos, Msg: fmt.Sprintf("unsupported operator %s", op)}
}

func (e *exprParser) unary() (int64, error) {
	t := e.peek()
	if t.kind == tPunct {
		switch t.text {
		case "-", "+", "~", "!":
			e.i++
			v, err := e.unary()
			if err != nil {
				return 0, err
			}
			switch t.text {
			case "-":
				return -v, nil
			case "~":
				return ^v, nil
			case "!":
				return boolInt(v == 0), nil
			}
			return v, nil
		case "(":
			if e.isCast() {
				for !e.accept(")") {
					e.i++
				}
				return e.unary()
			}
			e.i++
			v, err := e.ternary()
			if err != nil {
				return 0, err
			}
			if !e.accept(")") {
				return 0, e.errorf("expected ')'")
			}
			return v, nil
		}
	}
	return e.primary()
}

// isCast reports whether the '(' at the cursor opens a cast to an
// arithmetic type, e.g. "(unsigned int)".
func (e *exprParser) isCast() bool {
	j := e.i + 1
	n := 0
	for ; j < len(e.toks); j++ {
		t := e.toks[j]
		if t.punct(")") {
			return n > 0
		}
		if t.punct("*") && n > 0 {
			continue
		}
		if t.kind != tIdent || !(isTypeKeyword(t.text) || IsWellKnownType(t.text)) {
			return false
		}
		n++
	}
	return false
}

func (e *exprParser) primary() (int64, error) {
	t := e.peek()
	switch t.kind {
	case tInt, tChar:
		e.i++
		return int64(t.val), nil
	case tIdent:
		e.i++
		if e.ident == nil {
			return 0, &Error{Pos: t.pos, Msg: fmt.Sprintf("undefined identifier %s in constant expression", t.text)}
		}
		return e.ident(t)
	case tEOF:
		return 0, e.errorf("unexpected end of constant expression")
	default:
		return 0, e.errorf("unexpected %s in constant expression", t)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
