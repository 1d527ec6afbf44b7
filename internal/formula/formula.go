// Package formula evaluates small arithmetic expressions over decimals:
// numbers, + - * /, unary minus, parentheses and named variables. Nothing
// else is accepted.
package formula

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

// ErrDivisionByZero is returned when a divisor evaluates to zero.
var ErrDivisionByZero = fmt.Errorf("formula: division by zero: %w", shared.ErrValidation)

const maxLength = 256

// Expr is a parsed expression.
type Expr struct {
	source string
	root   node
}

// Parse compiles src. Identifiers must appear in vars.
func Parse(src string, vars ...string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, syntaxError("empty expression")
	}
	if len(src) > maxLength {
		return nil, syntaxError("expression too long")
	}
	allowed := make(map[string]bool, len(vars))
	for _, v := range vars {
		allowed[v] = true
	}
	p := &parser{src: src, allowed: allowed}
	p.next()
	root, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, syntaxError(fmt.Sprintf("unexpected %q at %d", p.tok.text, p.tok.pos))
	}
	return &Expr{source: src, root: root}, nil
}

// String returns the source text.
func (e *Expr) String() string { return e.source }

// Eval computes the expression with the given bindings.
func (e *Expr) Eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	return e.root.eval(vars)
}

// Evaluate parses and evaluates src in one step.
func Evaluate(src string, vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	expr, err := Parse(src, names...)
	if err != nil {
		return decimal.Zero, err
	}
	return expr.Eval(vars)
}

func syntaxError(msg string) error {
	return fmt.Errorf("formula: %s: %w", msg, shared.ErrValidation)
}

type node interface {
	eval(vars map[string]decimal.Decimal) (decimal.Decimal, error)
}

type number decimal.Decimal

func (n number) eval(map[string]decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Decimal(n), nil
}

type variable string

func (v variable) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	val, ok := vars[string(v)]
	if !ok {
		return decimal.Zero, fmt.Errorf("formula: unbound variable %q: %w", string(v), shared.ErrValidation)
	}
	return val, nil
}

type negate struct{ operand node }

func (n negate) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Neg(), nil
}

type binary struct {
	op          byte
	left, right node
}

func (b binary) eval(vars map[string]decimal.Decimal) (decimal.Decimal, error) {
	l, err := b.left.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := b.right.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	switch b.op {
	case '+':
		return l.Add(r), nil
	case '-':
		return l.Sub(r), nil
	case '*':
		return l.Mul(r), nil
	case '/':
		if r.IsZero() {
			return decimal.Zero, ErrDivisionByZero
		}
		return l.Div(r), nil
	}
	return decimal.Zero, errors.New("formula: unknown operator")
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokInvalid
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src     string
	pos     int
	tok     token
	allowed map[string]bool
	depth   int
}

func (p *parser) next() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		p.tok = token{kind: tokNumber, text: p.src[start:p.pos], pos: start}
	case c == '_' || unicode.IsLetter(rune(c)):
		for p.pos < len(p.src) && (p.src[p.pos] == '_' || unicode.IsLetter(rune(p.src[p.pos])) || p.src[p.pos] >= '0' && p.src[p.pos] <= '9') {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos], pos: start}
	case c == '+' || c == '-' || c == '*' || c == '/':
		p.pos++
		p.tok = token{kind: tokOp, text: string(c), pos: start}
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	default:
		p.pos++
		p.tok = token{kind: tokInvalid, text: string(c), pos: start}
	}
}

func (p *parser) expr() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-") {
		op := p.tok.text[0]
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && (p.tok.text == "*" || p.tok.text == "/") {
		op := p.tok.text[0]
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.tok.kind == tokOp && p.tok.text == "-" {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negate{operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	tok := p.tok
	switch tok.kind {
	case tokNumber:
		v, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, syntaxError(fmt.Sprintf("bad number %q", tok.text))
		}
		p.next()
		return number(v), nil
	case tokIdent:
		if !p.allowed[tok.text] {
			return nil, syntaxError(fmt.Sprintf("unknown identifier %q", tok.text))
		}
		p.next()
		return variable(tok.text), nil
	case tokLParen:
		p.depth++
		if p.depth > 32 {
			return nil, syntaxError("nesting too deep")
		}
		p.next()
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, syntaxError("missing closing parenthesis")
		}
		p.depth--
		p.next()
		return inner, nil
	case tokEOF:
		return nil, syntaxError("unexpected end of expression")
	default:
		return nil, syntaxError(fmt.Sprintf("unexpected %q at %d", tok.text, tok.pos))
	}
}
