// Package formula evaluates declarative arithmetic expressions over document
// fields using exact decimal arithmetic. Expressions support field
// references (including one-level link dereferences like "invoice.total"),
// decimal literals, the four basic operators, unary minus and parentheses.
package formula

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Resolver supplies the decimal value of a referenced field at evaluation
// time. Dotted names reach into a linked document.
type Resolver func(name string) (decimal.Decimal, error)

// Eval parses and evaluates expr against the given resolver.
func Eval(expr string, resolve Resolver) (decimal.Decimal, error) {
	p := &parser{input: expr, resolve: resolve}
	v, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return decimal.Zero, fmt.Errorf("unexpected trailing input at position %d in %q", p.pos, expr)
	}
	return v, nil
}

// Dependencies returns the local field names referenced by expr, in order of
// first appearance. A dotted reference depends on its local link field.
func Dependencies(expr string) ([]string, error) {
	p := &parser{input: expr, depsOnly: true}
	if _, err := p.parseExpr(); err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at position %d in %q", p.pos, expr)
	}
	return p.deps, nil
}

// Validate checks that expr parses without evaluating it.
func Validate(expr string) error {
	_, err := Dependencies(expr)
	return err
}

type parser struct {
	input    string
	pos      int
	resolve  Resolver
	depsOnly bool
	deps     []string
	seen     map[string]struct{}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

// parseExpr handles addition and subtraction.
func (p *parser) parseExpr() (decimal.Decimal, error) {
	left, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Add(right)
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

// parseTerm handles multiplication and division.
func (p *parser) parseTerm() (decimal.Decimal, error) {
	left, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			left = left.Mul(right)
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			if right.IsZero() && !p.depsOnly {
				return decimal.Zero, fmt.Errorf("division by zero in %q", p.input)
			}
			if !p.depsOnly {
				left = left.Div(right)
			}
		default:
			return left, nil
		}
	}
}

func (p *parser) parseFactor() (decimal.Decimal, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("missing closing parenthesis in %q", p.input)
		}
		p.pos++
		return v, nil
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return v.Neg(), nil
	case c >= '0' && c <= '9':
		return p.parseNumber()
	case isIdentStart(rune(c)):
		return p.parseReference()
	default:
		return decimal.Zero, fmt.Errorf("unexpected character %q at position %d in %q", c, p.pos, p.input)
	}
}

func (p *parser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	d, err := decimal.NewFromString(p.input[start:p.pos])
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric literal %q: %w", p.input[start:p.pos], err)
	}
	return d, nil
}

func (p *parser) parseReference() (decimal.Decimal, error) {
	start := p.pos
	dots := 0
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if isIdentPart(c) {
			p.pos++
			continue
		}
		if c == '.' && dots == 0 && p.pos+1 < len(p.input) && isIdentStart(rune(p.input[p.pos+1])) {
			dots++
			p.pos++
			continue
		}
		break
	}
	name := p.input[start:p.pos]
	p.recordDep(name)
	if p.depsOnly {
		return decimal.Zero, nil
	}
	v, err := p.resolve(name)
	if err != nil {
		return decimal.Zero, fmt.Errorf("resolving %q: %w", name, err)
	}
	return v, nil
}

func (p *parser) recordDep(name string) {
	// A dotted reference reads through the local link field.
	local := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		local = name[:i]
	}
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, ok := p.seen[local]; ok {
		return
	}
	p.seen[local] = struct{}{}
	p.deps = append(p.deps, local)
}

func isIdentStart(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isIdentPart(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}
