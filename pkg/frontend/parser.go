// Package frontend - Recursive descent parser for Kaleidoscope
// Design: One token of lookahead, precedence climbing for binary
// operators, early return on the first error of a form.
package frontend

import (
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

type Parser struct {
	lexer   *Lexer
	prec    *Precedence
	current Token
	primed  bool
	diag    *Diagnostic
}

// NewParser creates a parser reading tokens from lexer. A nil prec uses
// DefaultPrecedence. The first token is read lazily so a caller can
// print a prompt before the parser blocks on input.
func NewParser(lexer *Lexer, prec *Precedence) *Parser {
	if prec == nil {
		prec = DefaultPrecedence()
	}
	return &Parser{
		lexer: lexer,
		prec:  prec,
	}
}

// Current returns the lookahead token.
func (p *Parser) Current() Token {
	if !p.primed {
		p.advance()
	}
	return p.current
}

// Advance discards the lookahead token and returns the next one. The
// top-level loop uses it to skip ';' and to recover after a failed form.
func (p *Parser) Advance() Token {
	if !p.primed {
		p.advance()
	}
	p.advance()
	return p.current
}

// ParseExpression parses primary { binop primary }.
func (p *Parser) ParseExpression() (Expr, error) {
	p.begin()
	e := p.expression()
	return e, p.finish()
}

// ParsePrototype parses name '(' { name } ')'.
func (p *Parser) ParsePrototype() (*Prototype, error) {
	p.begin()
	proto := p.prototype()
	return proto, p.finish()
}

// ParseDefinition parses 'def' prototype expression.
func (p *Parser) ParseDefinition() (*FunctionDef, error) {
	p.begin()
	fn := p.definition()
	return fn, p.finish()
}

// ParseExtern parses 'extern' prototype.
func (p *Parser) ParseExtern() (*Prototype, error) {
	p.begin()
	p.advance() // consume 'extern'
	proto := p.prototype()
	return proto, p.finish()
}

// ParseTopLevelExpr parses an expression and wraps it in a zero-argument
// function named AnonExprName.
func (p *Parser) ParseTopLevelExpr() (*FunctionDef, error) {
	p.begin()
	body := p.expression()
	if body == nil {
		return nil, p.finish()
	}
	return &FunctionDef{
		Proto: &Prototype{Name: AnonExprName, Params: []string{}},
		Body:  body,
	}, p.finish()
}

func (p *Parser) definition() *FunctionDef {
	p.advance() // consume 'def'

	proto := p.prototype()
	if proto == nil {
		return nil
	}

	body := p.expression()
	if body == nil {
		return nil
	}

	return &FunctionDef{Proto: proto, Body: body}
}

func (p *Parser) prototype() *Prototype {
	if p.current.Kind != IDENT {
		p.error("expected function name in prototype")
		return nil
	}
	name := p.current.Text
	p.advance()

	if !p.current.Is('(') {
		p.error("expected '(' in prototype")
		return nil
	}

	params := []string{}
	for p.advance(); p.current.Kind == IDENT; p.advance() {
		params = append(params, p.current.Text)
	}

	if !p.current.Is(')') {
		p.error("expected ')' in prototype")
		return nil
	}
	p.advance()

	return &Prototype{Name: name, Params: params}
}

func (p *Parser) expression() Expr {
	lhs := p.primary()
	if lhs == nil {
		return nil
	}
	return p.binOpRHS(0, lhs)
}

// binOpRHS folds operators binding at least minPrec onto lhs. An
// operator binding tighter than the one before it is climbed into the
// right operand first, so equal strengths associate to the left.
func (p *Parser) binOpRHS(minPrec int, lhs Expr) Expr {
	for {
		prec := p.tokenPrecedence()
		if prec < minPrec {
			return lhs
		}

		op := p.current.Char
		p.advance()

		rhs := p.primary()
		if rhs == nil {
			return nil
		}

		if prec < p.tokenPrecedence() {
			rhs = p.binOpRHS(prec+1, rhs)
			if rhs == nil {
				return nil
			}
		}

		lhs = &BinaryOp{Op: op, Left: lhs, Right: rhs}
	}
}

func (p *Parser) primary() Expr {
	switch {
	case p.current.Kind == IDENT:
		return p.identifierExpr()
	case p.current.Kind == NUMBER:
		n := &NumberLiteral{Value: p.current.Num}
		p.advance()
		return n
	case p.current.Is('('):
		return p.parenExpr()
	}

	p.error("unknown token when expecting an expression")
	return nil
}

func (p *Parser) identifierExpr() Expr {
	name := p.current.Text
	p.advance()

	if !p.current.Is('(') {
		return &VariableRef{Name: name}
	}
	p.advance()

	args := []Expr{}
	if !p.current.Is(')') {
		for {
			arg := p.expression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)

			if p.current.Is(')') {
				break
			}
			if !p.current.Is(',') {
				p.error("expected ')' or ',' in argument list")
				return nil
			}
			p.advance()
		}
	}
	p.advance() // consume ')'

	return &Call{Callee: name, Args: args}
}

func (p *Parser) parenExpr() Expr {
	p.advance() // consume '('

	e := p.expression()
	if e == nil {
		return nil
	}

	if !p.current.Is(')') {
		p.error("expected )")
		return nil
	}
	p.advance()

	return e
}

func (p *Parser) tokenPrecedence() int {
	if p.current.Kind != CHAR {
		return -1
	}
	return p.prec.Lookup(p.current.Char)
}

func (p *Parser) advance() {
	p.primed = true
	p.current = p.lexer.Next()
}

func (p *Parser) begin() {
	if !p.primed {
		p.advance()
	}
	p.diag = nil
}

func (p *Parser) finish() error {
	if p.diag == nil {
		return nil
	}
	return p.diag
}

func (p *Parser) error(msg string) {
	if p.diag != nil {
		return
	}
	p.diag = &Diagnostic{Pos: p.current.Pos, Msg: msg}
	logger.Debug("Parse error", "pos", p.current.Pos.String(), "token", p.current.String(), "message", msg)
}
