// Package frontend implements Kaleidoscope lexing, parsing and AST construction.
//
// Design: Minimal, focused on correctness. The AST is a closed set of
// plain structs; lowering lives in the backend, which switches on the
// concrete type.
package frontend

import (
	"strconv"
	"strings"
)

// AnonExprName is the prototype name given to bare top-level expressions.
const AnonExprName = "__anon_expr"

type Node interface {
	node()
	String() string
}

type Expr interface {
	Node
	expr()
}

// Expressions
type NumberLiteral struct {
	Value float64
}

func (*NumberLiteral) node() {}
func (*NumberLiteral) expr() {}

type VariableRef struct {
	Name string
}

func (*VariableRef) node() {}
func (*VariableRef) expr() {}

type BinaryOp struct {
	Op    rune
	Left  Expr
	Right Expr
}

func (*BinaryOp) node() {}
func (*BinaryOp) expr() {}

type Call struct {
	Callee string
	Args   []Expr
}

func (*Call) node() {}
func (*Call) expr() {}

// Top-level forms
type Prototype struct {
	Name   string
	Params []string
}

func (*Prototype) node() {}

type FunctionDef struct {
	Proto *Prototype
	Body  Expr
}

func (*FunctionDef) node() {}

// IsAnon reports whether f wraps a bare top-level expression.
func (f *FunctionDef) IsAnon() bool {
	return f.Proto.Name == AnonExprName
}

// S-expression renderings, used by tools and test failure output.

func (n *NumberLiteral) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (v *VariableRef) String() string {
	return v.Name
}

func (b *BinaryOp) String() string {
	return "(" + string(b.Op) + " " + b.Left.String() + " " + b.Right.String() + ")"
}

func (c *Call) String() string {
	var sb strings.Builder
	sb.WriteString("(call ")
	sb.WriteString(c.Callee)
	for _, a := range c.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (p *Prototype) String() string {
	return p.Name + "(" + strings.Join(p.Params, " ") + ")"
}

func (f *FunctionDef) String() string {
	return "(def " + f.Proto.String() + " " + f.Body.String() + ")"
}
