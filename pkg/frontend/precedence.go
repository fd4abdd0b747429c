// Package frontend - Binary operator precedence table
// Design: Configured once at startup, then frozen for the session
package frontend

import (
	"sort"

	"github.com/pkg/errors"
)

// Precedence maps single-character binary operators to binding strength.
// It is configured at startup and frozen before parsing begins.
type Precedence struct {
	table  map[rune]int
	frozen bool
}

func NewPrecedence() *Precedence {
	return &Precedence{table: make(map[rune]int)}
}

// DefaultPrecedence returns the standard table: '<' 10, '+' '-' 20, '*' 40.
func DefaultPrecedence() *Precedence {
	p := NewPrecedence()
	p.table['<'] = 10
	p.table['+'] = 20
	p.table['-'] = 20
	p.table['*'] = 40
	return p
}

// Set registers op with the given strength.
func (p *Precedence) Set(op rune, prec int) error {
	if p.frozen {
		return errors.Errorf("precedence table is frozen, cannot set %q", op)
	}
	if prec <= 0 {
		return errors.Errorf("precedence for %q must be positive, got %d", op, prec)
	}
	if !validOperator(op) {
		return errors.Errorf("%q cannot be used as a binary operator", op)
	}
	p.table[op] = prec
	return nil
}

// Freeze makes the table read-only.
func (p *Precedence) Freeze() {
	p.frozen = true
}

// Lookup returns the strength of op, or -1 if op is not a binary operator.
func (p *Precedence) Lookup(op rune) int {
	if op < 0 || op > 127 {
		return -1
	}
	prec, ok := p.table[op]
	if !ok || prec <= 0 {
		return -1
	}
	return prec
}

// Operators returns the registered operators in ascending order.
func (p *Precedence) Operators() []rune {
	ops := make([]rune, 0, len(p.table))
	for op := range p.table {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

func validOperator(op rune) bool {
	if op <= ' ' || op >= 127 || isAlnum(op) {
		return false
	}
	switch op {
	case '(', ')', ',', ';', '#', '.':
		return false
	}
	return true
}
