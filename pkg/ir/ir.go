// Package ir implements the intermediate representation.
//
// Design: Three-address code over a single double type. One block per
// function since the language has no control flow.
package ir

import "math"

// Module is one compilation unit. The driver opens a fresh module for
// every top-level form.
type Module struct {
	Name      string
	Functions []*Function
}

// Function is a declaration when it has no blocks.
type Function struct {
	Name   string
	Params []*Param
	Blocks []*Block
}

func (f *Function) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// Block is a basic block - straight-line code ending in a terminator
type Block struct {
	Label string
	Insts []Inst
	Term  Terminator
}

// Inst is a three-address code instruction
type Inst interface {
	inst()
}

// Terminator ends a basic block
type Terminator interface {
	term()
}

// Instructions
type BinOp struct {
	Dest *Temp
	Op   Op
	L    Value
	R    Value
}

func (*BinOp) inst() {}

type Call struct {
	Dest     *Temp
	Function string
	Args     []Value
}

func (*Call) inst() {}

// Terminators
type Return struct {
	Value Value
}

func (*Return) term() {}

// Values
type Value interface {
	value()
}

type Temp struct {
	ID int
}

func (*Temp) value() {}

type Const struct {
	Val float64
}

func (*Const) value() {}

type Param struct {
	Name  string
	Index int
}

func (*Param) value() {}

// Operations
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpLt
)

// Eval computes op on two doubles. OpLt is an unordered comparison: it
// yields 1 when l < r or either side is NaN, and 0 otherwise.
func (op Op) Eval(l, r float64) float64 {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	case OpLt:
		if l < r || math.IsNaN(l) || math.IsNaN(r) {
			return 1
		}
		return 0
	}
	return math.NaN()
}

// Function returns the function named name, or nil.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Remove deletes fn from the module.
func (m *Module) Remove(fn *Function) {
	for i, f := range m.Functions {
		if f == fn {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}

// InstCount is the number of instructions across all blocks.
func (f *Function) InstCount() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Insts)
	}
	return n
}
