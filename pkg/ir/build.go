// Package ir - AST to IR conversion
// Design: Single pass, calls resolved against the module first and the
// prototype registry second.
package ir

import (
	"fmt"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/registry"
)

// LowerError reports why a function could not be lowered.
type LowerError struct {
	Function string
	Msg      string
}

func (e *LowerError) Error() string {
	return fmt.Sprintf("lowering %s: %s", e.Function, e.Msg)
}

type Builder struct {
	mod      *Module
	protos   *registry.Registry
	fnName   string
	named    map[string]*Param
	currentB *Block
	tempID   int
}

func NewBuilder(moduleName string, protos *registry.Registry) *Builder {
	if protos == nil {
		protos = registry.New()
	}
	return &Builder{
		mod:    &Module{Name: moduleName},
		protos: protos,
	}
}

// Module returns the module being built.
func (b *Builder) Module() *Module {
	return b.mod
}

// LowerPrototype declares proto in the module. Redeclaring a function
// with the same arity returns the existing one.
func (b *Builder) LowerPrototype(proto *frontend.Prototype) (*Function, error) {
	if fn := b.mod.Function(proto.Name); fn != nil {
		if len(fn.Params) != len(proto.Params) {
			return nil, &LowerError{Function: proto.Name, Msg: "redeclared with a different number of parameters"}
		}
		return fn, nil
	}

	fn := &Function{Name: proto.Name, Params: params(proto)}
	b.mod.Functions = append(b.mod.Functions, fn)
	return fn, nil
}

// LowerFunction records def's prototype in the registry and lowers its
// body. A function whose body fails to lower is removed from the module.
func (b *Builder) LowerFunction(def *frontend.FunctionDef) (*Function, error) {
	name := def.Proto.Name
	b.protos.Record(name, def.Proto)

	fn, err := b.getFunction(name)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, &LowerError{Function: name, Msg: "unknown function referenced"}
	}
	if !fn.IsDeclaration() {
		return nil, &LowerError{Function: name, Msg: "function cannot be redefined"}
	}
	if len(fn.Params) != len(def.Proto.Params) {
		return nil, &LowerError{Function: name, Msg: "redefined with a different number of parameters"}
	}
	fn.Params = params(def.Proto)

	b.fnName = name
	b.tempID = 0
	b.named = make(map[string]*Param, len(fn.Params))
	for _, p := range fn.Params {
		// A repeated name keeps its first binding
		if _, ok := b.named[p.Name]; !ok {
			b.named[p.Name] = p
		}
	}

	entry := &Block{Label: "entry"}
	b.currentB = entry
	fn.Blocks = []*Block{entry}

	val, err := b.buildExpression(def.Body)
	if err != nil {
		b.mod.Remove(fn)
		return nil, err
	}
	entry.Term = &Return{Value: val}

	logger.LogLowering(b.mod.Name, name, fn.InstCount())
	return fn, nil
}

func (b *Builder) buildExpression(expr frontend.Expr) (Value, error) {
	switch e := expr.(type) {
	case *frontend.NumberLiteral:
		return &Const{Val: e.Value}, nil

	case *frontend.VariableRef:
		if p, ok := b.named[e.Name]; ok {
			return p, nil
		}
		return nil, b.errorf("unknown variable name %q", e.Name)

	case *frontend.BinaryOp:
		left, err := b.buildExpression(e.Left)
		if err != nil {
			return nil, err
		}

		right, err := b.buildExpression(e.Right)
		if err != nil {
			return nil, err
		}

		op, ok := opFromFrontend(e.Op)
		if !ok {
			return nil, b.errorf("invalid binary operator %q", e.Op)
		}

		temp := b.newTemp()
		b.currentB.Insts = append(b.currentB.Insts, &BinOp{
			Dest: temp,
			Op:   op,
			L:    left,
			R:    right,
		})
		return temp, nil

	case *frontend.Call:
		callee, err := b.getFunction(e.Callee)
		if err != nil {
			return nil, err
		}
		if callee == nil {
			return nil, b.errorf("unknown function referenced %q", e.Callee)
		}
		if len(callee.Params) != len(e.Args) {
			return nil, b.errorf("incorrect # arguments passed to %q: want %d, got %d",
				e.Callee, len(callee.Params), len(e.Args))
		}

		args := make([]Value, 0, len(e.Args))
		for _, argExpr := range e.Args {
			arg, err := b.buildExpression(argExpr)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}

		temp := b.newTemp()
		b.currentB.Insts = append(b.currentB.Insts, &Call{
			Dest:     temp,
			Function: e.Callee,
			Args:     args,
		})
		return temp, nil

	default:
		return nil, b.errorf("unsupported expression type: %T", expr)
	}
}

// getFunction resolves name in the current module, then in the registry.
// A registry hit is declared into the module. It returns nil, nil when
// the name is unknown.
func (b *Builder) getFunction(name string) (*Function, error) {
	if fn := b.mod.Function(name); fn != nil {
		return fn, nil
	}
	if proto, ok := b.protos.Lookup(name); ok {
		return b.LowerPrototype(proto)
	}
	return nil, nil
}

func (b *Builder) newTemp() *Temp {
	temp := &Temp{ID: b.tempID}
	b.tempID++
	return temp
}

func (b *Builder) errorf(format string, args ...any) error {
	return &LowerError{Function: b.fnName, Msg: fmt.Sprintf(format, args...)}
}

func params(proto *frontend.Prototype) []*Param {
	ps := make([]*Param, len(proto.Params))
	for i, name := range proto.Params {
		ps[i] = &Param{Name: name, Index: i}
	}
	return ps
}

func opFromFrontend(op rune) (Op, bool) {
	switch op {
	case '+':
		return OpAdd, true
	case '-':
		return OpSub, true
	case '*':
		return OpMul, true
	case '/':
		return OpDiv, true
	case '<':
		return OpLt, true
	}
	return 0, false
}
