// Package engine runs lowered modules.
//
// Design: Modules are added and removed as units, symbols resolve to the
// newest module that defines them, and anything left unresolved falls
// back to native builtins. Execution is a direct walk of the IR.
package engine

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/ir"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

// DefaultMaxDepth bounds call nesting.
const DefaultMaxDepth = 10000

// ErrStackOverflow is returned when calls nest deeper than MaxDepth.
var ErrStackOverflow = errors.New("call stack exhausted")

// Handle identifies an added module.
type Handle int

// Builtin is a native function callable from Kaleidoscope code.
type Builtin struct {
	Arity int
	Fn    func(args []float64) float64
}

type loaded struct {
	handle Handle
	mod    *ir.Module
}

type Engine struct {
	MaxDepth int

	modules  []loaded
	next     Handle
	builtins map[string]Builtin
}

// New creates an engine whose putchard and printd builtins write to out.
func New(out io.Writer) *Engine {
	e := &Engine{
		MaxDepth: DefaultMaxDepth,
		builtins: make(map[string]Builtin),
	}
	e.Register("putchard", Builtin{Arity: 1, Fn: func(args []float64) float64 {
		_, _ = out.Write([]byte{byte(args[0])})
		return 0
	}})
	e.Register("printd", Builtin{Arity: 1, Fn: func(args []float64) float64 {
		fmt.Fprintf(out, "%f\n", args[0])
		return 0
	}})
	return e
}

// Register adds or replaces a builtin.
func (e *Engine) Register(name string, b Builtin) {
	e.builtins[name] = b
}

// AddModule makes the functions defined in mod callable.
func (e *Engine) AddModule(mod *ir.Module) Handle {
	e.next++
	e.modules = append(e.modules, loaded{handle: e.next, mod: mod})
	logger.Debug("Module added", "module", mod.Name, "handle", int(e.next))
	return e.next
}

// RemoveModule unloads a module. It reports whether h was loaded.
func (e *Engine) RemoveModule(h Handle) bool {
	for i, l := range e.modules {
		if l.handle == h {
			e.modules = append(e.modules[:i], e.modules[i+1:]...)
			logger.Debug("Module removed", "module", l.mod.Name, "handle", int(h))
			return true
		}
	}
	return false
}

// FindSymbol returns the definition of name from the newest module that
// has a body for it.
func (e *Engine) FindSymbol(name string) (*ir.Function, bool) {
	for i := len(e.modules) - 1; i >= 0; i-- {
		if fn := e.modules[i].mod.Function(name); fn != nil && !fn.IsDeclaration() {
			return fn, true
		}
	}
	return nil, false
}

// Call runs name with args.
func (e *Engine) Call(name string, args ...float64) (float64, error) {
	v, err := e.call(name, args, 0)
	if err != nil {
		return 0, errors.Wrapf(err, "calling %s", name)
	}
	return v, nil
}

func (e *Engine) call(name string, args []float64, depth int) (float64, error) {
	if depth >= e.MaxDepth {
		return 0, errors.Wrapf(ErrStackOverflow, "%d nested calls", depth)
	}

	if fn, ok := e.FindSymbol(name); ok {
		if len(fn.Params) != len(args) {
			return 0, errors.Errorf("%s expects %d arguments, got %d", name, len(fn.Params), len(args))
		}
		return e.run(fn, args, depth)
	}

	if b, ok := e.builtins[name]; ok {
		if b.Arity != len(args) {
			return 0, errors.Errorf("%s expects %d arguments, got %d", name, b.Arity, len(args))
		}
		return b.Fn(args), nil
	}

	return 0, errors.Errorf("unresolved symbol %q", name)
}

func (e *Engine) run(fn *ir.Function, args []float64, depth int) (float64, error) {
	temps := make(map[*ir.Temp]float64)
	eval := func(v ir.Value) (float64, error) {
		switch v := v.(type) {
		case *ir.Const:
			return v.Val, nil
		case *ir.Param:
			return args[v.Index], nil
		case *ir.Temp:
			x, ok := temps[v]
			if !ok {
				return 0, errors.Errorf("%s: use of undefined temporary %%%d", fn.Name, v.ID)
			}
			return x, nil
		}
		return 0, errors.Errorf("%s: unsupported value %T", fn.Name, v)
	}

	block := fn.Blocks[0]
	for _, inst := range block.Insts {
		switch i := inst.(type) {
		case *ir.BinOp:
			l, err := eval(i.L)
			if err != nil {
				return 0, err
			}
			r, err := eval(i.R)
			if err != nil {
				return 0, err
			}
			temps[i.Dest] = i.Op.Eval(l, r)

		case *ir.Call:
			callArgs := make([]float64, len(i.Args))
			for j, a := range i.Args {
				x, err := eval(a)
				if err != nil {
					return 0, err
				}
				callArgs[j] = x
			}
			x, err := e.call(i.Function, callArgs, depth+1)
			if err != nil {
				return 0, err
			}
			temps[i.Dest] = x

		default:
			return 0, errors.Errorf("%s: unsupported instruction %T", fn.Name, inst)
		}
	}

	ret, ok := block.Term.(*ir.Return)
	if !ok {
		return 0, errors.Errorf("%s: block %s has no return", fn.Name, block.Label)
	}
	return eval(ret.Value)
}
