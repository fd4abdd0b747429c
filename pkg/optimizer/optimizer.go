// Package optimizer - IR-level optimizations
// Design: Simple, effective passes for fast compilation
package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/ir"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

// Optimize applies all optimization passes
func Optimize(mod *ir.Module, level int) *ir.Module {
	logger.Debug("Running optimization passes", "module", mod.Name, "level", level)

	if level <= 0 {
		return mod
	}

	// Level 1: Basic optimizations
	mod = ConstantFold(mod)
	mod = PeepholeOptimize(mod)
	mod = DeadCodeElimination(mod)

	if level >= 2 {
		// Level 2: Redundancy elimination, then clean up what it orphaned
		mod = CommonSubexpressionElimination(mod)
		mod = DeadCodeElimination(mod)
	}

	return mod
}

// ConstantFold performs constant folding
func ConstantFold(mod *ir.Module) *ir.Module {
	changes := 0

	for _, fn := range mod.Functions {
		for _, block := range fn.Blocks {
			newInsts := make([]ir.Inst, 0, len(block.Insts))

			for i, inst := range block.Insts {
				if binop, ok := inst.(*ir.BinOp); ok {
					l, lok := binop.L.(*ir.Const)
					r, rok := binop.R.(*ir.Const)
					if lok && rok {
						// Both operands are constant - fold and forward the result
						folded := &ir.Const{Val: binop.Op.Eval(l.Val, r.Val)}
						replaceUses(block, i+1, binop.Dest, folded)
						changes++
						continue
					}
				}
				newInsts = append(newInsts, inst)
			}

			block.Insts = newInsts
		}
	}

	logger.LogOptimization("constant-fold", changes)
	return mod
}

// DeadCodeElimination removes arithmetic whose result is never used.
// Calls are always kept since builtins have side effects.
func DeadCodeElimination(mod *ir.Module) *ir.Module {
	changes := 0

	for _, fn := range mod.Functions {
		for _, block := range fn.Blocks {
			used := make(map[*ir.Temp]bool)
			markUsed(used, block.Term)

			// Walk backwards so a dead chain dies in one pass
			kept := make([]ir.Inst, 0, len(block.Insts))
			for i := len(block.Insts) - 1; i >= 0; i-- {
				inst := block.Insts[i]
				if binop, ok := inst.(*ir.BinOp); ok && !used[binop.Dest] {
					changes++
					continue
				}
				for _, v := range operands(inst) {
					if t, ok := v.(*ir.Temp); ok {
						used[t] = true
					}
				}
				kept = append(kept, inst)
			}

			for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
				kept[i], kept[j] = kept[j], kept[i]
			}
			block.Insts = kept
		}
	}

	logger.LogOptimization("dead-code", changes)
	return mod
}

// CommonSubexpressionElimination eliminates redundant computations
func CommonSubexpressionElimination(mod *ir.Module) *ir.Module {
	changes := 0

	for _, fn := range mod.Functions {
		for _, block := range fn.Blocks {
			exprMap := make(map[string]*ir.Temp)
			newInsts := make([]ir.Inst, 0, len(block.Insts))

			for i, inst := range block.Insts {
				if binop, ok := inst.(*ir.BinOp); ok {
					key := binopKey(binop)
					if existing, found := exprMap[key]; found {
						replaceUses(block, i+1, binop.Dest, existing)
						changes++
						continue
					}
					exprMap[key] = binop.Dest
				}
				newInsts = append(newInsts, inst)
			}

			block.Insts = newInsts
		}
	}

	logger.LogOptimization("cse", changes)
	return mod
}

func binopKey(binop *ir.BinOp) string {
	l, r := valueKey(binop.L), valueKey(binop.R)
	if binop.Op == ir.OpAdd || binop.Op == ir.OpMul {
		ks := []string{l, r}
		sort.Strings(ks)
		l, r = ks[0], ks[1]
	}
	return fmt.Sprintf("%d:%s:%s", binop.Op, l, r)
}

func valueKey(v ir.Value) string {
	switch v := v.(type) {
	case *ir.Temp:
		return fmt.Sprintf("t%d", v.ID)
	case *ir.Param:
		return fmt.Sprintf("p%d", v.Index)
	case *ir.Const:
		return fmt.Sprintf("c%x", math.Float64bits(v.Val))
	}
	return fmt.Sprintf("%p", v)
}

// replaceUses rewrites every use of from, starting at instruction index
// start, to to. Temps are defined once so earlier uses cannot exist.
func replaceUses(block *ir.Block, start int, from *ir.Temp, to ir.Value) {
	swap := func(v ir.Value) ir.Value {
		if t, ok := v.(*ir.Temp); ok && t == from {
			return to
		}
		return v
	}

	for _, inst := range block.Insts[start:] {
		switch i := inst.(type) {
		case *ir.BinOp:
			i.L = swap(i.L)
			i.R = swap(i.R)
		case *ir.Call:
			for j, a := range i.Args {
				i.Args[j] = swap(a)
			}
		}
	}
	if ret, ok := block.Term.(*ir.Return); ok {
		ret.Value = swap(ret.Value)
	}
}

func operands(inst ir.Inst) []ir.Value {
	switch i := inst.(type) {
	case *ir.BinOp:
		return []ir.Value{i.L, i.R}
	case *ir.Call:
		return i.Args
	}
	return nil
}

func markUsed(used map[*ir.Temp]bool, term ir.Terminator) {
	if ret, ok := term.(*ir.Return); ok {
		if t, ok := ret.Value.(*ir.Temp); ok {
			used[t] = true
		}
	}
}
