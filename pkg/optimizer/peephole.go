// Package optimizer - Peephole optimization pass
// Recognizes algebraic identities that hold for every double
package optimizer

import (
	"math"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/ir"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

// PeepholeOptimize applies pattern-based peephole optimizations
func PeepholeOptimize(mod *ir.Module) *ir.Module {
	changes := 0

	for _, fn := range mod.Functions {
		for _, block := range fn.Blocks {
			changes += optimizeInstSequence(block)
		}
	}

	logger.LogOptimization("peephole", changes)
	return mod
}

// optimizeInstSequence drops instructions that are identities and
// forwards their surviving operand to later uses.
func optimizeInstSequence(block *ir.Block) int {
	if len(block.Insts) == 0 {
		return 0
	}

	changes := 0
	result := make([]ir.Inst, 0, len(block.Insts))

	for i, inst := range block.Insts {
		if binop, ok := inst.(*ir.BinOp); ok {
			if v := trySingleInstPattern(binop); v != nil {
				replaceUses(block, i+1, binop.Dest, v)
				changes++
				continue
			}
		}
		result = append(result, inst)
	}

	block.Insts = result
	return changes
}

// trySingleInstPattern returns the value binop reduces to, or nil.
// x+0 and x*0 are not identities for -0, Inf and NaN.
func trySingleInstPattern(binop *ir.BinOp) ir.Value {
	switch binop.Op {
	case ir.OpMul:
		if isConst(binop.R, 1) {
			return binop.L
		}
		if isConst(binop.L, 1) {
			return binop.R
		}
	case ir.OpSub:
		if isConst(binop.R, 0) {
			return binop.L
		}
	case ir.OpDiv:
		if isConst(binop.R, 1) {
			return binop.L
		}
	}
	return nil
}

func isConst(v ir.Value, want float64) bool {
	c, ok := v.(*ir.Const)
	return ok && c.Val == want && !math.Signbit(c.Val)
}
