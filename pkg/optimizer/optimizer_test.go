package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/ir"
)

func lower(t *testing.T, src string) (*ir.Module, *ir.Function) {
	t.Helper()
	p := frontend.NewParser(frontend.NewStringLexer(src), nil)
	var (
		def *frontend.FunctionDef
		err error
	)
	if p.Current().Kind == frontend.DEF {
		def, err = p.ParseDefinition()
	} else {
		def, err = p.ParseTopLevelExpr()
	}
	require.NoError(t, err)

	b := ir.NewBuilder("opt", nil)
	_, err = b.LowerPrototype(&frontend.Prototype{Name: "printd", Params: []string{"x"}})
	require.NoError(t, err)
	fn, err := b.LowerFunction(def)
	require.NoError(t, err)
	return b.Module(), fn
}

func returned(t *testing.T, fn *ir.Function) ir.Value {
	t.Helper()
	ret, ok := fn.Blocks[0].Term.(*ir.Return)
	require.True(t, ok)
	return ret.Value
}

func TestConstantFold(t *testing.T) {
	mod, fn := lower(t, "1+2*3")
	ConstantFold(mod)

	assert.Empty(t, fn.Blocks[0].Insts)
	assert.Equal(t, &ir.Const{Val: 7}, returned(t, fn))
}

func TestConstantFoldComparison(t *testing.T) {
	mod, fn := lower(t, "(1<2) + (3<2)")
	ConstantFold(mod)

	assert.Empty(t, fn.Blocks[0].Insts)
	assert.Equal(t, &ir.Const{Val: 1}, returned(t, fn))
}

func TestConstantFoldPartial(t *testing.T) {
	mod, fn := lower(t, "def f(x) x*(2+3)")
	ConstantFold(mod)

	insts := fn.Blocks[0].Insts
	require.Len(t, insts, 1)
	binop := insts[0].(*ir.BinOp)
	assert.Equal(t, ir.OpMul, binop.Op)
	assert.Equal(t, &ir.Const{Val: 5}, binop.R)
}

func TestPeephole(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // parameter the body reduces to
	}{
		{"multiply by one on the right", "def f(x) x*1", "x"},
		{"multiply by one on the left", "def f(x) 1*x", "x"},
		{"subtract zero", "def f(x) x-0", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, fn := lower(t, tt.src)
			PeepholeOptimize(mod)

			assert.Empty(t, fn.Blocks[0].Insts)
			param, ok := returned(t, fn).(*ir.Param)
			require.True(t, ok)
			assert.Equal(t, tt.want, param.Name)
		})
	}
}

func TestPeepholeKeepsNonIdentities(t *testing.T) {
	for _, src := range []string{"def f(x) x+0", "def f(x) x*0", "def f(x) 0-x"} {
		mod, fn := lower(t, src)
		PeepholeOptimize(mod)
		assert.Len(t, fn.Blocks[0].Insts, 1, src)
	}
}

func TestCommonSubexpressionElimination(t *testing.T) {
	mod, fn := lower(t, "def f(a b) (a+b)*(b+a)")
	CommonSubexpressionElimination(mod)

	insts := fn.Blocks[0].Insts
	require.Len(t, insts, 2)
	add := insts[0].(*ir.BinOp)
	mul := insts[1].(*ir.BinOp)
	assert.Same(t, add.Dest, mul.L)
	assert.Same(t, add.Dest, mul.R)
}

func TestCSEDoesNotMergeNonCommutative(t *testing.T) {
	mod, fn := lower(t, "def f(a b) (a-b)*(b-a)")
	CommonSubexpressionElimination(mod)
	assert.Len(t, fn.Blocks[0].Insts, 3)
}

func TestDeadCodeEliminationKeepsCalls(t *testing.T) {
	mod, fn := lower(t, "def f(x) printd(x+1)*0")
	fn.Blocks[0].Term = &ir.Return{Value: &ir.Const{Val: 0}}
	DeadCodeElimination(mod)

	// The multiply is dead, but the call and its argument survive
	insts := fn.Blocks[0].Insts
	require.Len(t, insts, 2)
	_, isCall := insts[1].(*ir.Call)
	assert.True(t, isCall)
}

func TestOptimizeLevels(t *testing.T) {
	src := "def f(a) (a*1 + 2*3) * (a + 6)"

	mod, fn := lower(t, src)
	Optimize(mod, 0)
	assert.Len(t, fn.Blocks[0].Insts, 5)

	mod, fn = lower(t, src)
	Optimize(mod, 1)
	// 2*3 folds, a*1 goes away, two adds and the multiply remain
	assert.Len(t, fn.Blocks[0].Insts, 3)

	mod, fn = lower(t, src)
	Optimize(mod, 2)
	// a+6 is computed once
	require.Len(t, fn.Blocks[0].Insts, 2)
	mul := fn.Blocks[0].Insts[1].(*ir.BinOp)
	assert.Same(t, mul.L, mul.R)
}
