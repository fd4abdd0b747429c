package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
)

func TestModuleString(t *testing.T) {
	b := NewBuilder("demo", nil)
	_, err := b.LowerPrototype(&frontend.Prototype{Name: "sin", Params: []string{"x"}})
	require.NoError(t, err)
	_, err = b.LowerFunction(parseDef(t, "def f(a b) sin(a) < b*0.5"))
	require.NoError(t, err)

	want := `; ModuleID = 'demo'

declare double @sin(double %x)

define double @f(double %a, double %b) {
entry:
  %0 = call double @sin(double %a)
  %1 = fmul double %b, 5.000000e-01
  %2 = fcmp.ult double %0, %1
  ret double %2
}
`
	assert.Equal(t, want, b.Module().String())
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "fadd", OpAdd.String())
	assert.Equal(t, "fdiv", OpDiv.String())
	assert.Equal(t, "Op(42)", Op(42).String())
}

func TestDuplicateParameterNames(t *testing.T) {
	b := NewBuilder("dup", nil)
	fn, err := b.LowerPrototype(&frontend.Prototype{Name: "g", Params: []string{"a", "a", "a1", "a"}})
	require.NoError(t, err)
	assert.Equal(t, "declare double @g(double %a, double %a1, double %a11, double %a2)\n", fn.String())
}
