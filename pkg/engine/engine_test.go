package engine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/ir"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/registry"
)

// compile lowers each source form into its own module, sharing one
// registry, the way the driver does.
func compile(t *testing.T, protos *registry.Registry, src string) *ir.Module {
	t.Helper()
	p := frontend.NewParser(frontend.NewStringLexer(src), nil)
	b := ir.NewBuilder(src, protos)

	switch p.Current().Kind {
	case frontend.DEF:
		def, err := p.ParseDefinition()
		require.NoError(t, err)
		_, err = b.LowerFunction(def)
		require.NoError(t, err)
	case frontend.EXTERN:
		proto, err := p.ParseExtern()
		require.NoError(t, err)
		_, err = b.LowerPrototype(proto)
		require.NoError(t, err)
		protos.Record(proto.Name, proto)
	default:
		def, err := p.ParseTopLevelExpr()
		require.NoError(t, err)
		_, err = b.LowerFunction(def)
		require.NoError(t, err)
	}
	return b.Module()
}

func TestCallAcrossModules(t *testing.T) {
	protos := registry.New()
	e := New(&bytes.Buffer{})

	e.AddModule(compile(t, protos, "def sq(x) x*x"))
	e.AddModule(compile(t, protos, "def f(a b) sq(a) + sq(b) < 30"))

	v, err := e.Call("f", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = e.Call("f", 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestNewestModuleWins(t *testing.T) {
	protos := registry.New()
	e := New(&bytes.Buffer{})

	first := e.AddModule(compile(t, protos, "def k() 1"))
	second := e.AddModule(compile(t, protos, "def k() 2"))

	v, err := e.Call("k")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	require.True(t, e.RemoveModule(second))
	v, err = e.Call("k")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	require.True(t, e.RemoveModule(first))
	assert.False(t, e.RemoveModule(first))
	_, ok := e.FindSymbol("k")
	assert.False(t, ok)
}

func TestBuiltins(t *testing.T) {
	var out bytes.Buffer
	protos := registry.New()
	e := New(&out)

	compile(t, protos, "extern printd(x)")
	compile(t, protos, "extern putchard(c)")
	e.AddModule(compile(t, protos, "def show(x) printd(x) + putchard(65) + putchard(10)"))

	v, err := e.Call("show", 2.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, "2.500000\nA\n", out.String())
}

func TestRegisterBuiltin(t *testing.T) {
	e := New(&bytes.Buffer{})
	e.Register("twice", Builtin{Arity: 1, Fn: func(args []float64) float64 { return 2 * args[0] }})

	v, err := e.Call("twice", 21)
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	_, err = e.Call("twice", 1, 2)
	assert.ErrorContains(t, err, "twice expects 1 arguments, got 2")
}

func TestUnresolvedSymbol(t *testing.T) {
	protos := registry.New()
	e := New(&bytes.Buffer{})

	compile(t, protos, "extern missing(x)")
	e.AddModule(compile(t, protos, "def g(x) missing(x)"))

	_, err := e.Call("g", 1)
	assert.ErrorContains(t, err, `unresolved symbol "missing"`)
}

func TestUnboundedRecursion(t *testing.T) {
	protos := registry.New()
	e := New(&bytes.Buffer{})
	e.MaxDepth = 100

	e.AddModule(compile(t, protos, "def loop(x) loop(x+1)"))

	_, err := e.Call("loop", 0)
	assert.ErrorIs(t, err, ErrStackOverflow)
}

func TestArityMismatch(t *testing.T) {
	protos := registry.New()
	e := New(&bytes.Buffer{})
	e.AddModule(compile(t, protos, "def id(x) x"))

	_, err := e.Call("id")
	assert.ErrorContains(t, err, "id expects 1 arguments, got 0")
}
