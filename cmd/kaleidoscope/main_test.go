package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(*cli.Context, error) {}

	err := app.Run(append([]string{"kaleidoscope"}, args...))
	return out.String(), errOut.String(), err
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "kaleidoscope version "+version+"\n", out)
}

func TestRunJoinsFilesWithNewline(t *testing.T) {
	// Without a separator the trailing comment would swallow the call
	a := writeSource(t, "a.ks", "def f(x) x*2 # doubles")
	b := writeSource(t, "b.ks", "f(3);")

	out, errOut, err := runApp(t, "run", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Evaluated to 6.000000\n")
	assert.Empty(t, errOut)
}

func TestRunReportsFailures(t *testing.T) {
	src := writeSource(t, "bad.ks", ") 4;")

	out, errOut, err := runApp(t, "run", src)
	require.Error(t, err)
	assert.Contains(t, errOut, "Error: line 1, col 1: unknown token when expecting an expression")
	assert.Contains(t, out, "Evaluated to 4.000000\n")
}

func TestRunMissingFile(t *testing.T) {
	_, _, err := runApp(t, "run", filepath.Join(t.TempDir(), "missing.ks"))
	assert.Error(t, err)
}

func TestOptimizeFlagRange(t *testing.T) {
	_, _, err := runApp(t, "-O", "3", "version")
	assert.ErrorContains(t, err, "-O must be between 0 and 2, got 3")
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := writeSource(t, "kaleidoscope.yaml", "optimize: 0\n")
	src := writeSource(t, "f.ks", "def f(x) x*1;")

	out, _, err := runApp(t, "--config", cfg, "ir", src)
	require.NoError(t, err)
	assert.Contains(t, out, "fmul double %x, 1.000000e+00")

	out, _, err = runApp(t, "--config", cfg, "-O", "1", "ir", src)
	require.NoError(t, err)
	assert.Contains(t, out, "entry:\n  ret double %x\n")
	assert.NotContains(t, out, "fmul")
}

func TestBadConfig(t *testing.T) {
	cfg := writeSource(t, "kaleidoscope.yaml", "optimize: 9\n")
	_, _, err := runApp(t, "--config", cfg, "version")
	assert.ErrorContains(t, err, "optimize must be between 0 and 2")
}

func TestOpenSourcesClosesOnFailure(t *testing.T) {
	var opened []*os.File
	openFile = func(name string) (*os.File, error) {
		f, err := os.Open(name)
		if err == nil {
			opened = append(opened, f)
		}
		return f, err
	}
	defer func() { openFile = os.Open }()

	good := writeSource(t, "good.ks", "1;")
	_, _, err := openSources([]string{good, filepath.Join(t.TempDir(), "missing.ks")})
	require.Error(t, err)

	require.Len(t, opened, 1)
	assert.ErrorIs(t, opened[0].Close(), os.ErrClosed)
}

func TestParseFormReturnsNilNode(t *testing.T) {
	for _, src := range []string{"def (", "extern 1", ")"} {
		p := frontend.NewParser(frontend.NewStringLexer(src), nil)
		node, err := parseForm(p, p.Current())
		require.Error(t, err, src)
		assert.True(t, node == nil, src)
	}
}

func TestTokens(t *testing.T) {
	src := writeSource(t, "t.ks", "def f(x) x+1.5 # note")

	out, _, err := runApp(t, "tokens", src)
	require.NoError(t, err)
	for _, want := range []string{"def", "identifier", "1.5", "43", "eof"} {
		assert.Contains(t, out, want)
	}
}

func TestTokensTakesOneFile(t *testing.T) {
	a := writeSource(t, "a.ks", "1")
	_, _, err := runApp(t, "tokens", a, a)
	assert.ErrorContains(t, err, "at most one file")
}

func TestASTRecovers(t *testing.T) {
	src := writeSource(t, "a.ks", ") def f(x) x;\nextern g(a);\n1+2;")

	out, errOut, err := runApp(t, "ast", src)
	require.Error(t, err)
	assert.Contains(t, errOut, "Error: line 1, col 1: unknown token when expecting an expression")
	assert.Contains(t, out, "definition: (def f(x) x)\n")
	assert.Contains(t, out, "extern: g(a)\n")
	assert.Contains(t, out, "expression: (def __anon_expr() (+ 1 2))\n")
}
