// Package driver runs the top-level read, lower and evaluate loop.
//
// Design: Each top-level form is handled on its own. A form that fails
// to parse costs exactly one token of input before the loop resumes, so
// a session survives any amount of malformed text.
package driver

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/engine"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/ir"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/optimizer"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/registry"
)

type Options struct {
	Name string // shown in logs, e.g. "stdin" or a file name
	In   io.Reader

	// Out receives IR listings, results and builtin output. Err receives
	// the prompt and diagnostics. They default to stdout and stderr.
	Out io.Writer
	Err io.Writer

	Prompt   bool
	Color    bool
	OptLevel int

	// LowerOnly prints IR without running anything.
	LowerOnly bool

	// Precedence defaults to frontend.DefaultPrecedence. It is frozen
	// when the driver is created.
	Precedence *frontend.Precedence

	// Registry and Engine may be shared across drivers. New ones are
	// created when nil.
	Registry *registry.Registry
	Engine   *engine.Engine
}

type Driver struct {
	opts   Options
	lexer  *frontend.Lexer
	parser *frontend.Parser
	protos *registry.Registry
	engine *engine.Engine
	log    *slog.Logger

	forms    int
	moduleID int
	errs     *multierror.Error

	promptColor *color.Color
	errColor    *color.Color
	infoColor   *color.Color
}

func New(opts Options) *Driver {
	if opts.Precedence == nil {
		opts.Precedence = frontend.DefaultPrecedence()
	}
	opts.Precedence.Freeze()
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Registry == nil {
		opts.Registry = registry.New()
	}
	if opts.Engine == nil {
		opts.Engine = engine.New(opts.Out)
	}
	if opts.Name == "" {
		opts.Name = "input"
	}

	lexer := frontend.NewLexer(opts.In)
	d := &Driver{
		opts:        opts,
		lexer:       lexer,
		parser:      frontend.NewParser(lexer, opts.Precedence),
		protos:      opts.Registry,
		engine:      opts.Engine,
		log:         logger.With("source", opts.Name),
		promptColor: color.New(color.FgCyan),
		errColor:    color.New(color.FgRed, color.Bold),
		infoColor:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{d.promptColor, d.errColor, d.infoColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	d.log.Debug("Binary operators", "ops", string(opts.Precedence.Operators()))
	return d
}

// Run handles top-level forms until end of input. It returns every
// failure of the session combined, or nil.
func (d *Driver) Run() error {
	start := time.Now()
	logger.LogSessionStart(d.opts.Name)

	d.loop()

	if err := d.lexer.Err(); err != nil {
		d.errs = multierror.Append(d.errs, errors.Wrapf(err, "reading %s", d.opts.Name))
	}

	d.log.Debug("Known prototypes", "count", d.protos.Len(), "names", d.protos.Names())

	failures := 0
	if d.errs != nil {
		failures = len(d.errs.Errors)
	}
	logger.LogSessionComplete(d.forms, failures, time.Since(start).String())
	return d.errs.ErrorOrNil()
}

func (d *Driver) loop() {
	for {
		if d.opts.Prompt {
			d.promptColor.Fprint(d.opts.Err, "ready> ")
		}

		tok := d.parser.Current()
		switch {
		case tok.Kind == frontend.EOF:
			return
		case tok.Is(';'):
			// ignore top-level semicolons
			d.parser.Advance()
		case tok.Kind == frontend.DEF:
			d.HandleDefinition()
		case tok.Kind == frontend.EXTERN:
			d.HandleExtern()
		default:
			d.HandleTopLevelExpression()
		}
	}
}

// HandleDefinition parses, lowers and loads one 'def'.
func (d *Driver) HandleDefinition() {
	d.forms++
	def, ok := parse(d, d.parser.ParseDefinition)
	if !ok {
		return
	}
	logger.LogParsing("definition", def.Proto.Name)

	fn, mod, ok := d.lower(def)
	if !ok {
		return
	}

	d.infoColor.Fprintln(d.opts.Out, "Read function definition:")
	fmt.Fprint(d.opts.Out, fn.String())

	if !d.opts.LowerOnly {
		h := d.engine.AddModule(mod)
		d.log.Debug("Module loaded", "module", mod.Name, "handle", int(h))
	}
}

// HandleExtern parses an 'extern' and records its prototype.
func (d *Driver) HandleExtern() {
	d.forms++
	proto, ok := parse(d, d.parser.ParseExtern)
	if !ok {
		return
	}
	logger.LogParsing("extern", proto.Name)

	logger.LogPhase("lower")
	fn, err := d.newBuilder().LowerPrototype(proto)
	if err != nil {
		d.fail("lower", err)
		return
	}
	logger.LogPhaseComplete("lower")

	d.infoColor.Fprintln(d.opts.Out, "Read extern:")
	fmt.Fprint(d.opts.Out, fn.String())

	d.protos.Record(proto.Name, proto)
}

// HandleTopLevelExpression evaluates a bare expression as an anonymous
// function and unloads it afterwards.
func (d *Driver) HandleTopLevelExpression() {
	d.forms++
	def, ok := parse(d, d.parser.ParseTopLevelExpr)
	if !ok {
		return
	}
	logger.LogParsing("expression", def.Proto.Name)

	fn, mod, ok := d.lower(def)
	if !ok {
		return
	}

	if d.opts.LowerOnly {
		d.infoColor.Fprintln(d.opts.Out, "Read top-level expression:")
		fmt.Fprint(d.opts.Out, fn.String())
		return
	}

	h := d.engine.AddModule(mod)
	defer d.engine.RemoveModule(h)

	logger.LogPhase("eval")
	v, err := d.engine.Call(frontend.AnonExprName)
	if err != nil {
		d.fail("eval", err)
		return
	}
	logger.LogPhaseComplete("eval")
	logger.LogEvaluation(mod.Name, v)
	d.infoColor.Fprintf(d.opts.Out, "Evaluated to %f\n", v)
}

// parse runs one parser entry point. On failure it reports the
// diagnostic and discards one token so the loop can resume.
func parse[T any](d *Driver, fn func() (T, error)) (T, bool) {
	logger.LogPhase("parse")
	node, err := fn()
	if err != nil {
		d.fail("parse", err)
		d.parser.Advance()
		return node, false
	}
	logger.LogPhaseComplete("parse")
	return node, true
}

// lower builds def into a fresh module and optimizes it.
func (d *Driver) lower(def *frontend.FunctionDef) (*ir.Function, *ir.Module, bool) {
	logger.LogPhase("lower")
	b := d.newBuilder()
	fn, err := b.LowerFunction(def)
	if err != nil {
		d.fail("lower", err)
		return nil, nil, false
	}
	logger.LogPhaseComplete("lower")

	logger.LogPhase("optimize")
	mod := optimizer.Optimize(b.Module(), d.opts.OptLevel)
	logger.LogPhaseComplete("optimize")
	return fn, mod, true
}

func (d *Driver) newBuilder() *ir.Builder {
	d.moduleID++
	return ir.NewBuilder(fmt.Sprintf("%s#%d", d.opts.Name, d.moduleID), d.protos)
}

func (d *Driver) fail(phase string, err error) {
	d.errs = multierror.Append(d.errs, err)

	line := 0
	var diag *frontend.Diagnostic
	if errors.As(err, &diag) {
		line = diag.Pos.Line
	}
	logger.LogDiagnostic(phase, line, err.Error())
	d.errColor.Fprintf(d.opts.Err, "Error: %s\n", err)
}
