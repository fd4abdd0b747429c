// Package main implements the kaleidoscope binary.
//
// Philosophy: One small pipeline, exposed stage by stage for inspection.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/config"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/driver"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

const version = "0.1.0"

// flag names
const (
	configFlagName    = "config"
	logLevelFlagName  = "log-level"
	logFormatFlagName = "log-format"
	logFileFlagName   = "log-file"
	optimizeFlagName  = "O"
	noColorFlagName   = "no-color"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kaleidoscope",
		Usage: "Read, lower and evaluate Kaleidoscope programs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlagName,
				Usage: "YAML config `FILE` (precedence table, optimization level, logging)",
			},
			&cli.StringFlag{
				Name:  logLevelFlagName,
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  logFormatFlagName,
				Usage: "text or json",
			},
			&cli.StringFlag{
				Name:  logFileFlagName,
				Usage: "append logs to `FILE` instead of stderr",
			},
			&cli.IntFlag{
				Name:  optimizeFlagName,
				Value: -1,
				Usage: "optimization level 0-2 (default from config, else 2)",
			},
			&cli.BoolFlag{
				Name:  noColorFlagName,
				Usage: "disable colored output",
			},
		},
		Before: setup,
		Action: repl,
		Commands: []*cli.Command{
			{
				Name:   "repl",
				Usage:  "interactive session on stdin",
				Action: repl,
			},
			{
				Name:      "run",
				Usage:     "run source files in one session",
				ArgsUsage: "FILE...",
				Action:    run,
			},
			{
				Name:      "ir",
				Usage:     "print the IR for source files without running them",
				ArgsUsage: "FILE...",
				Action:    lowerOnly,
			},
			{
				Name:      "tokens",
				Usage:     "print the token stream of a source file",
				ArgsUsage: "FILE",
				Action:    tokens,
			},
			{
				Name:      "ast",
				Usage:     "dump the syntax tree of each top-level form",
				ArgsUsage: "FILE",
				Action:    dumpAST,
			},
			{
				Name:  "version",
				Usage: "show version",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "kaleidoscope version %s\n", version)
					return nil
				},
			},
		},
	}
}

// settings is resolved once in setup from the config file and flags.
var settings struct {
	cfg      *config.Config
	optLevel int
}

func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFlagName))
	if err != nil {
		return err
	}

	if s := c.String(logLevelFlagName); s != "" {
		cfg.Log.Level = s
	}
	if s := c.String(logFormatFlagName); s != "" {
		cfg.Log.Format = s
	}
	if s := c.String(logFileFlagName); s != "" {
		cfg.Log.File = s
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}

	// Logs stay quiet unless asked for; stderr is shared with diagnostics.
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if lvl, _ := logger.ParseLevel(cfg.Log.Level); lvl == logger.LevelDebug && cfg.Log.Format == "" && cfg.Log.File == "" {
		logger.InitDev()
	} else if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return err
	}

	settings.cfg = cfg
	settings.optLevel = cfg.OptimizeLevel()
	if o := c.Int(optimizeFlagName); o >= 0 {
		if o > 2 {
			return errors.Errorf("-O must be between 0 and 2, got %d", o)
		}
		settings.optLevel = o
	}
	return nil
}

func newDriver(c *cli.Context, name string, in io.Reader, prompt, lowerOnly bool) (*driver.Driver, error) {
	prec, err := settings.cfg.PrecedenceTable()
	if err != nil {
		return nil, err
	}
	return driver.New(driver.Options{
		Name:       name,
		In:         in,
		Out:        c.App.Writer,
		Err:        c.App.ErrWriter,
		Prompt:     prompt,
		Color:      !c.Bool(noColorFlagName) && isTerminal(os.Stdout),
		OptLevel:   settings.optLevel,
		LowerOnly:  lowerOnly,
		Precedence: prec,
	}), nil
}

func repl(c *cli.Context) error {
	d, err := newDriver(c, "stdin", os.Stdin, isTerminal(os.Stdin), false)
	if err != nil {
		return err
	}
	// Errors were already shown as they happened.
	_ = d.Run()
	return nil
}

func run(c *cli.Context) error {
	in, closeAll, err := openSources(c.Args().Slice())
	if err != nil {
		return err
	}
	defer closeAll()

	d, err := newDriver(c, sourceName(c.Args().Slice()), in, false, false)
	if err != nil {
		return err
	}
	if err := d.Run(); err != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func lowerOnly(c *cli.Context) error {
	in, closeAll, err := openSources(c.Args().Slice())
	if err != nil {
		return err
	}
	defer closeAll()

	d, err := newDriver(c, sourceName(c.Args().Slice()), in, false, true)
	if err != nil {
		return err
	}
	if err := d.Run(); err != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
