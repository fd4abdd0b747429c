// Package main - Token and AST inspection commands
// Design: Same recovery as the driver, output meant for humans
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/ghaiklor/llvm-kaleidoscope/pkg/frontend"
	"github.com/ghaiklor/llvm-kaleidoscope/pkg/logger"
)

var astDumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// openFile is swapped out in tests.
var openFile = os.Open

// openSources concatenates files with a newline between each, so a token
// never spans two files. No files means stdin.
func openSources(paths []string) (io.Reader, func(), error) {
	if len(paths) == 0 {
		return os.Stdin, func() {}, nil
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	readers := make([]io.Reader, 0, 2*len(paths))
	for _, p := range paths {
		f, err := openFile(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		readers = append(readers, f, strings.NewReader("\n"))
	}
	return io.MultiReader(readers...), closeAll, nil
}

func sourceName(paths []string) string {
	if len(paths) == 0 {
		return "stdin"
	}
	return strings.Join(paths, ",")
}

func tokens(c *cli.Context) error {
	if c.NArg() > 1 {
		return errors.Errorf("tokens takes at most one file")
	}
	in, closeAll, err := openSources(c.Args().Slice())
	if err != nil {
		return err
	}
	defer closeAll()

	lexer := frontend.NewLexer(in)
	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Pos", "Kind", "Text", "Value"})
	table.SetAutoFormatHeaders(false)

	for {
		tok := lexer.Next()
		value := ""
		switch tok.Kind {
		case frontend.NUMBER:
			value = strconv.FormatFloat(tok.Num, 'g', -1, 64)
		case frontend.CHAR:
			value = strconv.Itoa(int(tok.Char))
		}
		table.Append([]string{tok.Pos.String(), tok.Kind.String(), tok.Text, value})
		if tok.Kind == frontend.EOF {
			break
		}
	}
	table.Render()

	logger.LogLexing(sourceName(c.Args().Slice()), lexer.Count())
	return lexer.Err()
}

func dumpAST(c *cli.Context) error {
	if c.NArg() > 1 {
		return errors.Errorf("ast takes at most one file")
	}
	in, closeAll, err := openSources(c.Args().Slice())
	if err != nil {
		return err
	}
	defer closeAll()

	prec, err := settings.cfg.PrecedenceTable()
	if err != nil {
		return err
	}
	p := frontend.NewParser(frontend.NewLexer(in), prec)

	failed := false
	for {
		tok := p.Current()
		if tok.Kind == frontend.EOF {
			break
		}
		if tok.Is(';') {
			p.Advance()
			continue
		}

		node, err := parseForm(p, tok)
		if err != nil {
			failed = true
			fmt.Fprintf(c.App.ErrWriter, "Error: %s\n", err)
			p.Advance()
			continue
		}

		fmt.Fprintf(c.App.Writer, "%s: %s\n", formLabel(node), node)
		astDumper.Fdump(c.App.Writer, node)
	}

	if failed {
		return cli.Exit("", 1)
	}
	return nil
}

func formLabel(node frontend.Node) string {
	switch n := node.(type) {
	case *frontend.FunctionDef:
		if n.IsAnon() {
			return "expression"
		}
		return "definition"
	case *frontend.Prototype:
		return "extern"
	}
	return "form"
}

// parseForm parses one top-level form. The explicit nil returns keep a
// failed parse from becoming an interface holding a nil pointer.
func parseForm(p *frontend.Parser, tok frontend.Token) (frontend.Node, error) {
	switch tok.Kind {
	case frontend.DEF:
		fn, err := p.ParseDefinition()
		if err != nil {
			return nil, err
		}
		return fn, nil
	case frontend.EXTERN:
		proto, err := p.ParseExtern()
		if err != nil {
			return nil, err
		}
		return proto, nil
	}
	fn, err := p.ParseTopLevelExpr()
	if err != nil {
		return nil, err
	}
	return fn, nil
}
