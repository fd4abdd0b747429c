// Package frontend - Parse diagnostics
// Design: First error of a form wins, positions are 1-based
package frontend

import "fmt"

// Diagnostic is a parse error. A parser keeps only the first one raised
// while parsing a top-level form.
type Diagnostic struct {
	Pos Position
	Msg string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", d.Pos.Line, d.Pos.Col, d.Msg)
}
