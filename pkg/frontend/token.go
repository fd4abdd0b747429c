// Package frontend - Token definitions
// Design: Five named kinds, everything else is a raw character
package frontend

import (
	"fmt"
	"strconv"
)

type Kind int

const (
	EOF Kind = iota
	DEF
	EXTERN
	IDENT
	NUMBER

	// Any single character the lexer does not otherwise recognize.
	// Operators and punctuation all arrive this way.
	CHAR
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "eof"
	case DEF:
		return "def"
	case EXTERN:
		return "extern"
	case IDENT:
		return "identifier"
	case NUMBER:
		return "number"
	case CHAR:
		return "char"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Position is a 1-based line and column in the input.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

type Token struct {
	Kind Kind
	Text string  // identifier name, or the raw numeric text
	Num  float64 // NUMBER only
	Char rune    // CHAR only
	Pos  Position
}

// Is reports whether t is the single-character token c.
func (t Token) Is(c rune) bool {
	return t.Kind == CHAR && t.Char == c
}

func (t Token) String() string {
	switch t.Kind {
	case IDENT:
		return t.Text
	case NUMBER:
		return strconv.FormatFloat(t.Num, 'g', -1, 64)
	case CHAR:
		return strconv.QuoteRune(t.Char)
	}
	return t.Kind.String()
}
