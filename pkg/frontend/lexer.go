// Package frontend - Lexer for Kaleidoscope
// Design: One character of lookahead, reads the source lazily so a REPL
// never blocks on more input than the current token needs.
package frontend

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
)

// eof is the lookahead value once the source is exhausted.
const eof rune = -1

type Lexer struct {
	src *bufio.Reader
	err error

	// lastChar is the one character of lookahead. It starts as a space so
	// the first Next skips leading whitespace like any other.
	lastChar rune
	line     int
	col      int

	count int
}

func NewLexer(r io.Reader) *Lexer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Lexer{
		src:      br,
		lastChar: ' ',
		line:     1,
	}
}

// NewStringLexer is a convenience for tests and tools.
func NewStringLexer(s string) *Lexer {
	return NewLexer(strings.NewReader(s))
}

// Err returns the first read error other than io.EOF. A failed read ends
// the token stream the same way end-of-input does.
func (l *Lexer) Err() error {
	return l.err
}

// Count returns how many tokens Next has produced.
func (l *Lexer) Count() int {
	return l.count
}

// Next returns the next token from the source.
func (l *Lexer) Next() Token {
	tok := l.scan()
	l.count++
	return tok
}

func (l *Lexer) scan() Token {
	for {
		for isSpace(l.lastChar) {
			l.read()
		}

		pos := Position{Line: l.line, Col: l.col}

		if isAlpha(l.lastChar) {
			return l.identifier(pos)
		}

		if isDigit(l.lastChar) || l.lastChar == '.' {
			return l.number(pos)
		}

		if l.lastChar == '#' {
			for l.lastChar != eof && l.lastChar != '\n' && l.lastChar != '\r' {
				l.read()
			}
			continue
		}

		if l.lastChar == eof {
			return Token{Kind: EOF, Pos: pos}
		}

		c := l.lastChar
		l.read()
		return Token{Kind: CHAR, Char: c, Text: string(c), Pos: pos}
	}
}

func (l *Lexer) identifier(pos Position) Token {
	var sb strings.Builder
	sb.WriteRune(l.lastChar)
	for l.read(); isAlnum(l.lastChar); l.read() {
		sb.WriteRune(l.lastChar)
	}

	text := sb.String()
	switch text {
	case "def":
		return Token{Kind: DEF, Text: text, Pos: pos}
	case "extern":
		return Token{Kind: EXTERN, Text: text, Pos: pos}
	}
	return Token{Kind: IDENT, Text: text, Pos: pos}
}

func (l *Lexer) number(pos Position) Token {
	var sb strings.Builder
	for isDigit(l.lastChar) || l.lastChar == '.' {
		sb.WriteRune(l.lastChar)
		l.read()
	}

	text := sb.String()
	return Token{Kind: NUMBER, Text: text, Num: ParseNumber(text), Pos: pos}
}

// ParseNumber converts lexed numeric text to its value. Text with more
// than one decimal point is accepted: only the longest valid prefix is
// used, so "1.2.3" is 1.2 and "." is 0.
func ParseNumber(text string) float64 {
	end := 0
	seenDot := false
	for end < len(text) {
		c := text[end]
		if c == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if !isDigit(rune(c)) {
			break
		}
		end++
	}

	prefix := text[:end]
	if prefix == "" || prefix == "." {
		return 0
	}
	// Only range errors are possible here, and ParseFloat already
	// returns ±Inf for those.
	v, _ := strconv.ParseFloat(prefix, 64)
	return v
}

func (l *Lexer) read() {
	if l.lastChar == '\n' {
		l.line++
		l.col = 0
	}
	if l.lastChar == eof {
		return
	}

	c, _, err := l.src.ReadRune()
	if err != nil {
		if !errors.Is(err, io.EOF) && l.err == nil {
			l.err = err
		}
		l.lastChar = eof
		l.col++
		return
	}
	l.lastChar = c
	l.col++
}

func isSpace(c rune) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isAlpha(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c rune) bool {
	return isAlpha(c) || isDigit(c)
}
