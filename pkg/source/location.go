// Package source carries file/line/column locations and the compiler's
// diagnostic (error/warning) sink, with rustc-style source-snippet rendering.
package source

import "fmt"

// Location is attached to every AST node and diagnostic. ByteOffset, the
// parser's byte position, is kept alongside Line/Column; neither the
// register allocator's CFG export nor the source map reads it.
type Location struct {
	File       string
	Line       int // 1-indexed
	Column     int // 1-indexed
	ByteOffset int
}

// Valid reports whether the location names a real file position.
func (l Location) Valid() bool { return l.File != "" && l.Line > 0 }

func (l Location) String() string {
	if !l.Valid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Span is a start/end pair used for underline length and for cast/coercion
// diagnostics that point at a whole expression rather than one token.
type Span struct {
	Start Location
	End   Location
}

// Len returns the underline width in columns, defaulting to 1 (a single
// caret) when start and end fall on different lines.
func (s Span) Len() int {
	if s.Start.Line != s.End.Line {
		return 1
	}
	n := s.End.Column - s.Start.Column
	if n < 1 {
		return 1
	}
	return n
}
