// Package token holds source positions shared by the wikitext grammar and the
// parse tree.
package token

import "fmt"

// Position represents a location in the wikitext source.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains returns true if the span contains the given offset.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// IsValid returns true if both start and end positions are valid.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid()
}

// Pos returns the start of the span.
func (s Span) Pos() Position { return s.Start }

// EndPos returns the end of the span.
func (s Span) EndPos() Position { return s.End }

// LineIndex maps byte offsets to line/column positions.
type LineIndex struct {
	starts []int
}

// NewLineIndex indexes the line starts of src.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Position returns the position of offset.
func (li *LineIndex) Position(offset int) Position {
	lo, hi := 0, len(li.starts)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid
		}
	}
	return Position{
		Line:   lo + 1,
		Column: offset - li.starts[lo] + 1,
		Offset: offset,
	}
}

// Span returns the span covering [start, end).
func (li *LineIndex) Span(start, end int) Span {
	return Span{Start: li.Position(start), End: li.Position(end)}
}
