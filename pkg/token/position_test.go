package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineIndex_Position(t *testing.T) {
	src := "ab\ncde\n\nf"
	li := NewLineIndex(src)

	tests := []struct {
		offset int
		want   Position
	}{
		{0, Position{Line: 1, Column: 1, Offset: 0}},
		{2, Position{Line: 1, Column: 3, Offset: 2}},
		{3, Position{Line: 2, Column: 1, Offset: 3}},
		{5, Position{Line: 2, Column: 3, Offset: 5}},
		{7, Position{Line: 3, Column: 1, Offset: 7}},
		{8, Position{Line: 4, Column: 1, Offset: 8}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, li.Position(tt.offset), "offset %d", tt.offset)
	}
}

func TestSpan_Contains(t *testing.T) {
	s := NewLineIndex("hello world").Span(2, 5)

	assert.True(t, s.IsValid())
	assert.True(t, s.Contains(2))
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(5))
	assert.Equal(t, "1:3", s.Pos().String())
	assert.Equal(t, "-", Position{}.String())
}
