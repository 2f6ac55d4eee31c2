package wikitext

import (
	"fmt"

	"github.com/leapstack-labs/wikidom/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrInvalidUTF8 = "invalid UTF-8 encoding"
	ErrTooDeep     = "markup nested too deeply"
)
