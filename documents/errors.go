package documents

import (
	"errors"
	"fmt"

	lsp "go.lsp.dev/protocol"
)

var (
	// ErrPositionOutOfRange means a position refers to a line the document
	// does not have.
	ErrPositionOutOfRange = errors.New("Position is outside of the document")

	// ErrInvalidRange means a range ends before it starts.
	ErrInvalidRange = errors.New("Range end is before its start")
)

// RangeError is returned when an edit cannot be applied to the current text.
// The client's view of the document has diverged from ours.
type RangeError struct {
	Range     lsp.Range
	LineCount int
	Err       error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf(
		"%v: %d:%d-%d:%d in a document of %d lines",
		e.Err,
		e.Range.Start.Line, e.Range.Start.Character,
		e.Range.End.Line, e.Range.End.Character,
		e.LineCount,
	)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}
