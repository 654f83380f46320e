package documents

import (
	"fmt"
	"strings"

	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Change is one edit from a didChange notification. A nil Range replaces the
// whole text.
type Change struct {
	Range *lsp.Range `json:"range,omitempty"`

	// RangeLength is deprecated by the protocol and ignored.
	RangeLength uint32 `json:"rangeLength,omitempty"`

	Text string `json:"text"`
}

// Document is the server's copy of a document open in the editor.
type Document struct {
	uri        uri.URI
	languageID string
	version    int32
	text       string

	// built on demand, nil whenever text has changed since
	lines lineIndex
}

func NewDocument(u uri.URI, languageID string, version int32, text string) *Document {
	return &Document{
		uri:        u,
		languageID: languageID,
		version:    version,
		text:       text,
	}
}

func (d *Document) URI() uri.URI {
	return d.uri
}

func (d *Document) LanguageID() string {
	return d.languageID
}

// Version is the version of the last open or change applied.
func (d *Document) Version() int32 {
	return d.version
}

func (d *Document) Text() string {
	return d.text
}

func (d *Document) LineCount() int {
	return len(d.index())
}

// OffsetAt returns the byte offset of pos in the text.
func (d *Document) OffsetAt(pos lsp.Position) (int, error) {
	lines := d.index()

	offset, ok := lines.offset(d.text, pos)
	if !ok {
		return 0, &RangeError{
			Range:     lsp.Range{Start: pos, End: pos},
			LineCount: len(lines),
			Err:       ErrPositionOutOfRange,
		}
	}

	return offset, nil
}

// PositionAt returns the position of a byte offset, clamped to the text.
func (d *Document) PositionAt(offset int) lsp.Position {
	return d.index().position(d.text, offset)
}

// ApplyChanges applies changes in order, each against the result of the one
// before, then sets the version. Either every change applies or the document
// is left as it was.
func (d *Document) ApplyChanges(version int32, changes []Change) error {
	text, lines := d.text, d.lines

	for i, change := range changes {
		if change.Range == nil {
			text, lines = change.Text, nil
			continue
		}

		if lines == nil {
			lines = buildLineIndex(text)
		}

		updated, err := applyRange(text, lines, *change.Range, change.Text)
		if err != nil {
			return fmt.Errorf("Failed to apply change %d of %d: %w", i+1, len(changes), err)
		}

		text, lines = updated, nil
	}

	d.text, d.lines, d.version = text, lines, version
	return nil
}

func (d *Document) index() lineIndex {
	if d.lines == nil {
		d.lines = buildLineIndex(d.text)
	}

	return d.lines
}

// applyRange replaces the text between rng's start and end. Everything before
// the start, including the start line's prefix, and everything after the end,
// including the end line's suffix, is kept as is.
func applyRange(text string, lines lineIndex, rng lsp.Range, replacement string) (string, error) {
	if before(rng.End, rng.Start) {
		return "", &RangeError{Range: rng, LineCount: len(lines), Err: ErrInvalidRange}
	}

	start, ok := lines.offset(text, rng.Start)
	if !ok {
		return "", &RangeError{Range: rng, LineCount: len(lines), Err: ErrPositionOutOfRange}
	}

	end, ok := lines.offset(text, rng.End)
	if !ok {
		return "", &RangeError{Range: rng, LineCount: len(lines), Err: ErrPositionOutOfRange}
	}

	var b strings.Builder
	b.Grow(start + len(replacement) + len(text) - end)
	b.WriteString(text[:start])
	b.WriteString(replacement)
	b.WriteString(text[end:])

	return b.String(), nil
}

func before(a, b lsp.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}

	return a.Character < b.Character
}
