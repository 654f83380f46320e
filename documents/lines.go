package documents

import (
	"sort"
	"unicode/utf8"

	lsp "go.lsp.dev/protocol"
)

// lineIndex holds the byte offset at which each line starts. It always has at
// least one entry. A line ends at `\n`, `\r\n` or a lone `\r`.
type lineIndex []int

func buildLineIndex(text string) lineIndex {
	starts := make(lineIndex, 1, 64)

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			starts = append(starts, i+1)

		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			starts = append(starts, i+1)
		}
	}

	return starts
}

// contentEnd returns the offset at which line's content ends, before its
// terminator.
func (l lineIndex) contentEnd(text string, line int) int {
	if line+1 >= len(l) {
		return len(text)
	}

	start, end := l[line], l[line+1]

	if end > start && text[end-1] == '\n' {
		end--
	}
	if end > start && text[end-1] == '\r' {
		end--
	}

	return end
}

// offset converts pos to a byte offset into text. The position just past the
// final line terminator, (len(l), 0), is the end of the text.
func (l lineIndex) offset(text string, pos lsp.Position) (int, bool) {
	line := int(pos.Line)

	if line >= len(l) {
		if line == len(l) && pos.Character == 0 {
			return len(text), true
		}
		return 0, false
	}

	start := l[line]
	end := l.contentEnd(text, line)

	return start + utf16ToByteOffset(text[start:end], pos.Character), true
}

// position converts a byte offset into text to a position.
func (l lineIndex) position(text string, offset int) lsp.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	line := sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1

	start := l[line]
	end := l.contentEnd(text, line)
	if offset < end {
		end = offset
	}

	return lsp.Position{
		Line:      uint32(line),
		Character: byteToUTF16Offset(text[start:end]),
	}
}

// utf16ToByteOffset returns the byte offset in line of the given UTF-16 code
// unit offset. Offsets past the end clamp to the end of the line, offsets
// inside a surrogate pair round down to the start of the code point.
func utf16ToByteOffset(line string, character uint32) int {
	var units uint32

	for i, r := range line {
		n := runeUTF16Len(r)
		if units+n > character {
			return i
		}
		units += n
	}

	return len(line)
}

func byteToUTF16Offset(s string) uint32 {
	var units uint32

	for _, r := range s {
		units += runeUTF16Len(r)
	}

	return units
}

func runeUTF16Len(r rune) uint32 {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}

	return 1
}
