package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

const (
	// HeaderPrefix is the literal every frame must begin with.
	HeaderPrefix = "Content-Length: "

	// DefaultMaxContentLength bounds the size of a single message body.
	DefaultMaxContentLength = 64 << 20

	headerTerminator = "\r\n\r\n"
	headerLineEnd    = "\r\n"

	// A header block that grows past this without a terminator is garbage.
	maxHeaderLength = 1024

	readChunkSize = 4096
)

var (
	headerPrefixBytes     = []byte(HeaderPrefix)
	headerTerminatorBytes = []byte(headerTerminator)
	headerLineEndBytes    = []byte(headerLineEnd)
)

// FrameReader turns a byte stream into message bodies. Bytes are accumulated
// until a complete frame is available, so reads may be split at any point.
//
// A FrameReader has a single consumer and is not safe for concurrent use.
type FrameReader struct {
	r                io.Reader
	buf              []byte
	chunk            []byte
	maxContentLength int
	eof              bool
}

// FrameReaderOption configures a FrameReader.
type FrameReaderOption func(*FrameReader)

// WithMaxContentLength sets the largest body the reader will accept. Zero or
// less disables the limit.
func WithMaxContentLength(n int) FrameReaderOption {
	return func(f *FrameReader) {
		f.maxContentLength = n
	}
}

func NewFrameReader(r io.Reader, opts ...FrameReaderOption) *FrameReader {
	f := &FrameReader{
		r:                r,
		chunk:            make([]byte, readChunkSize),
		maxContentLength: DefaultMaxContentLength,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Next blocks until a complete frame is available and returns its body.
//
// It returns io.EOF when the stream ends cleanly between frames, and
// io.ErrUnexpectedEOF when it ends part way through one. Framing errors
// (see IsFramingError) are permanent.
func (f *FrameReader) Next() ([]byte, error) {
	for {
		body, n, err := parseFrame(f.buf, f.maxContentLength)
		if err != nil {
			return nil, err
		}

		if n > 0 {
			out := make([]byte, len(body))
			copy(out, body)
			f.discard(n)
			return out, nil
		}

		if f.eof {
			if len(f.buf) == 0 {
				return nil, io.EOF
			}

			return nil, io.ErrUnexpectedEOF
		}

		if err := f.fill(); err != nil {
			return nil, err
		}
	}
}

// Buffered returns the number of bytes read from the stream but not yet
// returned as part of a frame.
func (f *FrameReader) Buffered() int {
	return len(f.buf)
}

func (f *FrameReader) fill() error {
	n, err := f.r.Read(f.chunk)
	f.buf = append(f.buf, f.chunk[:n]...)

	if err == io.EOF {
		f.eof = true
		return nil
	}

	return err
}

func (f *FrameReader) discard(n int) {
	remaining := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:remaining]
}

// parseFrame looks for one complete frame at the front of buf. It returns the
// body and the total frame length, or a zero length when more bytes are needed.
func parseFrame(buf []byte, maxContentLength int) ([]byte, int, error) {
	if len(buf) < len(headerPrefixBytes) {
		return nil, 0, nil
	}

	if !bytes.HasPrefix(buf, headerPrefixBytes) {
		return nil, 0, ErrInvalidHeader
	}

	end := bytes.Index(buf, headerTerminatorBytes)
	if end < 0 {
		if len(buf) > maxHeaderLength {
			return nil, 0, fmt.Errorf("%w: no header terminator within %d bytes", ErrInvalidHeader, maxHeaderLength)
		}

		return nil, 0, nil
	}

	length, err := parseContentLength(buf[len(headerPrefixBytes):end])
	if err != nil {
		return nil, 0, err
	}

	if maxContentLength > 0 && length > maxContentLength {
		return nil, 0, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, maxContentLength)
	}

	bodyStart := end + len(headerTerminatorBytes)
	if len(buf)-bodyStart < length {
		return nil, 0, nil
	}

	return buf[bodyStart : bodyStart+length], bodyStart + length, nil
}

func isNotDigit(r rune) bool {
	return r < '0' || r > '9'
}

// parseContentLength parses the header block that follows the prefix. The
// value runs to the end of the first line, later header lines are ignored.
func parseContentLength(header []byte) (int, error) {
	if !utf8.Valid(header) {
		return 0, ErrHeaderEncoding
	}

	value := header
	if i := bytes.Index(header, headerLineEndBytes); i >= 0 {
		value = header[:i]
	}

	// A bare decimal, no sign and no padding
	if len(value) == 0 || bytes.IndexFunc(value, isNotDigit) >= 0 {
		return 0, fmt.Errorf("Failed to parse '%s': %w", value, ErrContentLength)
	}

	length, err := strconv.Atoi(string(value))
	if err != nil {
		return 0, fmt.Errorf("Failed to parse '%s': %w", value, ErrContentLength)
	}

	return length, nil
}
