package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeader means the stream does not begin with a Content-Length
	// header. Framing is lost and the connection cannot recover.
	ErrInvalidHeader = errors.New("Message is malformed, expected a Content-Length header")

	// ErrHeaderEncoding means the header block is not valid UTF-8.
	ErrHeaderEncoding = errors.New("Message header is not valid UTF-8")

	// ErrContentLength means the Content-Length value is not a non-negative
	// decimal integer.
	ErrContentLength = errors.New("Content-Length is not a valid length")

	// ErrFrameTooLarge means the declared Content-Length is larger than the
	// reader is configured to buffer.
	ErrFrameTooLarge = errors.New("Content-Length exceeds the maximum message size")

	// ErrLengthMismatch means a complete frame's body is not exactly as long
	// as its header declares.
	ErrLengthMismatch = errors.New("Message body length does not match Content-Length")

	// ErrInvalidJSON means a body is not well formed JSON.
	ErrInvalidJSON = errors.New("Message body is not valid JSON")

	// ErrInvalidEnvelope means a body is JSON but not a JSON-RPC 2.0 message.
	ErrInvalidEnvelope = errors.New("Message body is not a JSON-RPC 2.0 message")
)

// SchemaError is returned when a message body cannot be decoded into the
// expected shape.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Message body does not match the expected schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsFramingError reports whether err means the stream framing is lost.
func IsFramingError(err error) bool {
	return errors.Is(err, ErrInvalidHeader) ||
		errors.Is(err, ErrHeaderEncoding) ||
		errors.Is(err, ErrContentLength) ||
		errors.Is(err, ErrFrameTooLarge)
}
