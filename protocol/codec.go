package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Encode serialises v to JSON and frames it with a Content-Length header.
func Encode(v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("Failed to encode message: %w", err)
	}

	return Frame(body), nil
}

// Frame prefixes body with its Content-Length header.
func Frame(body []byte) []byte {
	header := HeaderPrefix + strconv.Itoa(len(body)) + headerTerminator

	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	out = append(out, body...)

	return out
}

// Decode parses a single complete frame and unmarshals its body into v.
func Decode(data []byte, v interface{}) error {
	if !bytes.HasPrefix(data, headerPrefixBytes) {
		return ErrInvalidHeader
	}

	end := bytes.Index(data, headerTerminatorBytes)
	if end < 0 {
		return fmt.Errorf("%w: missing header terminator", ErrInvalidHeader)
	}

	length, err := parseContentLength(data[len(headerPrefixBytes):end])
	if err != nil {
		return err
	}

	body := data[end+len(headerTerminatorBytes):]
	if len(body) != length {
		return fmt.Errorf("%w: declared %d bytes, got %d", ErrLengthMismatch, length, len(body))
	}

	return Unmarshal(body, v)
}

// Unmarshal decodes a message body into v, reporting failures as a
// *SchemaError.
func Unmarshal(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &SchemaError{Err: err}
	}

	return nil
}
