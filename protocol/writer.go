package protocol

import (
	"io"
	"sync"
)

// WriteFrame writes body to w as a single framed message.
func WriteFrame(w io.Writer, body []byte) error {
	_, err := w.Write(Frame(body))
	return err
}

// WriteMessage encodes v and writes it to w as a single framed message.
func WriteMessage(w io.Writer, v interface{}) error {
	b, err := Encode(v)
	if err != nil {
		return err
	}

	_, err = w.Write(b)
	return err
}

// Writer serialises frames onto a shared output. Responses and notifications
// are written from different goroutines, each frame is written whole.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteFrame(body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WriteFrame(w.w, body)
}

func (w *Writer) WriteMessage(v interface{}) error {
	b, err := Encode(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err = w.w.Write(b)
	return err
}
