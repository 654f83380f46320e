package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/humlsp/protocol"
	"github.com/luma/humlsp/session"
)

// ErrStreamClosed is returned by Serve when the client closes its end of the
// stream without sending exit.
var ErrStreamClosed = errors.New("Input stream closed before exit")

// Conn serves one client over a pair of streams, stdio or a socket.
type Conn struct {
	reader *protocol.FrameReader
	writer *protocol.Writer
	closer io.Closer

	session *session.Session
	strict  bool

	log *zap.Logger
}

// NewConn reads requests from in and writes responses and notifications to
// out. If out is an io.Closer it is closed by Close.
func NewConn(in io.Reader, out io.Writer, options Options) *Conn {
	options = options.withDefaults()

	writer := protocol.NewWriter(out)
	log := options.Log

	sess := session.New(session.Options{
		ServerInfo: options.ServerInfo,
		Log:        log.Named("session"),
		NewNotifier: func() session.Notifier {
			return NewSink(writer, options.QueueSize, log.Named("sink"))
		},
	})

	var readerOpts []protocol.FrameReaderOption
	if options.MaxContentLength > 0 {
		readerOpts = append(readerOpts, protocol.WithMaxContentLength(options.MaxContentLength))
	}

	c := &Conn{
		reader:  protocol.NewFrameReader(in, readerOpts...),
		writer:  writer,
		session: sess,
		strict:  options.Strict,
		log:     log,
	}

	if closer, ok := out.(io.Closer); ok {
		c.closer = closer
	}

	return c
}

func (c *Conn) Session() *session.Session {
	return c.session
}

// Serve reads and handles messages one at a time until the client exits, the
// stream ends or framing is lost.
//
// It returns session.ErrExit after a client exit, which callers should treat
// as success.
func (c *Conn) Serve(ctx context.Context) error {
	log := c.log.Named("readLoop")

	defer log.Info("Read loop exited")

	for {
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, exiting...")
			return ctx.Err()

		default:
			body, err := c.reader.Next()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				if errors.Is(err, io.EOF) {
					log.Warn("Client closed the input stream without exit")
					return ErrStreamClosed
				}

				if protocol.IsFramingError(err) {
					log.Error("Lost message framing, dropping the connection",
						zap.Int("buffered", c.reader.Buffered()),
						zap.Error(err))
					return fmt.Errorf("Failed to read message: %w", err)
				}

				log.Error("Failed to read client message", zap.Error(err))
				return fmt.Errorf("Failed to read message: %w", err)
			}

			resp, err := c.session.Handle(ctx, body)

			if resp != nil {
				if werr := c.writer.WriteMessage(resp); werr != nil {
					log.Error("Failed to write response", zap.Stringer("id", resp.ID), zap.Error(werr))
					return fmt.Errorf("Failed to write response: %w", werr)
				}
			}

			if err == nil {
				continue
			}

			if errors.Is(err, session.ErrExit) {
				return err
			}

			var violation *session.ViolationError
			if errors.As(err, &violation) && !c.strict {
				continue
			}

			return err
		}
	}
}

// Close drains pending notifications and closes the output.
func (c *Conn) Close() error {
	err := c.session.Close()

	if c.closer != nil {
		// The input may be the same stream, already closed to unblock Serve
		if cerr := c.closer.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && !errors.Is(cerr, os.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
	}

	return err
}
