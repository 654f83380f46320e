package client

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	lsp "go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/luma/humlsp/protocol"
)

var ErrDisconnected = errors.New("Connection to the server is closed")

// Conn is a minimal language client. It is used to drive a server end to end,
// from tests or a debugging session.
type Conn struct {
	conn   io.ReadWriteCloser
	writer *protocol.Writer
	reader *protocol.FrameReader

	notificationChan chan *protocol.Notification

	respMu    sync.Mutex
	respChans map[string]chan *protocol.Response

	idMu      sync.Mutex
	requestID int64

	done    chan struct{}
	readErr error

	log *zap.Logger
}

func New(conn io.ReadWriteCloser, log *zap.Logger) *Conn {
	c := &Conn{
		conn:             conn,
		writer:           protocol.NewWriter(conn),
		reader:           protocol.NewFrameReader(conn),
		notificationChan: make(chan *protocol.Notification, 255),
		respChans:        make(map[string]chan *protocol.Response),
		done:             make(chan struct{}),
		log:              log,
	}

	go c.readLoop()

	return c
}

func Dial(ctx context.Context, addr string, log *zap.Logger) (*Conn, error) {
	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return New(conn, log), nil
}

// Notifications returns the notifications sent by the server. It is closed
// when the connection ends.
func (c *Conn) Notifications() <-chan *protocol.Notification {
	return c.notificationChan
}

// Done is closed when the server closes the connection.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read loop, once Done is closed.
func (c *Conn) Err() error {
	<-c.done
	return c.readErr
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// Call sends a request and waits for its response.
func (c *Conn) Call(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	id, respChan := c.createResponseChan()
	defer c.destroyResponseChan(id)

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	if err := c.writer.WriteMessage(req); err != nil {
		return nil, err
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			return nil, ErrDisconnected
		}
		return resp, nil

	case <-c.done:
		return nil, ErrDisconnected

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Notify(method string, params interface{}) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}

	return c.writer.WriteMessage(n)
}

// WriteRaw writes body as a frame, whatever it contains.
func (c *Conn) WriteRaw(body []byte) error {
	return c.writer.WriteFrame(body)
}

func (c *Conn) Initialize(ctx context.Context, name string) (*protocol.Response, error) {
	resp, err := c.Call(ctx, string(lsp.MethodInitialize), map[string]interface{}{
		"processId":    nil,
		"clientInfo":   lsp.ClientInfo{Name: name},
		"capabilities": map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return resp, resp.Error
	}

	return resp, c.Notify(string(lsp.MethodInitialized), map[string]interface{}{})
}

func (c *Conn) Shutdown(ctx context.Context) error {
	resp, err := c.Call(ctx, string(lsp.MethodShutdown), nil)
	if err != nil {
		return err
	}

	if resp.Error != nil {
		return resp.Error
	}

	return nil
}

func (c *Conn) Exit() error {
	return c.Notify(string(lsp.MethodExit), nil)
}

func (c *Conn) readLoop() {
	log := c.log.Named("readLoop")

	defer func() {
		close(c.notificationChan)
		close(c.done)
	}()

	for {
		body, err := c.reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn("Failed to read server message", zap.Error(err))
			}
			c.readErr = err
			return
		}

		msg, err := protocol.ParseMessage(body)
		if err != nil {
			log.Warn("Failed to parse server message", zap.Error(err))
			continue
		}

		switch msg.Kind() {
		case protocol.KindResponse:
			c.sendToResponseChan(msg.ID.String(), &protocol.Response{
				ID:     msg.ID,
				Result: msg.Result,
				Error:  msg.Error,
			})

		case protocol.KindNotification:
			c.notificationChan <- &protocol.Notification{Method: msg.Method, Params: msg.Params}

		default:
			log.Debug("Ignoring request from server", zap.String("method", msg.Method))
		}
	}
}

func (c *Conn) createResponseChan() (protocol.ID, <-chan *protocol.Response) {
	id := c.getNextRequestID()
	respChan := make(chan *protocol.Response, 1)

	c.respMu.Lock()
	c.respChans[id.String()] = respChan
	c.respMu.Unlock()

	return id, respChan
}

func (c *Conn) sendToResponseChan(key string, resp *protocol.Response) {
	c.respMu.Lock()
	respChan, ok := c.respChans[key]
	c.respMu.Unlock()

	if !ok {
		return
	}

	respChan <- resp
}

func (c *Conn) destroyResponseChan(id protocol.ID) {
	c.respMu.Lock()
	delete(c.respChans, id.String())
	c.respMu.Unlock()
}

func (c *Conn) getNextRequestID() protocol.ID {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	c.requestID++
	return protocol.NewNumberID(c.requestID)
}
