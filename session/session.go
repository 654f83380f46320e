package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tidwall/gjson"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/luma/humlsp/documents"
	"github.com/luma/humlsp/protocol"
)

// Notifier delivers notifications to the client without blocking the caller.
type Notifier interface {
	Notify(method string, params interface{}) error

	// Stop delivers everything already queued and then stops.
	Stop() error
}

type Options struct {
	ServerInfo lsp.ServerInfo

	// NewNotifier is called once, on initialize.
	NewNotifier func() Notifier

	Log *zap.Logger
}

// Session is the server side of one client connection. Handle must only be
// called from a single goroutine, Status may be called from any.
type Session struct {
	opts Options
	log  *zap.Logger

	state       State
	initialized *initializedState

	messages uint64
	status   atomic.Value
}

func New(opts Options) *Session {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	if opts.NewNotifier == nil {
		opts.NewNotifier = func() Notifier { return nopNotifier{} }
	}

	s := &Session{
		opts:  opts,
		log:   opts.Log,
		state: Uninitialized,
	}
	s.publishStatus()

	return s
}

func (s *Session) State() State {
	return s.state
}

// Handle processes one message body. Requests always produce a response,
// notifications never do.
//
// The error is ErrExit when the client has asked the process to end, or a
// *ViolationError when the client broke the protocol. Violations have
// already been logged and reported to the client, the session remains usable.
func (s *Session) Handle(ctx context.Context, body []byte) (*protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.messages++
	defer s.publishStatus()

	msg, err := protocol.ParseMessage(body)
	if err != nil {
		return s.malformed(body, err), nil
	}

	switch msg.Kind() {
	case protocol.KindRequest:
		return s.handleRequest(msg), nil

	case protocol.KindNotification:
		return nil, s.handleNotification(msg)

	default:
		s.log.Debug("Ignoring response from client", zap.Stringer("id", msg.ID))
		return nil, nil
	}
}

// malformed answers a body that is not a valid message. The error response
// carries the body's id when one can be read. A body that looks like a
// notification, a method and no id, gets no response.
func (s *Session) malformed(body []byte, err error) *protocol.Response {
	if errors.Is(err, protocol.ErrInvalidJSON) {
		s.log.Warn("Received a message that is not JSON", zap.Error(err))
		return protocol.NewErrorResponse(nil, protocol.CodeParseError, err.Error())
	}

	fields := gjson.GetManyBytes(body, "id", "method")
	if fields[0].Type == gjson.Null && fields[1].Type == gjson.String {
		s.log.Warn("Dropping malformed notification", zap.Error(err))
		return nil
	}

	id := protocol.PeekID(body)

	log := s.log
	if id != nil {
		log = log.With(zap.Stringer("id", id))
	}

	log.Warn("Received a malformed message", zap.Error(err))
	return protocol.NewErrorResponse(id, protocol.CodeInvalidRequest, err.Error())
}

// Close stops the notifier if the session still has one.
func (s *Session) Close() error {
	if s.initialized == nil || s.initialized.notifier == nil {
		return nil
	}

	notifier := s.initialized.notifier
	s.initialized.notifier = nil

	return notifier.Stop()
}

// Document returns an open document. Like Handle, it must be called from the
// goroutine that owns the session.
func (s *Session) Document(u uri.URI) (*documents.Document, bool) {
	if s.initialized == nil {
		return nil, false
	}

	return s.initialized.documents.Get(u)
}

func (s *Session) Status() Status {
	return s.status.Load().(Status)
}

func (s *Session) handleRequest(msg *protocol.Message) *protocol.Response {
	log := s.log.With(zap.String("method", msg.Method), zap.Stringer("id", msg.ID))

	switch s.state {
	case Uninitialized:
		if msg.Method != methodInitialize {
			log.Warn("Request received before initialize")
			return protocol.NewErrorResponse(msg.ID, protocol.CodeServerNotInitialized, ErrNotInitialized.Error())
		}

	case Shutdown:
		log.Warn("Request received after shutdown")
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInvalidRequest, "Server is shutting down")
	}

	s.traceReceived(fmt.Sprintf("Received request '%s - (%s)'.", msg.Method, msg.ID), msg.Params)

	var (
		result interface{}
		err    error
	)

	switch msg.Method {
	case methodInitialize:
		result, err = s.initialize(log, msg.Params)

	case methodShutdown:
		result, err = s.shutdown(log)

	default:
		log.Debug("Method not found")
		return protocol.NewErrorResponse(msg.ID, protocol.CodeMethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method))
	}

	if err != nil {
		return errorResponse(log, msg.ID, err)
	}

	resp, err := protocol.NewResponse(msg.ID, result)
	if err != nil {
		log.Error("Failed to encode result", zap.Error(err))
		return protocol.NewErrorResponse(msg.ID, protocol.CodeInternalError, err.Error())
	}

	return resp
}

func errorResponse(log *zap.Logger, id *protocol.ID, err error) *protocol.Response {
	var schemaErr *protocol.SchemaError

	switch {
	case errors.As(err, &schemaErr):
		log.Warn("Invalid params", zap.Error(err))
		return protocol.NewErrorResponse(id, protocol.CodeInvalidParams, err.Error())

	case errors.Is(err, ErrAlreadyInitialized):
		log.Warn("Request rejected", zap.Error(err))
		return protocol.NewErrorResponse(id, protocol.CodeInvalidRequest, err.Error())

	default:
		log.Error("Request failed", zap.Error(err))
		return protocol.NewErrorResponse(id, protocol.CodeInternalError, err.Error())
	}
}

func (s *Session) handleNotification(msg *protocol.Message) error {
	log := s.log.With(zap.String("method", msg.Method))

	if msg.Method == methodExit {
		return s.exit(log)
	}

	switch s.state {
	case Uninitialized:
		if requiresInitialize(msg.Method) {
			return s.violation(log, msg.Method, ErrNotInitialized)
		}

		log.Debug("Ignoring notification before initialize")
		return nil

	case Shutdown:
		log.Debug("Dropping notification after shutdown")
		return nil
	}

	s.traceReceived(fmt.Sprintf("Received notification '%s'.", msg.Method), msg.Params)

	var err error

	switch msg.Method {
	case methodInitialized:
		err = s.clientInitialized(log)

	case methodSetTrace:
		err = s.setTrace(log, msg.Params)

	case methodDidOpen:
		err = s.didOpen(log, msg.Params)

	case methodDidChange:
		err = s.didChange(log, msg.Params)

	case methodDidClose:
		err = s.didClose(log, msg.Params)

	default:
		log.Debug("Ignoring unhandled notification")
		return nil
	}

	if err == nil {
		return nil
	}

	var schemaErr *protocol.SchemaError
	if errors.As(err, &schemaErr) {
		log.Warn("Dropping notification with invalid params", zap.Error(err))
		return nil
	}

	return s.violation(log, msg.Method, err)
}

func requiresInitialize(method string) bool {
	switch method {
	case methodInitialized, methodSetTrace, methodDidOpen, methodDidChange, methodDidClose:
		return true
	default:
		return false
	}
}

func (s *Session) violation(log *zap.Logger, method string, err error) error {
	violation := &ViolationError{Method: method, State: s.state, Err: err}

	log.Warn("Protocol violation", zap.Stringer("state", s.state), zap.Error(err))
	s.showMessage(lsp.MessageTypeError, violation.Error())

	return violation
}

func (s *Session) publishStatus() {
	status := Status{
		State:     s.state.String(),
		Messages:  s.messages,
		Documents: []documents.Info{},
	}

	if st := s.initialized; st != nil {
		status.Trace = st.trace.String()
		status.ClientReady = st.clientReady
		status.Documents = st.documents.Snapshot()

		if st.clientInfo != nil {
			status.Client = st.clientInfo.Name
			if st.clientInfo.Version != "" {
				status.Client += " " + st.clientInfo.Version
			}
		}
	}

	s.status.Store(status)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, interface{}) error { return nil }
func (nopNotifier) Stop() error                      { return nil }
