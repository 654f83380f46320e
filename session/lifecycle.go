package session

import (
	"encoding/json"

	lsp "go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/luma/humlsp/documents"
)

func (s *Session) initialize(log *zap.Logger, raw json.RawMessage) (interface{}, error) {
	if s.state != Uninitialized {
		return nil, ErrAlreadyInitialized
	}

	var params InitializeParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}

	if len(params.Capabilities) == 0 || string(params.Capabilities) == "null" {
		return nil, schemaError("capabilities are required")
	}

	trace, err := ParseTrace(params.Trace)
	if err != nil {
		return nil, schemaError("%v", err)
	}

	s.initialized = &initializedState{
		clientInfo:       params.ClientInfo,
		capabilities:     params.Capabilities,
		workspaceFolders: params.WorkspaceFolders,
		trace:            trace,
		documents:        documents.NewMemoryStore(),
		notifier:         s.opts.NewNotifier(),
	}
	s.state = Initialized

	fields := []zap.Field{
		zap.Stringer("trace", trace),
		zap.Int("workspaceFolders", len(params.WorkspaceFolders)),
	}
	if params.ClientInfo != nil {
		fields = append(fields, zap.String("client", params.ClientInfo.Name), zap.String("clientVersion", params.ClientInfo.Version))
	}
	if params.ProcessID != nil {
		fields = append(fields, zap.Int32("clientPID", *params.ProcessID))
	}
	log.Info("Server initialized. Waiting for client initialized ack", fields...)

	serverInfo := s.opts.ServerInfo

	return lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    lsp.TextDocumentSyncKindIncremental,
			},
		},
		ServerInfo: &serverInfo,
	}, nil
}

func (s *Session) clientInitialized(log *zap.Logger) error {
	st := s.initialized

	if st.clientReady {
		log.Warn("Client sent initialized more than once")
		return nil
	}

	st.clientReady = true
	log.Info("Client initialized")
	s.logTrace("Client acknowledged initialization", nil)

	return nil
}

func (s *Session) shutdown(log *zap.Logger) (interface{}, error) {
	if st := s.initialized; st != nil && st.documents.Len() > 0 {
		uris := st.documents.URIs()
		names := make([]string, len(uris))
		for i, u := range uris {
			names[i] = string(u)
		}
		log.Debug("Documents still open at shutdown", zap.Strings("uris", names))
	}

	log.Info("Shutting down")
	s.logTrace("Shutting down, notifications stop here", nil)

	if err := s.Close(); err != nil {
		log.Warn("Notifications were lost while shutting down", zap.Error(err))
	}

	s.state = Shutdown
	s.initialized = nil

	return nil, nil
}

func (s *Session) exit(log *zap.Logger) error {
	if s.state != Shutdown {
		log.Warn("Exit received before shutdown", zap.Stringer("state", s.state))
	} else {
		log.Info("Exiting")
	}

	return ErrExit
}

func (s *Session) setTrace(log *zap.Logger, raw json.RawMessage) error {
	var params lsp.SetTraceParams
	if err := decodeParams(raw, &params); err != nil {
		return err
	}

	trace, err := ParseTrace(string(params.Value))
	if err != nil {
		return schemaError("%v", err)
	}

	s.initialized.trace = trace
	log.Info("Trace level changed", zap.Stringer("trace", trace))

	return nil
}
