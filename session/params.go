package session

import (
	"encoding/json"
	"fmt"

	lsp "go.lsp.dev/protocol"

	"github.com/luma/humlsp/documents"
	"github.com/luma/humlsp/protocol"
)

const (
	methodInitialize  = string(lsp.MethodInitialize)
	methodInitialized = string(lsp.MethodInitialized)
	methodShutdown    = string(lsp.MethodShutdown)
	methodExit        = string(lsp.MethodExit)
	methodSetTrace    = string(lsp.MethodSetTrace)
	methodDidOpen     = string(lsp.MethodTextDocumentDidOpen)
	methodDidChange   = string(lsp.MethodTextDocumentDidChange)
	methodDidClose    = string(lsp.MethodTextDocumentDidClose)

	MethodLogTrace   = "$/logTrace"
	MethodLogMessage = "window/logMessage"
)

// InitializeParams is the subset of the initialize params we read. Client
// capabilities are kept undecoded.
type InitializeParams struct {
	ProcessID        *int32                `json:"processId"`
	ClientInfo       *lsp.ClientInfo       `json:"clientInfo,omitempty"`
	RootURI          lsp.DocumentURI       `json:"rootUri,omitempty"`
	Capabilities     json.RawMessage       `json:"capabilities"`
	Trace            string                `json:"trace,omitempty"`
	WorkspaceFolders []lsp.WorkspaceFolder `json:"workspaceFolders,omitempty"`
}

// DidChangeTextDocumentParams carries changes whose range may be absent,
// meaning the whole text is replaced.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []documents.Change              `json:"contentChanges"`
}

type VersionedTextDocumentIdentifier struct {
	URI     lsp.DocumentURI `json:"uri"`
	Version int32           `json:"version"`
}

type LogTraceParams struct {
	Message string `json:"message"`
	Verbose string `json:"verbose,omitempty"`
}

// decodeParams decodes raw into v, reporting missing or malformed params as a
// *protocol.SchemaError.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return &protocol.SchemaError{Err: ErrMissingParams}
	}

	return protocol.Unmarshal(raw, v)
}

func schemaError(format string, args ...interface{}) error {
	return &protocol.SchemaError{Err: fmt.Errorf(format, args...)}
}
