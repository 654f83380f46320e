package session

import (
	"fmt"

	lsp "go.lsp.dev/protocol"

	"github.com/luma/humlsp/documents"
)

// State is the lifecycle stage of a session. It only moves forward.
type State int

const (
	Uninitialized State = iota
	Initialized
	Shutdown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trace is how much the server reports to the client through $/logTrace.
type Trace int

const (
	TraceOff Trace = iota
	TraceMessages
	TraceVerbose
)

func ParseTrace(s string) (Trace, error) {
	switch s {
	case "", "off":
		return TraceOff, nil
	case "message", "messages":
		return TraceMessages, nil
	case "verbose":
		return TraceVerbose, nil
	default:
		return TraceOff, fmt.Errorf("%w: %q", ErrUnknownTrace, s)
	}
}

func (t Trace) String() string {
	switch t {
	case TraceMessages:
		return "messages"
	case TraceVerbose:
		return "verbose"
	default:
		return "off"
	}
}

// initializedState exists only between initialize and shutdown.
type initializedState struct {
	clientInfo       *lsp.ClientInfo
	capabilities     []byte
	workspaceFolders []lsp.WorkspaceFolder
	trace            Trace
	clientReady      bool

	documents documents.Store
	notifier  Notifier
}

// Status is a point in time summary of a session, safe to read from any
// goroutine.
type Status struct {
	State       string           `json:"state"`
	Trace       string           `json:"trace,omitempty"`
	Client      string           `json:"client,omitempty"`
	ClientReady bool             `json:"clientReady"`
	Messages    uint64           `json:"messages"`
	Documents   []documents.Info `json:"documents"`
}
