package session

import (
	"encoding/json"

	lsp "go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// logTrace sends a $/logTrace notification when the client has asked for
// tracing. verbose is only called at the verbose level.
func (s *Session) logTrace(message string, verbose func() string) {
	st := s.initialized
	if st == nil || st.trace == TraceOff {
		return
	}

	params := LogTraceParams{Message: message}
	if st.trace == TraceVerbose && verbose != nil {
		params.Verbose = verbose()
	}

	s.notify(MethodLogTrace, params)
}

func (s *Session) traceReceived(message string, params json.RawMessage) {
	s.logTrace(message, func() string {
		if len(params) == 0 {
			return "No parameters provided."
		}
		return "Params: " + string(params)
	})
}

// showMessage reports to the user through the client's log.
func (s *Session) showMessage(typ lsp.MessageType, message string) {
	s.notify(MethodLogMessage, lsp.LogMessageParams{Type: typ, Message: message})
}

func (s *Session) notify(method string, params interface{}) {
	st := s.initialized
	if st == nil || st.notifier == nil {
		return
	}

	if err := st.notifier.Notify(method, params); err != nil {
		s.log.Warn("Failed to queue notification", zap.String("notification", method), zap.Error(err))
	}
}
