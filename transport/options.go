package transport

import (
	lsp "go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize = 127
)

type Options struct {
	// ServerInfo is returned to the client on initialize
	ServerInfo lsp.ServerInfo

	// QueueSize is the number of notifications that can be waiting to be
	// written before senders block
	QueueSize int

	// MaxContentLength bounds the size of a single incoming message
	MaxContentLength int

	// Strict makes protocol violations end the connection instead of being
	// reported and skipped
	Strict bool

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.QueueSize < 1 {
		o.QueueSize = DefaultQueueSize
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}
