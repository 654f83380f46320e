package transport

import (
	"context"
	"net"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/zap"
)

// ListenOnce listens on addr and returns the first connection accepted. The
// listener is closed before returning, a language server only ever has one
// client.
func ListenOnce(ctx context.Context, addr string, log *zap.Logger) (net.Conn, error) {
	listener, err := reuseport.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	defer listener.Close()

	// Unblocks Accept when the context is cancelled
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()

	log.Info("Waiting for a client", zap.String("addr", listener.Addr().String()))

	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, err
	}

	log.Info("Client connected", zap.String("remote", conn.RemoteAddr().String()))

	return conn, nil
}
