package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	lsp "go.lsp.dev/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/humlsp/internal/debughttp"
	"github.com/luma/humlsp/internal/env"
	"github.com/luma/humlsp/internal/meta"
	"github.com/luma/humlsp/session"
	"github.com/luma/humlsp/transport"
)

var (
	// Accept one client on this TCP address instead of using stdio
	listen string

	// Serve /ping, /version and /status on this address
	debugHTTP string

	// Treat protocol violations as fatal
	strict bool

	// Passed by editors, stdio is the default anyway
	stdio bool
)

func addServeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVarP(&listen, "listen", "l", "", "Accept a single client on this TCP address instead of stdio")
	flags.StringVar(&debugHTTP, "debug-http", "", "Serve debug HTTP endpoints on this address (overrides HUML_DEBUG_HTTP)")
	flags.BoolVar(&strict, "strict", false, "Stop on protocol violations (overrides HUML_STRICT)")
	flags.BoolVar(&stdio, "stdio", false, "Communicate over stdin and stdout (the default)")
}

func init() {
	addServeFlags(ServeCmd)
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server",
	Long: `Run the language server

Usage
	humlsp serve
	humlsp serve --listen 127.0.0.1:6683

Logs are written to HUML_LOG_PATH (/tmp/huml.log by default) since stdout
carries the protocol.
`,
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}

	ctx, signalStop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer signalStop()

	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("debug-http") {
		conf.DebugHTTP = debugHTTP
	}
	if flags.Changed("strict") {
		conf.Strict = strict
	}

	log, err := env.MakeLogger(conf)
	if err != nil {
		return err
	}

	defer log.Sync()

	log.Info("Starting", zap.Stringer("build", meta.GetInfo()), zap.Any("config", conf))

	var (
		in  io.Reader
		out io.Writer
	)

	if listen != "" {
		conn, err := transport.ListenOnce(ctx, listen, log.Named("listener"))
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Interrupted before a client connected")
				return nil
			}
			return err
		}
		in, out = conn, conn
	} else {
		in, out = cmd.InOrStdin(), cmd.OutOrStdout()
	}

	// Unblocks the read loop on a signal
	stopClose := context.AfterFunc(ctx, func() {
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")
		if closer, ok := in.(io.Closer); ok {
			closer.Close()
		}
	})
	defer stopClose()

	conn := transport.NewConn(in, out, transport.Options{
		ServerInfo:       lsp.ServerInfo{Name: meta.Name, Version: meta.Version},
		QueueSize:        conf.NotificationQueueSize,
		MaxContentLength: conf.MaxContentLength,
		Strict:           conf.Strict,
		Log:              log.Named("transport"),
	})

	if conf.DebugHTTP != "" {
		srv := debughttp.New(conf.DebugHTTP, conn.Session(), conf.LogLevel == "debug", log.Named("http"))
		srv.Start()

		defer func() {
			// The server has 5 seconds to finish the request it is
			// currently handling
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Http server forced to shutdown", zap.Error(err))
			}
		}()
	}

	serveErr := conn.Serve(ctx)

	switch {
	case errors.Is(serveErr, session.ErrExit):
		log.Info("Client asked to exit")
		serveErr = nil

	case ctx.Err() != nil:
		log.Info("Interrupted", zap.NamedError("reason", serveErr))
		serveErr = nil

	default:
		log.Error("Server stopped", zap.Error(serveErr))
	}

	if err := conn.Close(); err != nil {
		log.Error("Failed to close the connection", zap.Error(err))
		serveErr = multierr.Append(serveErr, err)
	}

	log.Info("Exiting")
	return serveErr
}
