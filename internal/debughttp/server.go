// Package debughttp serves a small HTTP endpoint for inspecting a running
// server: /ping, /version and /status.
package debughttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luma/humlsp/internal/meta"
	"github.com/luma/humlsp/session"
)

// StatusSource is read on every /status request. It must be safe to call
// from other goroutines.
type StatusSource interface {
	Status() session.Status
}

type Server struct {
	srv *http.Server
	log *zap.Logger
}

func NewRouter(source StatusSource, debug bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, with RFC3339
	// UTC timestamps
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, meta.GetInfo())
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, source.Status())
	})

	return r
}

func New(addr string, source StatusSource, debug bool, log *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: NewRouter(source, debug, log),
		},
		log: log,
	}
}

// Start serves in the background until Shutdown is called.
func (s *Server) Start() {
	s.log.Info("Debug HTTP listening", zap.String("addr", s.srv.Addr))

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Http server errored", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.srv.SetKeepAlivesEnabled(false)
	return s.srv.Shutdown(ctx)
}
