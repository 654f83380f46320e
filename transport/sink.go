package transport

import (
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/humlsp/protocol"
	"github.com/luma/humlsp/session"
)

var ErrSinkClosed = errors.New("Notification sink is closed")

type notification struct {
	method string
	params interface{}

	// stop tells the write loop to exit once everything before it is written
	stop bool
}

// Sink writes server notifications from its own goroutine, so the read loop
// never waits on the client reading its output. Notifications are written in
// the order they were queued.
type Sink struct {
	out *protocol.Writer
	log *zap.Logger

	// mu guards closed and sends on queue
	mu     sync.Mutex
	closed bool
	queue  chan notification

	done chan struct{}

	errMu sync.Mutex
	errs  error
}

func NewSink(out *protocol.Writer, size int, log *zap.Logger) *Sink {
	if size < 1 {
		size = DefaultQueueSize
	}

	s := &Sink{
		out:   out,
		log:   log,
		queue: make(chan notification, size),
		done:  make(chan struct{}),
	}

	go s.writeLoop()

	return s
}

// Notify queues a notification. It only blocks while the queue is full.
func (s *Sink) Notify(method string, params interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	s.queue <- notification{method: method, params: params}
	return nil
}

// Stop waits for every queued notification to be written and then stops the
// write loop. It returns any write errors.
func (s *Sink) Stop() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.queue <- notification{stop: true}
	}
	s.mu.Unlock()

	<-s.done
	return s.err()
}

// Close closes the queue and waits for the write loop to drain it.
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return s.err()
}

func (s *Sink) writeLoop() {
	log := s.log.Named("writeLoop")

	defer func() {
		close(s.done)
		log.Debug("Notification write loop exited")
	}()

	for n := range s.queue {
		if n.stop {
			log.Debug("Notification write loop stopping")
			return
		}

		msg, err := protocol.NewNotification(n.method, n.params)
		if err == nil {
			err = s.out.WriteMessage(msg)
		}

		if err != nil {
			log.Error("Failed to write notification",
				zap.String("method", n.method),
				zap.Error(err))

			s.errMu.Lock()
			s.errs = multierr.Append(s.errs, err)
			s.errMu.Unlock()
		}
	}
}

func (s *Sink) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	return s.errs
}

var _ session.Notifier = (*Sink)(nil)
