// Package progress abstracts the user-facing progress indicator. The daemon
// has no GUI; progress is surfaced through structured logs and metrics, and
// user cancellation arrives through the status server's cancel endpoint.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
)

// Sink receives progress from the active action. Only the active action
// writes to a sink; IsCanceled is polled at sub-action boundaries.
type Sink interface {
	Step(message string, n, total int)
	Close()
	IsCanceled() bool
}

// Registry tracks the currently active sink so an external cancel request
// can reach it.
type Registry struct {
	mu     sync.Mutex
	active *logSink
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewSink creates a sink for one bulk operation and makes it the cancel
// target. Foreground sinks log at info level; background sinks at debug,
// unless the user asked to see sync progress.
func (r *Registry) NewSink(heading string, foreground bool) Sink {
	s := &logSink{
		heading:    heading,
		foreground: foreground,
		registry:   r,
		logger:     log.WithComponent("progress"),
	}
	r.mu.Lock()
	r.active = s
	r.mu.Unlock()
	return s
}

// CancelActive flags the active sink as canceled. Returns false when no
// bulk operation is running.
func (r *Registry) CancelActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return false
	}
	r.active.canceled.Store(true)
	return true
}

func (r *Registry) release(s *logSink) {
	r.mu.Lock()
	if r.active == s {
		r.active = nil
	}
	r.mu.Unlock()
}

type logSink struct {
	heading    string
	foreground bool
	registry   *Registry
	logger     zerolog.Logger
	canceled   atomic.Bool
	opened     bool
}

func (s *logSink) Step(message string, n, total int) {
	s.opened = true
	evt := s.logger.Debug()
	if s.foreground {
		evt = s.logger.Info()
	}
	percent := 0
	if total > 0 {
		percent = n * 100 / total
	}
	evt.
		Str("event", "progress.step").
		Str("heading", s.heading).
		Str("message", message).
		Int("done", n).
		Int("total", total).
		Int("percent", percent).
		Msg("progress")
}

func (s *logSink) Close() {
	if s.opened {
		s.logger.Debug().
			Str("event", "progress.close").
			Str("heading", s.heading).
			Msg("progress finished")
	}
	s.registry.release(s)
}

func (s *logSink) IsCanceled() bool {
	return s.canceled.Load()
}
