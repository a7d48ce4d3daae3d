// Package syncfs serialises flush requests into a callback-based durable
// flush primitive. The primitive fails when invoked while a previous flush is
// still running, so the Coordinator keeps at most one flush in flight and folds
// every request that arrives meanwhile into a single trailing flush.
package syncfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/INLOpen/nexusvfs/hooks"
	"github.com/caio/go-tdigest/v4"
)

var ErrClosed = errors.New("syncfs: coordinator closed")

// Flusher starts an asynchronous flush and calls done exactly once when it
// finishes. A non-nil return means the flush was not started and done will
// not be called.
type Flusher interface {
	Flush(done func(error)) error
}

// FlusherFunc adapts a function to the Flusher interface.
type FlusherFunc func(done func(error)) error

func (f FlusherFunc) Flush(done func(error)) error { return f(done) }

type Options struct {
	Logger *slog.Logger
	Hooks  hooks.HookManager
}

// Stats is a point-in-time snapshot of coordinator activity.
type Stats struct {
	Requests  uint64
	Started   uint64
	Completed uint64
	Failed    uint64
	Pending   uint64
	InFlight  bool

	// Flush latency quantiles. Zero until the first flush completes.
	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
}

type Coordinator struct {
	flusher Flusher
	logger  *slog.Logger
	hooks   hooks.HookManager

	mu        sync.Mutex
	inFlight  bool
	pending   uint64 // requests received since the running flush started
	served    uint64 // requests the running flush covers
	startedAt time.Time
	idle      chan struct{}
	closed    bool

	requests  uint64
	started   uint64
	completed uint64
	failed    uint64
	latency   *tdigest.TDigest
}

func New(flusher Flusher, opts Options) (*Coordinator, error) {
	if flusher == nil {
		return nil, errors.New("syncfs: nil flusher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	hm := opts.Hooks
	if hm == nil {
		hm = hooks.NoopHookManager{}
	}
	td, err := tdigest.New()
	if err != nil {
		return nil, fmt.Errorf("tdigest.New failed: %w", err)
	}
	idle := make(chan struct{})
	close(idle)
	return &Coordinator{
		flusher: flusher,
		logger:  logger.With("component", "SyncCoordinator"),
		hooks:   hm,
		idle:    idle,
		latency: td,
	}, nil
}

// Request asks for a flush that starts no earlier than this call. It never
// blocks on the flush itself. A nil Coordinator behaves as a closed one.
func (c *Coordinator) Request() error {
	if c == nil {
		return ErrClosed
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.requests++
	if c.inFlight {
		c.pending++
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.idle = make(chan struct{})
	c.beginLocked(1)
	c.mu.Unlock()

	c.start()
	return nil
}

// beginLocked records the start of a flush covering n requests.
func (c *Coordinator) beginLocked(n uint64) {
	c.served = n
	c.started++
	c.startedAt = time.Now()
}

func (c *Coordinator) start() {
	if err := c.flusher.Flush(c.complete); err != nil {
		c.logger.Error("Flush could not be started", "error", err)
		c.complete(err)
	}
}

func (c *Coordinator) complete(err error) {
	c.mu.Lock()
	elapsed := time.Since(c.startedAt)
	served := c.served
	if err != nil {
		c.failed++
	} else {
		c.completed++
	}
	if addErr := c.latency.AddWeighted(float64(elapsed), 1); addErr != nil {
		c.logger.Warn("Failed to record flush latency", "error", addErr)
	}

	next := c.pending > 0
	if next {
		c.beginLocked(c.pending)
		c.pending = 0
	} else {
		c.inFlight = false
		close(c.idle)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Flush failed", "error", err, "duration", elapsed, "coalesced", served)
	} else {
		c.logger.Debug("Flush completed", "duration", elapsed, "coalesced", served)
	}
	if hookErr := c.hooks.Trigger(context.Background(), hooks.NewPostFlushEvent(hooks.PostFlushPayload{
		Duration:  elapsed,
		Coalesced: served,
		Error:     err,
	})); hookErr != nil {
		c.logger.Warn("PostFlush hook failed", "error", hookErr)
	}

	if next {
		c.start()
	}
}

// WaitIdle blocks until no flush is running or queued.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Requests:  c.requests,
		Started:   c.started,
		Completed: c.completed,
		Failed:    c.failed,
		Pending:   c.pending,
		InFlight:  c.inFlight,
	}
	if c.latency.Count() > 0 {
		s.P50 = time.Duration(c.latency.Quantile(0.5))
		s.P90 = time.Duration(c.latency.Quantile(0.9))
		s.P99 = time.Duration(c.latency.Quantile(0.99))
	}
	return s
}

// Close rejects further requests. A queued trailing flush still runs.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
