// Package testutil holds helpers shared by package tests.
package testutil

import (
	"errors"
	"sync"
)

var ErrConcurrentFlush = errors.New("testutil: flush already in flight")

// ManualFlusher records flushes and completes them only when the test says
// so. Like the durable syncer it refuses to start a second flush while one is
// outstanding.
type ManualFlusher struct {
	mu      sync.Mutex
	pending func(error)
	calls   int
	// StartErr, when set, is returned by the next Flush instead of starting.
	StartErr error
}

func (m *ManualFlusher) Flush(done func(error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		err := m.StartErr
		m.StartErr = nil
		return err
	}
	if m.pending != nil {
		return ErrConcurrentFlush
	}
	m.calls++
	m.pending = done
	return nil
}

// Complete finishes the outstanding flush with err. It reports false when no
// flush was in flight.
func (m *ManualFlusher) Complete(err error) bool {
	m.mu.Lock()
	done := m.pending
	m.pending = nil
	m.mu.Unlock()
	if done == nil {
		return false
	}
	done(err)
	return true
}

// InFlight reports whether a flush is waiting for Complete.
func (m *ManualFlusher) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// Calls is the number of flushes started.
func (m *ManualFlusher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
