package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/INLOpen/nexusvfs/core"
)

// EventType defines the type of a hook event.
type EventType string

const (
	// File lifecycle events
	EventPreOpen    EventType = "PreOpen"
	EventPostOpen   EventType = "PostOpen"
	EventPostClose  EventType = "PostClose"
	EventPostSync   EventType = "PostSync"
	EventPreDelete  EventType = "PreDelete"
	EventPostDelete EventType = "PostDelete"

	// Durability events
	EventPostFlush EventType = "PostFlush"
)

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	// Register adds a listener for a specific event type.
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for a given event.
	// It handles synchronous vs. asynchronous execution based on the event type and listener preference.
	Trigger(ctx context.Context, event HookEvent) error
	// Stop waits for all asynchronous listeners to complete. Useful for graceful shutdown.
	Stop()
}

// HookEvent is the interface that all event objects must implement.
type HookEvent interface {
	Type() EventType
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType      { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// HookListener defines the interface for components that want to listen to events.
type HookListener interface {
	// OnEvent is called by the HookManager when a registered event is triggered.
	// Returning an error from a "Pre" hook cancels the operation.
	// Errors from "Post" hooks are logged without affecting the operation.
	OnEvent(ctx context.Context, event HookEvent) error

	// Priority returns the listener's priority. Lower numbers are executed first.
	Priority() int

	// IsAsync indicates if the listener should be called asynchronously for Post-events.
	IsAsync() bool
}

// PreOpenPayload describes a file about to be opened.
type PreOpenPayload struct {
	Name  string
	Flags core.OpenFlag
}

func NewPreOpenEvent(payload PreOpenPayload) HookEvent {
	return &BaseEvent{eventType: EventPreOpen, payload: payload}
}

// PostOpenPayload describes a successfully opened file.
type PostOpenPayload struct {
	Name     string
	Flags    core.OpenFlag
	Database bool
	Size     int64
}

func NewPostOpenEvent(payload PostOpenPayload) HookEvent {
	return &BaseEvent{eventType: EventPostOpen, payload: payload}
}

// PostClosePayload describes a closed file.
type PostClosePayload struct {
	Name    string
	Size    int64
	Deleted bool
}

func NewPostCloseEvent(payload PostClosePayload) HookEvent {
	return &BaseEvent{eventType: EventPostClose, payload: payload}
}

// PostSyncPayload describes a file sync. Flushed reports whether a durable
// flush was requested.
type PostSyncPayload struct {
	Name         string
	Size         int64
	BytesWritten int64
	Flushed      bool
}

func NewPostSyncEvent(payload PostSyncPayload) HookEvent {
	return &BaseEvent{eventType: EventPostSync, payload: payload}
}

// PreDeletePayload describes a file about to be deleted.
type PreDeletePayload struct {
	Name string
}

func NewPreDeleteEvent(payload PreDeletePayload) HookEvent {
	return &BaseEvent{eventType: EventPreDelete, payload: payload}
}

// PostDeletePayload describes a deleted file.
type PostDeletePayload struct {
	Name         string
	PagesRemoved uint64
}

func NewPostDeleteEvent(payload PostDeletePayload) HookEvent {
	return &BaseEvent{eventType: EventPostDelete, payload: payload}
}

// PostFlushPayload describes a completed durable flush. Coalesced is the number
// of flush requests the flush served.
type PostFlushPayload struct {
	Duration  time.Duration
	Coalesced uint64
	Error     error
}

func NewPostFlushEvent(payload PostFlushPayload) HookEvent {
	return &BaseEvent{eventType: EventPostFlush, payload: payload}
}

// listenerWithPriority wraps a listener with its priority.
type listenerWithPriority struct {
	listener HookListener
	priority int
}

// DefaultHookManager is a concrete implementation of HookManager.
type DefaultHookManager struct {
	// The map stores slices of listeners, kept sorted by priority.
	listeners map[EventType][]*listenerWithPriority
	mu        sync.RWMutex
	wg        sync.WaitGroup // For tracking async listeners
	logger    *slog.Logger
}

// NewHookManager creates a new DefaultHookManager.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		listeners: make(map[EventType][]*listenerWithPriority),
		logger:    logger,
	}
}

// Register adds a listener for a specific event type, maintaining priority order.
// Listeners with equal priority run in registration order.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &listenerWithPriority{
		listener: listener,
		priority: listener.Priority(),
	}

	l := m.listeners[eventType]
	idx := sort.Search(len(l), func(i int) bool {
		return l[i].priority > item.priority
	})
	l = append(l, nil)
	copy(l[idx+1:], l[idx:])
	l[idx] = item

	m.listeners[eventType] = l
}

// Trigger fires all registered listeners for a given event in priority order.
func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) error {
	m.mu.RLock()
	listeners := m.listeners[event.Type()]
	m.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	isPreHook := strings.HasPrefix(string(event.Type()), "Pre")

	for _, item := range listeners {
		isListenerAsync := item.listener.IsAsync()

		// Pre-hooks MUST be synchronous to allow for cancellation.
		if isPreHook || !isListenerAsync {
			if isPreHook && isListenerAsync {
				m.logger.Warn("Listener for Pre-hook requested async execution, but Pre-hooks are always synchronous.", "event", event.Type(), "priority", item.priority)
			}

			if err := item.listener.OnEvent(ctx, event); err != nil {
				if isPreHook {
					return fmt.Errorf("pre-hook for event %s (priority %d) failed: %w", event.Type(), item.priority, err)
				}
				m.logger.Error("Error from synchronous post-hook listener", "event", event.Type(), "priority", item.priority, "error", err)
			}
			continue
		}

		m.wg.Add(1)
		go func(currentItem *listenerWithPriority) {
			defer m.wg.Done()
			if err := currentItem.listener.OnEvent(ctx, event); err != nil {
				m.logger.Error("Error from asynchronous post-hook listener", "event", event.Type(), "priority", currentItem.priority, "error", err)
			}
		}(item)
	}
	return nil
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.wg.Wait()
}

// NoopHookManager discards every event.
type NoopHookManager struct{}

func (NoopHookManager) Register(EventType, HookListener)         {}
func (NoopHookManager) Trigger(context.Context, HookEvent) error { return nil }
func (NoopHookManager) Stop()                                    {}
