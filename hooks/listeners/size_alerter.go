package listeners

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/INLOpen/nexusvfs/hooks"
)

// SizeAlerterListener logs a warning the first time a file's synced size
// crosses the threshold, and again only after it dropped below it.
type SizeAlerterListener struct {
	logger    *slog.Logger
	threshold int64

	mu   sync.Mutex
	over map[string]bool
}

func NewSizeAlerterListener(logger *slog.Logger, threshold int64) *SizeAlerterListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SizeAlerterListener{
		logger:    logger.With("component", "SizeAlerterListener"),
		threshold: threshold,
		over:      make(map[string]bool),
	}
}

func (l *SizeAlerterListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	if event.Type() != hooks.EventPostSync {
		return nil
	}
	payload, ok := event.Payload().(hooks.PostSyncPayload)
	if !ok {
		l.logger.Error("Received PostSync event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	above := payload.Size > l.threshold
	if above && !l.over[payload.Name] {
		l.logger.Warn("File grew beyond size threshold", "name", payload.Name, "size", payload.Size, "threshold", l.threshold)
	}
	if above {
		l.over[payload.Name] = true
	} else {
		delete(l.over, payload.Name)
	}
	return nil
}

// Over reports whether name is currently above the threshold.
func (l *SizeAlerterListener) Over(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.over[name]
}

func (l *SizeAlerterListener) Priority() int { return 100 }

func (l *SizeAlerterListener) IsAsync() bool { return true }
