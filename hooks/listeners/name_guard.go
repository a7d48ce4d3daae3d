package listeners

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/INLOpen/nexusvfs/hooks"
)

// NameGuardListener rejects opens and deletes of files whose base name matches
// one of its patterns (path.Match syntax). It cancels the operation by
// returning an error from the Pre hook.
type NameGuardListener struct {
	logger   *slog.Logger
	patterns []string
}

// NewNameGuardListener validates the patterns up front.
func NewNameGuardListener(logger *slog.Logger, patterns []string) (*NameGuardListener, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", p, err)
		}
	}
	return &NameGuardListener{
		logger:   logger.With("component", "NameGuardListener"),
		patterns: patterns,
	}, nil
}

func (l *NameGuardListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	var name string
	switch p := event.Payload().(type) {
	case hooks.PreOpenPayload:
		name = p.Name
	case hooks.PreDeletePayload:
		name = p.Name
	default:
		return nil
	}
	base := path.Base(name)
	for _, pattern := range l.patterns {
		if ok, _ := path.Match(pattern, base); ok {
			l.logger.Warn("Rejected file operation", "event", event.Type(), "name", name, "pattern", pattern)
			return fmt.Errorf("file name %q matches denied pattern %q", name, pattern)
		}
	}
	return nil
}

// Priority runs the guard ahead of other listeners.
func (l *NameGuardListener) Priority() int { return 1 }

func (l *NameGuardListener) IsAsync() bool { return false }
