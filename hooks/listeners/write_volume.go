package listeners

import (
	"context"
	"expvar"
	"io"
	"log/slog"
	"sync"

	"github.com/INLOpen/nexusvfs/hooks"
)

var (
	// Use sync.Once so the expvars are only created once per process.
	writeVolumeOnce   sync.Once
	syncBytesWritten  *expvar.Int
	syncEvents        *expvar.Int
	syncFlushRequests *expvar.Int
)

func initWriteVolumeMetrics() {
	writeVolumeOnce.Do(func() {
		syncBytesWritten = expvar.NewInt("vfs_sync_bytes_written_total")
		syncEvents = expvar.NewInt("vfs_sync_events_total")
		syncFlushRequests = expvar.NewInt("vfs_sync_flush_requests_total")
		// Average bytes per sync, computed on scrape.
		expvar.Publish("vfs_sync_bytes_per_sync", expvar.Func(func() interface{} {
			n := syncEvents.Value()
			if n == 0 {
				return 0.0
			}
			return float64(syncBytesWritten.Value()) / float64(n)
		}))
	})
}

// WriteVolumeListener accumulates how many bytes each sync made durable.
type WriteVolumeListener struct {
	logger *slog.Logger

	bytesWritten  *expvar.Int
	events        *expvar.Int
	flushRequests *expvar.Int
}

func NewWriteVolumeListener(logger *slog.Logger) *WriteVolumeListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	initWriteVolumeMetrics()
	return &WriteVolumeListener{
		logger:        logger.With("component", "WriteVolumeListener"),
		bytesWritten:  syncBytesWritten,
		events:        syncEvents,
		flushRequests: syncFlushRequests,
	}
}

func (l *WriteVolumeListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	payload, ok := event.Payload().(hooks.PostSyncPayload)
	if !ok {
		return nil
	}
	l.bytesWritten.Add(payload.BytesWritten)
	l.events.Add(1)
	if payload.Flushed {
		l.flushRequests.Add(1)
	}
	l.logger.Debug("Sync recorded", "name", payload.Name, "bytes_written", payload.BytesWritten, "flushed", payload.Flushed)
	return nil
}

func (l *WriteVolumeListener) Priority() int { return 100 }

func (l *WriteVolumeListener) IsAsync() bool { return true }
