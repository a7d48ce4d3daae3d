package sys

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var _ FileHandle = (*DebugFile)(nil)
var nextID atomic.Uint64

var listFD *sync.Map = new(sync.Map)

// DebugFile logs open, sync, truncate and close of the wrapped file and keeps
// a table of currently open handles for leak hunting.
type DebugFile struct {
	RealFile
	id     uint64
	logger *slog.Logger
}

func DOpenFile(sysFile File, name string, flag int, perm os.FileMode) (FileHandle, error) {
	logger := debugLogger.Load()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	f, err := sysFile.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	id := nextID.Add(1)
	logger = logger.With("component", "DebugFile", "id", id, "file_name", name)
	logger.Debug("Opening file", "flag", flag)
	listFD.Store(id, f.Name())

	return &DebugFile{
		RealFile: RealFile{File: f},
		id:       id,
		logger:   logger,
	}, nil
}

func (df *DebugFile) Sync() error {
	err := df.RealFile.Sync()
	df.logger.Debug("Syncing file", "error", err)
	return err
}

func (df *DebugFile) Truncate(size int64) error {
	err := df.RealFile.Truncate(size)
	df.logger.Debug("Truncating file", "size", size, "error", err)
	return err
}

func (df *DebugFile) Close() error {
	df.logger.Debug("Closing file")
	listFD.Delete(df.id)
	return df.RealFile.Close()
}

// OpenFiles returns the names of files opened in debug mode and not yet closed.
func OpenFiles() map[uint64]string {
	out := make(map[uint64]string)
	listFD.Range(func(key, value any) bool {
		out[key.(uint64)] = value.(string)
		return true
	})
	return out
}
