package sys

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// fileWrapper is a stable concrete type used to store the File interface
// inside an atomic.Value. atomic.Value requires that all stored values
// have the same concrete type; wrapping the File interface in this small
// struct ensures we can swap different File implementations safely.
type fileWrapper struct {
	f File
}

// defaultFile stores the current platform `File` implementation wrapped in a
// concrete `fileWrapper`.
var defaultFile atomic.Value // stores fileWrapper
var debugMode atomic.Bool
var debugLogger atomic.Pointer[slog.Logger]

// File abstracts the operating-system calls used by the OS filesystem, the
// directory blob store and the durable syncer, so tests can substitute them.
type File interface {
	Create(name string) (*os.File, error)
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	SafeRemove(name string) error
	SafeRemoveWithOption(name string, opts SafeRemoveOptions) error
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldpath, newpath string) error
}

// FileHandle is the subset of *os.File behaviour the substrate relies on:
// streaming reads for blob loads, positional I/O for the OS filesystem, and
// the descriptor for flock.
type FileHandle interface {
	io.ReadWriteCloser
	io.ReaderAt
	io.WriterAt

	Stat() (os.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Fd() uintptr
}

type SafeRemoveOptions interface {
	GetRetry() int
	GetIntervalRetry() time.Duration
}

type CreateHandler func(name string) (FileHandle, error)
type OpenHandler func(name string) (FileHandle, error)
type OpenFileHandler func(name string, flag int, perm os.FileMode) (FileHandle, error)
type WriteFileHandler func(name string, data []byte, perm os.FileMode) error
type RemoveHandler func(name string) error
type MkdirAllHandler func(path string, perm os.FileMode) error
type RenameHandler func(oldpath, newpath string) error

func init() {
	debugMode.Store(false)
	defaultFile.Store(fileWrapper{f: NewFile()})
}

func SetDefaultFile(file File) {
	defaultFile.Store(fileWrapper{f: file})
}

// SetDebugMode toggles the logging file wrapper. A nil logger keeps the
// previously configured one, or a stdout debug logger if none was set.
func SetDebugMode(mode bool, logger ...*slog.Logger) {
	if len(logger) > 0 && logger[0] != nil {
		debugLogger.Store(logger[0])
	}
	debugMode.Store(mode)
}

func current() (File, error) {
	p := defaultFile.Load()
	if p == nil {
		return nil, os.ErrInvalid
	}
	fw, ok := p.(fileWrapper)
	if !ok || fw.f == nil {
		return nil, os.ErrInvalid
	}
	return fw.f, nil
}

var Create CreateHandler = (func(name string) (FileHandle, error) {
	return OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
})

var Open OpenHandler = (func(name string) (FileHandle, error) {
	return OpenFile(name, os.O_RDONLY, 0)
})

var OpenFile OpenFileHandler = (func(name string, flag int, perm os.FileMode) (FileHandle, error) {
	file, err := current()
	if err != nil {
		return nil, err
	}
	if debugMode.Load() {
		return DOpenFile(file, name, flag, perm)
	}
	return ROpenFile(file, name, flag, perm)
})

var WriteFile WriteFileHandler = (func(name string, data []byte, perm os.FileMode) error {
	file, err := current()
	if err != nil {
		return err
	}
	return file.WriteFile(name, data, perm)
})

var Remove RemoveHandler = (func(name string) error {
	file, err := current()
	if err != nil {
		return err
	}
	return file.SafeRemove(name)
})

var MkdirAll MkdirAllHandler = (func(path string, perm os.FileMode) error {
	file, err := current()
	if err != nil {
		return err
	}
	return file.MkdirAll(path, perm)
})

var Rename RenameHandler = (func(oldpath, newpath string) error {
	file, err := current()
	if err != nil {
		return err
	}
	return file.Rename(oldpath, newpath)
})

// WriteFileAtomic writes data to a temporary sibling, syncs it and renames it
// over name, so readers observe either the old or the new content.
func WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	tmp := name + ".tmp"
	f, err := OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	// Close before rename for Windows compatibility.
	if err := f.Close(); err != nil {
		return err
	}
	return Rename(tmp, name)
}
