package pagevfs

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/hooks"
	"github.com/INLOpen/nexusvfs/shim"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// sizeRecord is the lazily synced logical length of a file.
type sizeRecord struct {
	value int64
	dirty bool
}

func (s *sizeRecord) set(n int64) {
	if n != s.value {
		s.value = n
		s.dirty = true
	}
}

func (s *sizeRecord) grow(n int64) {
	if n > s.value {
		s.set(n)
	}
}

func loadSize(store blobstore.Store, name string) (int64, error) {
	data, err := store.Load(name, core.SizeRecordKey)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("malformed size record")
	}
	return n, nil
}

func storeSize(store blobstore.Store, name string, n int64) error {
	text := strconv.FormatInt(n, 10)
	written, err := store.Put(name, core.SizeRecordKey, []byte(text))
	if err != nil {
		return err
	}
	if written < len(text) {
		return io.ErrShortWrite
	}
	return nil
}

// PageFile is one open file of the page store. Database files map every
// write onto a page blob; journals are buffered in memory and stored as a
// single page 0 blob on sync.
type PageFile struct {
	shim.BaseFile

	fs       *PageVFS
	name     string
	database bool

	size          sizeRecord
	journal       []byte
	journalLoaded bool
	journalDirty  bool

	// changed is set by every mutation and cleared by a successful sync.
	changed       bool
	written       int64
	deleteOnClose bool
}

// Name returns the full name the file was opened with.
func (f *PageFile) Name() string { return f.name }

// IsDatabase reports whether the file is addressed by page.
func (f *PageFile) IsDatabase() bool { return f.database }

func (f *PageFile) Version() int { return 1 }

func (f *PageFile) Close() core.ResultCode {
	f.fs.logger.Debug("Close", "name", f.name)
	size, _ := f.FileSize()
	deleted := false
	if f.deleteOnClose {
		if !f.fs.store.Exists(f.name, core.SizeRecordKey) {
			// Never synced: no size record, only whatever pages were written.
			f.fs.removePages(f.name)
			deleted = true
		} else if rc := f.fs.Delete(f.name, false); rc != core.OK {
			f.fs.logger.Warn("Failed to delete file on close", "name", f.name, "code", rc)
		} else {
			deleted = true
		}
	}
	f.fs.trigger(hooks.NewPostCloseEvent(hooks.PostClosePayload{Name: f.name, Size: size, Deleted: deleted}))
	return core.OK
}

func (f *PageFile) Read(p []byte, off int64) core.ResultCode {
	f.fs.metrics.Add("reads", 1)
	f.fs.logger.Debug("Read", "name", f.name, "amount", len(p), "offset", off)
	if len(p) == 0 {
		return core.OK
	}
	var rc core.ResultCode
	if f.database {
		rc = f.readPage(p, off)
	} else {
		rc = f.readJournal(p, off)
	}
	if rc == core.IOErrShortRead {
		f.fs.metrics.Add("short_reads", 1)
	}
	return rc
}

// shortRead zero-fills the part of p that was not read.
func shortRead(p []byte, n int) core.ResultCode {
	clear(p[n:])
	return core.IOErrShortRead
}

func (f *PageFile) readPage(p []byte, off int64) core.ResultCode {
	amount := int64(len(p))
	if off+amount > f.size.value {
		return shortRead(p, 0)
	}
	page, inPage := uint64(0), off
	if off+amount >= core.HeaderRegionSize {
		if off%amount != 0 {
			return core.IOErrRead
		}
		page, inPage = uint64(off/amount), 0
	}
	n, err := f.fs.store.ReadAt(f.name, blobstore.PageKey(page), p, inPage)
	if n < len(p) {
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, blobstore.ErrNotExist) {
			f.fs.logger.Error("Page read failed", "name", f.name, "page", page, "error", err)
			return core.IOErrRead
		}
		return shortRead(p, n)
	}
	return core.OK
}

// loadJournal pulls a persisted journal into memory once.
func (f *PageFile) loadJournal() {
	if f.journalLoaded {
		return
	}
	f.journalLoaded = true
	if len(f.journal) > 0 || f.size.value == 0 {
		return
	}
	buf := make([]byte, f.size.value)
	n, err := f.fs.store.ReadAt(f.name, blobstore.PageKey(0), buf, 0)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, blobstore.ErrNotExist) {
		f.fs.logger.Error("Journal load failed", "name", f.name, "error", err)
	}
	f.journal = buf[:n]
}

func (f *PageFile) readJournal(p []byte, off int64) core.ResultCode {
	f.loadJournal()
	length := int64(len(f.journal))
	if off >= length {
		return shortRead(p, 0)
	}
	n := copy(p, f.journal[off:])
	if n < len(p) {
		return shortRead(p, n)
	}
	return core.OK
}

func (f *PageFile) Write(p []byte, off int64) core.ResultCode {
	f.fs.metrics.Add("writes", 1)
	f.fs.logger.Debug("Write", "name", f.name, "amount", len(p), "offset", off)
	if len(p) == 0 {
		return core.OK
	}
	if f.database {
		return f.writePage(p, off)
	}
	return f.writeJournal(p, off)
}

// writePage stores the whole write as one page blob. The page number comes
// from offset/length, so callers must write whole pages.
func (f *PageFile) writePage(p []byte, off int64) core.ResultCode {
	amount := int64(len(p))
	page := uint64(0)
	if off != 0 {
		page = uint64(off / amount)
	}
	n, err := f.fs.store.Put(f.name, blobstore.PageKey(page), p)
	if err != nil || n < len(p) {
		f.fs.logger.Error("Page write failed", "name", f.name, "page", page, "stored", n, "error", err)
		return core.IOErrWrite
	}
	f.size.grow(off + amount)
	f.changed = true
	f.written += amount
	return core.OK
}

func (f *PageFile) writeJournal(p []byte, off int64) core.ResultCode {
	f.loadJournal()
	end := off + int64(len(p))
	if end > int64(len(f.journal)) {
		f.journal = append(f.journal, make([]byte, end-int64(len(f.journal)))...)
	}
	copy(f.journal[off:], p)
	f.journalDirty = true
	f.changed = true
	f.written += int64(len(p))
	return core.OK
}

func (f *PageFile) Truncate(size int64) core.ResultCode {
	f.fs.logger.Debug("Truncate", "name", f.name, "size", size)
	if size < 0 {
		return core.IOErrTruncate
	}
	if !f.database {
		f.loadJournal()
		switch {
		case size < int64(len(f.journal)):
			f.journal = f.journal[:size]
			f.journalDirty = true
		case size > int64(len(f.journal)) && len(f.journal) > 0:
			f.journal = append(f.journal, make([]byte, size-int64(len(f.journal)))...)
			f.journalDirty = true
		}
	}
	before := f.size.value
	f.size.set(size)
	if f.size.value != before || f.journalDirty {
		f.changed = true
	}
	return core.OK
}

func (f *PageFile) Sync(flags core.SyncFlag) core.ResultCode {
	f.fs.metrics.Add("syncs", 1)
	f.fs.logger.Debug("Sync", "name", f.name, "flags", flags)
	if !f.changed && !f.size.dirty {
		f.fs.trigger(hooks.NewPostSyncEvent(hooks.PostSyncPayload{Name: f.name, Size: f.logicalSize()}))
		return core.OK
	}

	_, span := f.fs.tracer.Start(context.Background(), "PageVFS.Sync")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", f.name), attribute.Int64("bytes.written", f.written))

	if f.journalDirty && len(f.journal) > 0 {
		n, err := f.fs.store.Put(f.name, blobstore.PageKey(0), f.journal)
		if err != nil || n < len(f.journal) {
			f.fs.logger.Error("Journal persist failed", "name", f.name, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "journal persist failed")
			return core.IOErrFsync
		}
		f.size.set(int64(len(f.journal)))
	}
	f.journalDirty = false

	if f.size.dirty {
		if err := storeSize(f.fs.store, f.name, f.size.value); err != nil {
			f.fs.logger.Error("Size record persist failed", "name", f.name, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "size record persist failed")
			return core.IOErrFsync
		}
		f.size.dirty = false
	}

	flushed := f.fs.requestFlush()
	payload := hooks.PostSyncPayload{Name: f.name, Size: f.logicalSize(), BytesWritten: f.written, Flushed: flushed}
	f.changed = false
	f.written = 0
	f.fs.trigger(hooks.NewPostSyncEvent(payload))
	return core.OK
}

func (f *PageFile) logicalSize() int64 {
	if len(f.journal) > 0 {
		return int64(len(f.journal))
	}
	return f.size.value
}

func (f *PageFile) FileSize() (int64, core.ResultCode) {
	return f.logicalSize(), core.OK
}

// Locking is left to the engine's single-writer model.

func (f *PageFile) Lock(core.LockLevel) core.ResultCode   { return core.OK }
func (f *PageFile) Unlock(core.LockLevel) core.ResultCode { return core.OK }
func (f *PageFile) CheckReservedLock() (bool, core.ResultCode) {
	return false, core.OK
}

func (f *PageFile) FileControl(op core.FcntlOp, arg any) core.ResultCode {
	switch op {
	case core.FcntlVFSName:
		out, ok := arg.(*string)
		if !ok || out == nil {
			return core.Misuse
		}
		*out = f.fs.name
		return core.OK
	}
	return core.NotFound
}

func (f *PageFile) SectorSize() int { return f.fs.sectorSize }

func (f *PageFile) DeviceCharacteristics() core.DeviceCharacteristic { return 0 }
