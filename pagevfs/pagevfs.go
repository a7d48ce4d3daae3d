// Package pagevfs is a filesystem that stores every file as a directory of
// blobs: one blob per database page plus a "file_size" record holding the
// logical length as decimal text. Journal files are kept in memory and stored
// as a single page 0 blob on sync. Durability is asynchronous: Sync persists
// into the blob store and asks a FlushRequester to flush it.
//
// A typical wiring over the durable syncer:
//
//	store := blobstore.NewMemStore()
//	syncer, _ := durable.New(store, durable.Options{Dir: dir})
//	coord, _ := syncfs.New(syncfs.FlusherFunc(syncer.Sync), syncfs.Options{})
//	fs, _ := pagevfs.New(pagevfs.Options{Store: store, Coordinator: coord})
//	fs.Register(true)
package pagevfs

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/hooks"
	"github.com/INLOpen/nexusvfs/shim"
	"github.com/INLOpen/nexusvfs/vfs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Adapter is the registered table of a page store.
type Adapter = shim.Adapter[PageFile, *PageFile]

// PageVFS implements the filesystem side of the page store. Operations it
// does not override (randomness, time, sleep, dl*) go to the wrapped base.
type PageVFS struct {
	shim.BaseVFS[PageFile, *PageFile]

	name        string
	store       blobstore.Store
	coordinator FlushRequester
	sectorSize  int
	prefix      string
	maxPathname int

	logger  *slog.Logger
	tracer  trace.Tracer
	hooks   hooks.HookManager
	metrics *expvar.Map
	adapter *Adapter
}

// New builds a page store and its adapter. The result is not registered.
func New(opts Options) (*PageVFS, error) {
	p := &PageVFS{
		name:        opts.Name,
		store:       opts.Store,
		coordinator: opts.Coordinator,
		sectorSize:  opts.SectorSize,
		prefix:      opts.PathPrefix,
		maxPathname: opts.MaxPathname,
		hooks:       opts.Hooks,
		metrics:     new(expvar.Map).Init(),
	}
	if p.name == "" {
		p.name = Name
	}
	if p.store == nil {
		p.store = blobstore.NewMemStore()
	}
	if p.sectorSize <= 0 {
		p.sectorSize = DefaultSectorSize
	}
	if p.prefix == "" {
		p.prefix = DefaultPathPrefix
	}
	if p.hooks == nil {
		p.hooks = hooks.NoopHookManager{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p.logger = logger.With("component", "PageVFS", "vfs", p.name)
	if opts.TracerProvider != nil {
		p.tracer = opts.TracerProvider.Tracer("github.com/INLOpen/nexusvfs/pagevfs")
	} else {
		p.tracer = noop.NewTracerProvider().Tracer("")
	}
	for _, key := range []string{"reads", "writes", "syncs", "short_reads", "flush_requests"} {
		p.metrics.Add(key, 0)
	}

	a, err := shim.New[PageFile, *PageFile](p.name, p, opts.Base)
	if err != nil {
		return nil, fmt.Errorf("failed to create page store adapter: %w", err)
	}
	if p.maxPathname <= 0 {
		p.maxPathname = a.MaxPathname
	}
	a.MaxPathname = p.maxPathname
	p.adapter = a
	return p, nil
}

// Adapter returns the table handed to the engine.
func (p *PageVFS) Adapter() *Adapter { return p.adapter }

// Table is a shorthand for Adapter().Table().
func (p *PageVFS) Table() *vfs.VFS { return p.adapter.Table() }

func (p *PageVFS) Register(makeDefault bool) core.ResultCode { return p.adapter.Register(makeDefault) }

func (p *PageVFS) Unregister() core.ResultCode { return p.adapter.Unregister() }

// Metrics returns the per-instance counters. The caller decides whether and
// under which name to publish them.
func (p *PageVFS) Metrics() *expvar.Map { return p.metrics }

// Store returns the blob store backing the files.
func (p *PageVFS) Store() blobstore.Store { return p.store }

func (p *PageVFS) trigger(event hooks.HookEvent) error {
	return p.hooks.Trigger(context.Background(), event)
}

// requestFlush asks the coordinator for a flush and reports whether one was
// requested.
func (p *PageVFS) requestFlush() bool {
	if p.coordinator == nil {
		return false
	}
	if err := p.coordinator.Request(); err != nil {
		p.logger.Warn("Flush request rejected", "error", err)
		return false
	}
	p.metrics.Add("flush_requests", 1)
	return true
}

// tempName generates a unique name for an engine temporary file.
func (p *PageVFS) tempName() string {
	var buf [8]byte
	p.Randomness(buf[:])
	return fmt.Sprintf("%setilqs_%x", p.prefix, buf[:])
}

func (p *PageVFS) Open(name string, handle *shim.FileHandle[PageFile, *PageFile], flags core.OpenFlag) (core.OpenFlag, core.ResultCode) {
	if name == "" {
		name = p.tempName()
		flags |= core.OpenCreate | core.OpenDeleteOnClose
	}
	_, span := p.tracer.Start(context.Background(), "PageVFS.Open")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", name), attribute.Int("open.flags", int(flags)))
	p.logger.Debug("Open", "name", name, "flags", flags)

	if err := p.trigger(hooks.NewPreOpenEvent(hooks.PreOpenPayload{Name: name, Flags: flags})); err != nil {
		p.logger.Warn("Open rejected by hook", "name", name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected by hook")
		return 0, core.CantOpen
	}

	f := PageFile{
		fs:            p,
		name:          name,
		database:      flags.IsDatabase(),
		deleteOnClose: flags.Has(core.OpenDeleteOnClose),
	}
	size, err := loadSize(p.store, name)
	switch {
	case err == nil:
		if flags.Has(core.OpenCreate | core.OpenExclusive) {
			span.SetStatus(codes.Error, "file exists")
			return 0, core.CantOpen
		}
		f.size.value = size
	case errors.Is(err, blobstore.ErrNotExist):
		if !flags.Has(core.OpenCreate) {
			span.SetStatus(codes.Error, "file does not exist")
			return 0, core.CantOpen
		}
		// A new file gets its size record on first sync.
		f.size.dirty = true
		f.changed = true
	default:
		p.logger.Error("Failed to load size record", "name", name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "size record unreadable")
		return 0, core.CantOpen
	}
	handle.Impl = f

	p.trigger(hooks.NewPostOpenEvent(hooks.PostOpenPayload{Name: name, Flags: flags, Database: f.database, Size: f.size.value}))
	return flags, core.OK
}

func (p *PageVFS) Delete(name string, syncDir bool) core.ResultCode {
	_, span := p.tracer.Start(context.Background(), "PageVFS.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", name))
	p.logger.Debug("Delete", "name", name, "sync_dir", syncDir)

	if err := p.trigger(hooks.NewPreDeleteEvent(hooks.PreDeletePayload{Name: name})); err != nil {
		p.logger.Warn("Delete rejected by hook", "name", name, "error", err)
		span.SetStatus(codes.Error, "rejected by hook")
		return core.IOErrDelete
	}
	if err := p.store.Remove(name, core.SizeRecordKey); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "size record not removed")
		return core.IOErrDelete
	}

	removed := p.removePages(name)
	span.SetAttributes(attribute.Int64("pages.removed", int64(removed)))

	if syncDir {
		p.requestFlush()
	}
	p.trigger(hooks.NewPostDeleteEvent(hooks.PostDeletePayload{Name: name, PagesRemoved: removed}))
	return core.OK
}

// removePages drops pages from page 0 up to the first missing one, then the
// file's directory, and returns the number of pages removed.
func (p *PageVFS) removePages(name string) uint64 {
	var removed uint64
	for page := uint64(0); ; page++ {
		if err := p.store.Remove(name, blobstore.PageKey(page)); err != nil {
			break
		}
		removed++
	}
	if err := p.store.RemoveDir(name); err != nil {
		p.logger.Warn("Failed to remove file directory", "name", name, "error", err)
	}
	return removed
}

func (p *PageVFS) Access(name string, flags core.AccessFlag) (bool, core.ResultCode) {
	switch flags {
	case core.AccessExists, core.AccessRead, core.AccessReadWrite:
		return p.store.Exists(name, core.SizeRecordKey), core.OK
	}
	return false, core.NotFound
}

func (p *PageVFS) FullPathname(name string) (string, core.ResultCode) {
	full := name
	if !strings.HasPrefix(name, "/") {
		full = p.prefix + name
	}
	if len(full) > p.maxPathname {
		return "", core.CantOpen
	}
	return full, core.OK
}
