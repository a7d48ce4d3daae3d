// Package durable persists a blobstore.MemStore image to a directory in the
// background. Sync is callback based: it returns immediately and reports the
// outcome through the completion function once the image is on disk.
package durable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/compressors"
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/sys"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	lockFileName     = "LOCK"
	defaultLockWait  = 2 * time.Second
	defaultWorkers   = 4
	blobSuffix       = core.BlobFileSuffix
	maxBlobFileBytes = 256 * 1024 * 1024
)

var (
	ErrSyncInProgress = errors.New("durable: sync already in progress")
	ErrClosed         = errors.New("durable: syncer closed")
)

type Options struct {
	// Dir receives one subdirectory per file and one .blob file per blob.
	Dir string
	// Compressor encodes payloads. Defaults to no compression.
	Compressor core.Compressor
	// Concurrency bounds parallel blob writes.
	Concurrency int
	// Dispatch runs completion callbacks, standing in for the host's event
	// loop. Nil runs them on the syncing goroutine.
	Dispatch func(func())
	// LockTimeout bounds waiting for the directory lock.
	LockTimeout    time.Duration
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Stats is a point-in-time view of syncer activity.
type Stats struct {
	Syncs        uint64
	Failures     uint64
	BlobsWritten uint64
	BlobsRemoved uint64
	LastDuration time.Duration
}

// Syncer persists the changes recorded by a MemStore.
type Syncer struct {
	opts    Options
	store   *blobstore.MemStore
	logger  *slog.Logger
	tracer  trace.Tracer
	release func() error

	// persistFunc is swapped in tests.
	persistFunc func(ctx context.Context) error

	mu      sync.Mutex
	running bool
	closed  bool
	wg      sync.WaitGroup

	syncs        atomic.Uint64
	failures     atomic.Uint64
	blobsWritten atomic.Uint64
	blobsRemoved atomic.Uint64
	lastDuration atomic.Int64
}

// New prepares opts.Dir and takes an exclusive lock on it for the life of the
// syncer.
func New(store *blobstore.MemStore, opts Options) (*Syncer, error) {
	if store == nil {
		return nil, errors.New("durable: store is nil")
	}
	if opts.Dir == "" {
		return nil, errors.New("durable: directory is required")
	}
	if opts.Compressor == nil {
		opts.Compressor = compressors.NewNoCompressionCompressor()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultWorkers
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockWait
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "DurableSyncer", "dir", opts.Dir)

	var tracer trace.Tracer
	if opts.TracerProvider != nil {
		tracer = opts.TracerProvider.Tracer("github.com/INLOpen/nexusvfs/durable")
	} else {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	if err := sys.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create durable directory: %w", err)
	}
	release, err := sys.AcquireOSFileLock(filepath.Join(opts.Dir, lockFileName), opts.LockTimeout)
	if err != nil {
		if !strings.Contains(err.Error(), "not supported") {
			return nil, fmt.Errorf("failed to lock durable directory: %w", err)
		}
		logger.Warn("Directory lock not supported on this platform; continuing unlocked")
		release = func() error { return nil }
	}

	s := &Syncer{
		opts:    opts,
		store:   store,
		logger:  logger,
		tracer:  tracer,
		release: release,
	}
	s.persistFunc = s.persist
	return s, nil
}

// Sync starts persisting every pending change in the background and calls done
// with the outcome. It returns ErrSyncInProgress while a previous sync is still
// running and ErrClosed after Close; done is not called in either case.
func (s *Syncer) Sync(done func(error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.running {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := s.persistFunc(context.Background())

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		if done == nil {
			return
		}
		if s.opts.Dispatch != nil {
			s.opts.Dispatch(func() { done(err) })
			return
		}
		done(err)
	}()
	return nil
}

// SyncNow runs a sync and waits for it.
func (s *Syncer) SyncNow(ctx context.Context) error {
	result := make(chan error, 1)
	if err := s.Sync(func(err error) { result <- err }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Syncer) persist(ctx context.Context) (err error) {
	start := time.Now()
	changes := s.store.Changes()

	ctx, span := s.tracer.Start(ctx, "DurableSyncer.Sync")
	span.SetAttributes(attribute.Int("durable.changes", len(changes)))
	defer func() {
		d := time.Since(start)
		s.lastDuration.Store(int64(d))
		s.syncs.Add(1)
		if err != nil {
			s.failures.Add(1)
			// Put the snapshot back so the next sync retries it.
			s.store.Requeue(changes)
			span.RecordError(err)
			span.SetStatus(codes.Error, "sync_failed")
			s.logger.Error("Sync failed", "changes", len(changes), "error", err)
		} else {
			s.logger.Debug("Sync complete", "changes", len(changes), "duration", d)
		}
		span.End()
	}()

	if len(changes) == 0 {
		return nil
	}

	made := make(map[string]struct{})
	var puts []blobstore.Change
	for _, ch := range changes {
		dirPath := filepath.Join(s.opts.Dir, blobstore.EncodeDir(ch.Dir))
		switch {
		case ch.Removed && ch.Key == "":
			if err := os.RemoveAll(dirPath); err != nil {
				return fmt.Errorf("failed to remove %s: %w", ch.Dir, err)
			}
			delete(made, ch.Dir)
			s.blobsRemoved.Add(1)
		case ch.Removed:
			if err := sys.Remove(filepath.Join(dirPath, ch.Key+blobSuffix)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove %s/%s: %w", ch.Dir, ch.Key, err)
			}
			s.blobsRemoved.Add(1)
		default:
			if _, ok := made[ch.Dir]; !ok {
				if err := sys.MkdirAll(dirPath, 0755); err != nil {
					return fmt.Errorf("failed to create directory for %s: %w", ch.Dir, err)
				}
				made[ch.Dir] = struct{}{}
			}
			puts = append(puts, ch)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, ch := range puts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, err := encodeBlob(s.opts.Compressor, ch.Data)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", ch.Dir, ch.Key, err)
			}
			path := filepath.Join(s.opts.Dir, blobstore.EncodeDir(ch.Dir), ch.Key+blobSuffix)
			if err := sys.WriteFileAtomic(path, file, 0644); err != nil {
				return fmt.Errorf("failed to write %s/%s: %w", ch.Dir, ch.Key, err)
			}
			s.blobsWritten.Add(1)
			return nil
		})
	}
	return g.Wait()
}

// Load reads every persisted blob into the store. It is meant to run once at
// startup, before the store is used; loaded blobs are not marked dirty.
func (s *Syncer) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "DurableSyncer.Load")
	defer span.End()

	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		return fmt.Errorf("failed to list durable directory: %w", err)
	}

	type job struct {
		dir, key, path string
	}
	var jobs []job
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir, err := blobstore.DecodeDir(e.Name())
		if err != nil {
			s.logger.Warn("Skipping directory with undecodable name", "name", e.Name(), "error", err)
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.opts.Dir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, blobSuffix) {
				continue
			}
			jobs = append(jobs, job{
				dir:  dir,
				key:  strings.TrimSuffix(name, blobSuffix),
				path: filepath.Join(s.opts.Dir, e.Name(), name),
			})
		}
	}

	loaded := make([]blobstore.Change, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := readBlobFile(j.path)
			if err != nil {
				return fmt.Errorf("failed to read %s/%s: %w", j.dir, j.key, err)
			}
			data, err := decodeBlob(raw)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", j.dir, j.key, err)
			}
			loaded[i] = blobstore.Change{Dir: j.dir, Key: j.key, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_failed")
		return err
	}
	s.store.Apply(loaded)
	span.SetAttributes(attribute.Int("durable.blobs", len(loaded)))
	s.logger.Info("Loaded durable image", "blobs", len(loaded))
	return nil
}

func readBlobFile(path string) ([]byte, error) {
	f, err := sys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxBlobFileBytes))
}

// Stats returns counters accumulated since New.
func (s *Syncer) Stats() Stats {
	return Stats{
		Syncs:        s.syncs.Load(),
		Failures:     s.failures.Load(),
		BlobsWritten: s.blobsWritten.Load(),
		BlobsRemoved: s.blobsRemoved.Load(),
		LastDuration: time.Duration(s.lastDuration.Load()),
	}
}

// Close rejects new syncs, waits for a running one and releases the
// directory lock.
func (s *Syncer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	return s.release()
}
