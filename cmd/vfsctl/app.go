package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"time"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/compressors"
	"github.com/INLOpen/nexusvfs/config"
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/durable"
	"github.com/INLOpen/nexusvfs/hooks"
	"github.com/INLOpen/nexusvfs/hooks/listeners"
	"github.com/INLOpen/nexusvfs/pagevfs"
	"github.com/INLOpen/nexusvfs/server"
	"github.com/INLOpen/nexusvfs/syncfs"
	"github.com/INLOpen/nexusvfs/vfs"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// app is a wired page store: blob store, optional durable syncer, flush
// coordinator, hooks and the registered filesystem.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store          blobstore.Store
	syncer         *durable.Syncer
	coordinator    *syncfs.Coordinator
	hooks          hooks.HookManager
	fs             *pagevfs.PageVFS
	tp             *sdktrace.TracerProvider
	tracerCleanup  func()
	shutdownWindow time.Duration
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:            cfg,
		logger:         logger,
		shutdownWindow: config.ParseDuration(cfg.ShutdownTimeout, 10*time.Second, logger),
	}

	tp, cleanup, err := initTracerProvider(cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	a.tp, a.tracerCleanup = tp, cleanup

	a.hooks = hooks.NewHookManager(logger)
	if err := a.registerListeners(); err != nil {
		a.tracerCleanup()
		return nil, err
	}

	if err := a.openStore(ctx); err != nil {
		a.hooks.Stop()
		a.tracerCleanup()
		return nil, err
	}

	opts := pagevfs.Options{
		Name:           cfg.VFS.Name,
		Store:          a.store,
		SectorSize:     cfg.VFS.SectorSize,
		PathPrefix:     cfg.VFS.PathPrefix,
		MaxPathname:    cfg.VFS.MaxPathname,
		Logger:         logger,
		TracerProvider: tp,
		Hooks:          a.hooks,
	}
	// A nil *Coordinator must not reach the interface field.
	if a.coordinator != nil {
		opts.Coordinator = a.coordinator
	}
	a.fs, err = pagevfs.New(opts)
	if err != nil {
		a.closeBackends()
		return nil, err
	}
	if rc := a.fs.Register(cfg.VFS.MakeDefault); rc != core.OK {
		a.closeBackends()
		return nil, fmt.Errorf("failed to register %s: %w", cfg.VFS.Name, rc.Err())
	}
	server.Publish("pagevfs_"+cfg.VFS.Name, a.fs.Metrics())
	if a.coordinator != nil {
		coord := a.coordinator
		server.Publish("syncfs_"+cfg.VFS.Name, expvar.Func(func() any { return coord.Stats() }))
	}
	logger.Info("Page store registered", "name", cfg.VFS.Name, "default", cfg.VFS.MakeDefault, "backend", cfg.Storage.Backend)
	return a, nil
}

func (a *app) registerListeners() error {
	a.hooks.Register(hooks.EventPostSync, listeners.NewWriteVolumeListener(a.logger))
	if len(a.cfg.VFS.DeniedNames) > 0 {
		guard, err := listeners.NewNameGuardListener(a.logger, a.cfg.VFS.DeniedNames)
		if err != nil {
			return err
		}
		a.hooks.Register(hooks.EventPreOpen, guard)
		a.hooks.Register(hooks.EventPreDelete, guard)
	}
	if a.cfg.VFS.SizeAlertBytes > 0 {
		a.hooks.Register(hooks.EventPostSync, listeners.NewSizeAlerterListener(a.logger, a.cfg.VFS.SizeAlertBytes))
	}
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	if a.cfg.Storage.Backend == "dir" {
		store, err := blobstore.NewDirStore(a.cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		a.store = store
		return nil
	}

	mem := blobstore.NewMemStore()
	a.store = mem
	if !a.cfg.Durable.Enabled {
		return nil
	}
	codec, err := compressors.ForName(a.cfg.Durable.Compression)
	if err != nil {
		return err
	}
	a.syncer, err = durable.New(mem, durable.Options{
		Dir:            a.cfg.Durable.Dir,
		Compressor:     codec,
		Concurrency:    a.cfg.Durable.Concurrency,
		LockTimeout:    config.ParseDuration(a.cfg.Durable.LockTimeout, 2*time.Second, a.logger),
		Logger:         a.logger,
		TracerProvider: a.tp,
	})
	if err != nil {
		return fmt.Errorf("failed to open durable directory: %w", err)
	}
	if err := a.syncer.Load(ctx); err != nil {
		a.syncer.Close()
		return fmt.Errorf("failed to load durable state: %w", err)
	}
	a.coordinator, err = syncfs.New(syncfs.FlusherFunc(a.syncer.Sync), syncfs.Options{Logger: a.logger, Hooks: a.hooks})
	if err != nil {
		a.syncer.Close()
		return err
	}
	return nil
}

// table is the registered filesystem as the engine would find it.
func (a *app) table() *vfs.VFS {
	return vfs.Find(a.cfg.VFS.Name)
}

// flush requests a flush and waits for the coordinator to drain.
func (a *app) flush(ctx context.Context) error {
	if a.coordinator == nil {
		return nil
	}
	if err := a.coordinator.Request(); err != nil {
		return err
	}
	return a.waitIdle(ctx)
}

func (a *app) waitIdle(ctx context.Context) error {
	if a.coordinator == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.shutdownWindow)
	defer cancel()
	if err := a.coordinator.WaitIdle(ctx); err != nil {
		return fmt.Errorf("flush did not finish: %w", err)
	}
	if s := a.coordinator.Stats(); s.Failed > 0 {
		return fmt.Errorf("%d flush(es) failed", s.Failed)
	}
	return nil
}

func (a *app) closeBackends() error {
	var errs []error
	if a.coordinator != nil {
		errs = append(errs, a.coordinator.Close())
	}
	if a.syncer != nil {
		errs = append(errs, a.syncer.Close())
	}
	a.hooks.Stop()
	a.tracerCleanup()
	return errors.Join(errs...)
}

// Close waits for outstanding flushes, unregisters the filesystem and
// releases the backends.
func (a *app) Close() error {
	waitErr := a.waitIdle(context.Background())
	a.fs.Unregister()
	return errors.Join(waitErr, a.closeBackends())
}
