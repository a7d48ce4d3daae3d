package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/INLOpen/nexusvfs/blobstore"
	"github.com/INLOpen/nexusvfs/config"
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/server"
	"github.com/INLOpen/nexusvfs/vfs"
)

const defaultPageSize = 4096

type command func(ctx context.Context, a *app, args []string, stdout io.Writer) error

var commands = map[string]command{
	"import": cmdImport,
	"export": cmdExport,
	"stat":   cmdStat,
	"rm":     cmdRemove,
	"ls":     cmdList,
	"sync":   cmdSync,
	"serve":  cmdServe,
}

// transferFlags parses the flags shared by import and export.
func transferFlags(name string, args []string) (journal bool, pageSize int, rest []string, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&journal, "journal", false, "store the file as a single buffered journal blob")
	fs.IntVar(&pageSize, "page-size", defaultPageSize, "database page size")
	if err := fs.Parse(args); err != nil {
		return false, 0, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if pageSize <= 0 {
		return false, 0, nil, fmt.Errorf("%w: page size must be positive", errUsage)
	}
	if fs.NArg() != 2 {
		return false, 0, nil, errUsage
	}
	return journal, pageSize, fs.Args(), nil
}

func fileFlags(journal bool) core.OpenFlag {
	if journal {
		return core.OpenMainJournal
	}
	return core.OpenMainDB
}

// fullName resolves name the way the engine does before opening it.
func fullName(v *vfs.VFS, name string) (string, error) {
	full, rc := v.FullPathname(v, name)
	if rc != core.OK {
		return "", fmt.Errorf("invalid name %q: %w", name, rc.Err())
	}
	return full, nil
}

func openFile(v *vfs.VFS, name string, flags core.OpenFlag) (*vfs.File, error) {
	f, _, rc := vfs.OpenFile(v, name, flags)
	if rc != core.OK {
		return nil, &core.Error{Op: "open " + name, Code: rc}
	}
	return f, nil
}

func cmdImport(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	journal, pageSize, rest, err := transferFlags("import", args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(rest[0])
	if err != nil {
		return err
	}
	if !journal && len(data)%pageSize != 0 {
		return fmt.Errorf("%s is %d bytes, not a multiple of the %d byte page size; use -journal", rest[0], len(data), pageSize)
	}

	v := a.table()
	name, err := fullName(v, rest[1])
	if err != nil {
		return err
	}
	f, err := openFile(v, name, fileFlags(journal)|core.OpenReadWrite|core.OpenCreate)
	if err != nil {
		return err
	}
	if rc := f.Truncate(0); rc != core.OK {
		f.Close()
		return &core.Error{Op: "truncate " + name, Code: rc}
	}

	chunk := pageSize
	if journal {
		chunk = len(data)
	}
	for off := 0; off < len(data); off += chunk {
		if rc := f.WriteAt(data[off:off+chunk], int64(off)); rc != core.OK {
			f.Close()
			return &core.Error{Op: fmt.Sprintf("write %s at %d", name, off), Code: rc}
		}
	}
	if rc := f.Sync(core.SyncFull); rc != core.OK {
		f.Close()
		return &core.Error{Op: "sync " + name, Code: rc}
	}
	if rc := f.Close(); rc != core.OK {
		return &core.Error{Op: "close " + name, Code: rc}
	}
	if err := a.waitIdle(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %s (%d bytes)\n", name, len(data))
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	journal, pageSize, rest, err := transferFlags("export", args)
	if err != nil {
		return err
	}
	v := a.table()
	name, err := fullName(v, rest[0])
	if err != nil {
		return err
	}
	f, err := openFile(v, name, fileFlags(journal)|core.OpenReadOnly)
	if err != nil {
		return err
	}
	defer f.Close()

	size, rc := f.FileSize()
	if rc != core.OK {
		return &core.Error{Op: "size " + name, Code: rc}
	}
	chunk := int64(pageSize)
	if journal {
		chunk = size
	} else if size%chunk != 0 {
		return fmt.Errorf("%s is %d bytes, not a multiple of the %d byte page size; use -journal", name, size, pageSize)
	}

	out := make([]byte, 0, size)
	buf := make([]byte, chunk)
	for off := int64(0); off < size; off += chunk {
		if rc := f.ReadAt(buf, off); rc != core.OK {
			return &core.Error{Op: fmt.Sprintf("read %s at %d", name, off), Code: rc}
		}
		out = append(out, buf...)
	}
	if err := os.WriteFile(rest[1], out, 0644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported %s (%d bytes)\n", name, size)
	return nil
}

func cmdStat(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	v := a.table()
	name, err := fullName(v, args[0])
	if err != nil {
		return err
	}
	exists, rc := v.Access(v, name, core.AccessExists)
	if rc != core.OK {
		return &core.Error{Op: "access " + name, Code: rc}
	}
	if !exists {
		return fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	f, err := openFile(v, name, core.OpenMainDB|core.OpenReadOnly)
	if err != nil {
		return err
	}
	defer f.Close()
	size, _ := f.FileSize()
	keys, err := a.store.Keys(name)
	if err != nil {
		return err
	}
	pages := 0
	for _, k := range keys {
		if _, ok := blobstore.ParsePageKey(k); ok {
			pages++
		}
	}
	fmt.Fprintf(stdout, "%s\tsize=%d\tpages=%d\n", name, size, pages)
	return nil
}

func cmdRemove(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	v := a.table()
	name, err := fullName(v, args[0])
	if err != nil {
		return err
	}
	if rc := v.Delete(v, name, true); rc != core.OK {
		return &core.Error{Op: "delete " + name, Code: rc}
	}
	if err := a.waitIdle(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "removed %s\n", name)
	return nil
}

func cmdList(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	lister, ok := a.store.(blobstore.Lister)
	if !ok {
		return errors.New("store cannot list files")
	}
	dirs := lister.Dirs()
	sort.Strings(dirs)
	for _, d := range dirs {
		fmt.Fprintln(stdout, d)
	}
	return nil
}

func cmdSync(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if err := a.flush(ctx); err != nil {
		return err
	}
	if a.syncer != nil {
		s := a.syncer.Stats()
		fmt.Fprintf(stdout, "synced: %d blobs written, %d removed\n", s.BlobsWritten, s.BlobsRemoved)
	} else {
		fmt.Fprintln(stdout, "nothing to sync")
	}
	return nil
}

// cmdServe keeps the page store registered and serves the debug endpoint
// until the context ends or the process is signalled.
func cmdServe(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	diskPath := a.cfg.Storage.DataDir
	if a.cfg.Storage.Backend == "memory" && a.cfg.Durable.Enabled {
		diskPath = a.cfg.Durable.Dir
	}
	collector := server.NewSystemCollector(diskPath, config.ParseDuration(a.cfg.Debug.CollectInterval, 15*time.Second, a.logger), a.logger)
	server.Publish("system", collector.Vars())
	collector.Start()
	defer collector.Stop()

	srvErr := make(chan error, 1)
	var metricSrv *server.MetricsServer
	if a.cfg.Debug.Enabled {
		metricSrv = server.NewMetricsServer(&a.cfg.Debug, a.logger)
		go func() { srvErr <- metricSrv.Start() }()
	}
	fmt.Fprintf(stdout, "serving %s\n", a.cfg.VFS.Name)

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-srvErr:
		if err != nil {
			return err
		}
	}
	if metricSrv != nil {
		metricSrv.Stop()
	}
	return a.flush(context.Background())
}
