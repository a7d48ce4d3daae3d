package shim

import (
	"errors"
	"unsafe"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/vfs"
)

var (
	ErrEmptyName = errors.New("shim: filesystem name must not be empty")
	ErrNilImpl   = errors.New("shim: filesystem implementation is nil")
	ErrNoBase    = errors.New("shim: no base filesystem registered")
)

// Adapter is a filesystem table whose slots route to a VFSImpl. The embedded
// vfs.VFS is what gets registered and handed to the engine.
type Adapter[T any, PT FilePtr[T]] struct {
	vfs.VFS

	Impl      VFSImpl[T, PT]
	original  *vfs.VFS
	footprint int
}

// New builds an adapter named name around impl, wrapping base. A nil base
// wraps the current default filesystem. The adapter copies the base's version
// and path limit and declares a slab footprint large enough for its own
// handle plus the base's file.
func New[T any, PT FilePtr[T]](name string, impl VFSImpl[T, PT], base *vfs.VFS) (*Adapter[T, PT], error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if impl == nil {
		return nil, ErrNilImpl
	}
	if base == nil {
		base = vfs.Default()
	}
	if base == nil {
		return nil, ErrNoBase
	}
	impl.bind(base)

	a := &Adapter[T, PT]{
		Impl:      impl,
		original:  base,
		footprint: int(unsafe.Sizeof(FileHandle[T, PT]{})),
	}
	version := base.Version
	if version > vfs.MaxVFSVersion {
		version = vfs.MaxVFSVersion
	}
	a.VFS = vfs.VFS{
		Version:          version,
		SzOsFile:         a.footprint + base.SzOsFile,
		MaxPathname:      base.MaxPathname,
		Name:             name,
		Open:             a.open,
		Delete:           func(_ *vfs.VFS, name string, syncDir bool) core.ResultCode { return a.Impl.Delete(name, syncDir) },
		Access:           func(_ *vfs.VFS, name string, flags core.AccessFlag) (bool, core.ResultCode) { return a.Impl.Access(name, flags) },
		FullPathname:     func(_ *vfs.VFS, name string) (string, core.ResultCode) { return a.Impl.FullPathname(name) },
		DlOpen:           func(_ *vfs.VFS, filename string) uintptr { return a.Impl.DlOpen(filename) },
		DlError:          func(_ *vfs.VFS) string { return a.Impl.DlError() },
		DlSym:            func(_ *vfs.VFS, h uintptr, symbol string) uintptr { return a.Impl.DlSym(h, symbol) },
		DlClose:          func(_ *vfs.VFS, h uintptr) { a.Impl.DlClose(h) },
		Randomness:       func(_ *vfs.VFS, p []byte) int { return a.Impl.Randomness(p) },
		Sleep:            func(_ *vfs.VFS, us int) int { return a.Impl.Sleep(us) },
		CurrentTime:      func(_ *vfs.VFS) (float64, core.ResultCode) { return a.Impl.CurrentTime() },
		GetLastError:     func(_ *vfs.VFS) (int, string) { return a.Impl.GetLastError() },
		CurrentTimeInt64: func(_ *vfs.VFS) (int64, core.ResultCode) { return a.Impl.CurrentTimeInt64() },
		SetSystemCall:    func(_ *vfs.VFS, name string, fn uintptr) core.ResultCode { return a.Impl.SetSystemCall(name, fn) },
		GetSystemCall:    func(_ *vfs.VFS, name string) uintptr { return a.Impl.GetSystemCall(name) },
		NextSystemCall:   func(_ *vfs.VFS, name string) string { return a.Impl.NextSystemCall(name) },
	}
	return a, nil
}

// Table returns the filesystem table handed to the engine.
func (a *Adapter[T, PT]) Table() *vfs.VFS {
	return &a.VFS
}

// Base returns the filesystem this adapter wraps.
func (a *Adapter[T, PT]) Base() *vfs.VFS {
	return a.original
}

// Footprint is the size of the adapter's own handle within each slab.
func (a *Adapter[T, PT]) Footprint() int {
	return a.footprint
}

func (a *Adapter[T, PT]) open(_ *vfs.VFS, name string, f *vfs.File, flags core.OpenFlag) (core.OpenFlag, core.ResultCode) {
	if f.Size() < a.SzOsFile || f.Object() != nil {
		f.Methods = nil
		return 0, core.Misuse
	}
	h := &FileHandle[T, PT]{original: vfs.NewFile(f.Size() - a.footprint)}
	f.Construct(h)

	out, rc := a.Impl.Open(name, h, flags)
	h.setup(f, rc)
	if rc != core.OK {
		h.destroy(f)
	}
	return out, rc
}

// Register adds the adapter to the process registry. Registering again is
// harmless; pass makeDefault to promote an already registered adapter.
func (a *Adapter[T, PT]) Register(makeDefault bool) core.ResultCode {
	return vfs.Register(&a.VFS, makeDefault)
}

// Unregister removes the adapter from the registry. If it was the default,
// some other registered filesystem becomes the default.
func (a *Adapter[T, PT]) Unregister() core.ResultCode {
	return vfs.Unregister(&a.VFS)
}

// IsRegistered reports whether looking the adapter's name up in the registry
// yields this adapter.
func (a *Adapter[T, PT]) IsRegistered() bool {
	return vfs.Find(a.Name) == &a.VFS
}
