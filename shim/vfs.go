package shim

import (
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/vfs"
)

// VFSImpl is the full set of filesystem operations. Implementations satisfy it
// by embedding BaseVFS. Open receives the handle the adapter constructed in
// the engine's slab; the implementation initialises handle.Impl and may open
// the original filesystem on handle.Original().
type VFSImpl[T any, PT FilePtr[T]] interface {
	Open(name string, handle *FileHandle[T, PT], flags core.OpenFlag) (core.OpenFlag, core.ResultCode)
	Delete(name string, syncDir bool) core.ResultCode
	Access(name string, flags core.AccessFlag) (bool, core.ResultCode)
	FullPathname(name string) (string, core.ResultCode)
	DlOpen(filename string) uintptr
	DlError() string
	DlSym(handle uintptr, symbol string) uintptr
	DlClose(handle uintptr)
	Randomness(p []byte) int
	Sleep(microseconds int) int
	CurrentTime() (float64, core.ResultCode)
	GetLastError() (int, string)
	CurrentTimeInt64() (int64, core.ResultCode)
	SetSystemCall(name string, fn uintptr) core.ResultCode
	GetSystemCall(name string) uintptr
	NextSystemCall(name string) string

	bind(original *vfs.VFS)
}

// BaseVFS forwards every filesystem operation to Original.
type BaseVFS[T any, PT FilePtr[T]] struct {
	Original *vfs.VFS
}

func (b *BaseVFS[T, PT]) bind(original *vfs.VFS) {
	b.Original = original
}

func (b *BaseVFS[T, PT]) Open(name string, handle *FileHandle[T, PT], flags core.OpenFlag) (core.OpenFlag, core.ResultCode) {
	return b.Original.Open(b.Original, name, handle.Original(), flags)
}

func (b *BaseVFS[T, PT]) Delete(name string, syncDir bool) core.ResultCode {
	return b.Original.Delete(b.Original, name, syncDir)
}

func (b *BaseVFS[T, PT]) Access(name string, flags core.AccessFlag) (bool, core.ResultCode) {
	return b.Original.Access(b.Original, name, flags)
}

func (b *BaseVFS[T, PT]) FullPathname(name string) (string, core.ResultCode) {
	return b.Original.FullPathname(b.Original, name)
}

func (b *BaseVFS[T, PT]) DlOpen(filename string) uintptr {
	return b.Original.DlOpen(b.Original, filename)
}

func (b *BaseVFS[T, PT]) DlError() string {
	return b.Original.DlError(b.Original)
}

func (b *BaseVFS[T, PT]) DlSym(handle uintptr, symbol string) uintptr {
	return b.Original.DlSym(b.Original, handle, symbol)
}

func (b *BaseVFS[T, PT]) DlClose(handle uintptr) {
	b.Original.DlClose(b.Original, handle)
}

func (b *BaseVFS[T, PT]) Randomness(p []byte) int {
	return b.Original.Randomness(b.Original, p)
}

func (b *BaseVFS[T, PT]) Sleep(microseconds int) int {
	return b.Original.Sleep(b.Original, microseconds)
}

func (b *BaseVFS[T, PT]) CurrentTime() (float64, core.ResultCode) {
	return b.Original.CurrentTime(b.Original)
}

func (b *BaseVFS[T, PT]) GetLastError() (int, string) {
	return b.Original.GetLastError(b.Original)
}

func (b *BaseVFS[T, PT]) CurrentTimeInt64() (int64, core.ResultCode) {
	if !b.Original.Supports(2) {
		t, rc := b.Original.CurrentTime(b.Original)
		return int64(t * 86400000.0), rc
	}
	return b.Original.CurrentTimeInt64(b.Original)
}

func (b *BaseVFS[T, PT]) SetSystemCall(name string, fn uintptr) core.ResultCode {
	if !b.Original.Supports(3) {
		return core.NotFound
	}
	return b.Original.SetSystemCall(b.Original, name, fn)
}

func (b *BaseVFS[T, PT]) GetSystemCall(name string) uintptr {
	if !b.Original.Supports(3) {
		return 0
	}
	return b.Original.GetSystemCall(b.Original, name)
}

func (b *BaseVFS[T, PT]) NextSystemCall(name string) string {
	if !b.Original.Supports(3) {
		return ""
	}
	return b.Original.NextSystemCall(b.Original, name)
}
