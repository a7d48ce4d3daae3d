package shim

import (
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/vfs"
)

// FileImpl is the full set of per-file operations. Implementations satisfy it
// by embedding BaseFile.
type FileImpl interface {
	Version() int

	Close() core.ResultCode
	Read(p []byte, off int64) core.ResultCode
	Write(p []byte, off int64) core.ResultCode
	Truncate(size int64) core.ResultCode
	Sync(flags core.SyncFlag) core.ResultCode
	FileSize() (int64, core.ResultCode)
	Lock(level core.LockLevel) core.ResultCode
	Unlock(level core.LockLevel) core.ResultCode
	CheckReservedLock() (bool, core.ResultCode)
	FileControl(op core.FcntlOp, arg any) core.ResultCode
	SectorSize() int
	DeviceCharacteristics() core.DeviceCharacteristic

	ShmMap(region, size int, extend bool) ([]byte, core.ResultCode)
	ShmLock(offset, n int, flags core.ShmLockFlag) core.ResultCode
	ShmBarrier()
	ShmUnmap(deleteFlag bool) core.ResultCode

	Fetch(off int64, amt int) ([]byte, core.ResultCode)
	Unfetch(off int64, p []byte) core.ResultCode

	base() *BaseFile
}

// FilePtr constrains PT to be a pointer to T that implements FileImpl.
type FilePtr[T any] interface {
	*T
	FileImpl
}

// Destroyer is implemented by file implementations that need to release
// resources when their handle is destroyed. Destroy runs exactly once, right
// after Close or immediately after a failed open.
type Destroyer interface {
	Destroy()
}

// BaseFile forwards every operation to Original, the file opened by the wrapped
// filesystem. Original is bound by the adapter once open succeeds.
type BaseFile struct {
	Original *vfs.File
}

func (b *BaseFile) base() *BaseFile { return b }

func (b *BaseFile) methods() *vfs.IOMethods {
	if b.Original == nil {
		return nil
	}
	return b.Original.Methods
}

// Version reports the original file's table version, or 1 when the original
// has no methods.
func (b *BaseFile) Version() int {
	if m := b.methods(); m != nil {
		return m.Version
	}
	return 1
}

func (b *BaseFile) Close() core.ResultCode {
	m := b.methods()
	if m == nil || m.Close == nil {
		return core.Misuse
	}
	return m.Close(b.Original)
}

func (b *BaseFile) Read(p []byte, off int64) core.ResultCode {
	m := b.methods()
	if m == nil || m.Read == nil {
		return core.Misuse
	}
	return m.Read(b.Original, p, off)
}

func (b *BaseFile) Write(p []byte, off int64) core.ResultCode {
	m := b.methods()
	if m == nil || m.Write == nil {
		return core.Misuse
	}
	return m.Write(b.Original, p, off)
}

func (b *BaseFile) Truncate(size int64) core.ResultCode {
	m := b.methods()
	if m == nil || m.Truncate == nil {
		return core.Misuse
	}
	return m.Truncate(b.Original, size)
}

func (b *BaseFile) Sync(flags core.SyncFlag) core.ResultCode {
	m := b.methods()
	if m == nil || m.Sync == nil {
		return core.Misuse
	}
	return m.Sync(b.Original, flags)
}

func (b *BaseFile) FileSize() (int64, core.ResultCode) {
	m := b.methods()
	if m == nil || m.FileSize == nil {
		return 0, core.Misuse
	}
	return m.FileSize(b.Original)
}

func (b *BaseFile) Lock(level core.LockLevel) core.ResultCode {
	m := b.methods()
	if m == nil || m.Lock == nil {
		return core.Misuse
	}
	return m.Lock(b.Original, level)
}

func (b *BaseFile) Unlock(level core.LockLevel) core.ResultCode {
	m := b.methods()
	if m == nil || m.Unlock == nil {
		return core.Misuse
	}
	return m.Unlock(b.Original, level)
}

func (b *BaseFile) CheckReservedLock() (bool, core.ResultCode) {
	m := b.methods()
	if m == nil || m.CheckReservedLock == nil {
		return false, core.Misuse
	}
	return m.CheckReservedLock(b.Original)
}

func (b *BaseFile) FileControl(op core.FcntlOp, arg any) core.ResultCode {
	m := b.methods()
	if m == nil || m.FileControl == nil {
		return core.Misuse
	}
	return m.FileControl(b.Original, op, arg)
}

func (b *BaseFile) SectorSize() int {
	m := b.methods()
	if m == nil || m.SectorSize == nil {
		return 0
	}
	return m.SectorSize(b.Original)
}

func (b *BaseFile) DeviceCharacteristics() core.DeviceCharacteristic {
	m := b.methods()
	if m == nil || m.DeviceCharacteristics == nil {
		return 0
	}
	return m.DeviceCharacteristics(b.Original)
}

// The tier 2 and tier 3 defaults answer the way an engine expects from a file
// without shared memory or memory mapping when the original lacks the slot.

func (b *BaseFile) ShmMap(region, size int, extend bool) ([]byte, core.ResultCode) {
	m := b.methods()
	if m == nil || m.ShmMap == nil {
		return nil, core.IOErr
	}
	return m.ShmMap(b.Original, region, size, extend)
}

func (b *BaseFile) ShmLock(offset, n int, flags core.ShmLockFlag) core.ResultCode {
	m := b.methods()
	if m == nil || m.ShmLock == nil {
		return core.IOErr
	}
	return m.ShmLock(b.Original, offset, n, flags)
}

func (b *BaseFile) ShmBarrier() {
	if m := b.methods(); m != nil && m.ShmBarrier != nil {
		m.ShmBarrier(b.Original)
	}
}

func (b *BaseFile) ShmUnmap(deleteFlag bool) core.ResultCode {
	m := b.methods()
	if m == nil || m.ShmUnmap == nil {
		return core.OK
	}
	return m.ShmUnmap(b.Original, deleteFlag)
}

func (b *BaseFile) Fetch(off int64, amt int) ([]byte, core.ResultCode) {
	m := b.methods()
	if m == nil || m.Fetch == nil {
		return nil, core.OK
	}
	return m.Fetch(b.Original, off, amt)
}

func (b *BaseFile) Unfetch(off int64, p []byte) core.ResultCode {
	m := b.methods()
	if m == nil || m.Unfetch == nil {
		return core.OK
	}
	return m.Unfetch(b.Original, off, p)
}
