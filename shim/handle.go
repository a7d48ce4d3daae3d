package shim

import (
	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/vfs"
)

// FileHandle is what the adapter constructs inside every engine file slab: the
// method table the slab points at, the implementation value and the slab of
// the wrapped original file.
type FileHandle[T any, PT FilePtr[T]] struct {
	methods   vfs.IOMethods
	Impl      T
	original  *vfs.File
	destroyed bool
}

// File returns the implementation as its FileImpl pointer.
func (h *FileHandle[T, PT]) File() PT {
	return PT(&h.Impl)
}

// Original returns the slab for the wrapped filesystem's file. BaseVFS.Open
// opens the original filesystem on it.
func (h *FileHandle[T, PT]) Original() *vfs.File {
	return h.original
}

// setup finalizes an open. On OK the implementation is bound to its original
// and every slot is routed to it; otherwise the slab is left without methods.
func (h *FileHandle[T, PT]) setup(f *vfs.File, rc core.ResultCode) {
	if rc != core.OK {
		f.Methods = nil
		return
	}
	impl := h.File()
	impl.base().Original = h.original

	version := impl.Version()
	if version < 1 {
		version = 1
	}
	if version > vfs.MaxIOVersion {
		version = vfs.MaxIOVersion
	}
	h.methods = vfs.IOMethods{
		Version:               version,
		Close:                 closeSlot[T, PT],
		Read:                  readSlot[T, PT],
		Write:                 writeSlot[T, PT],
		Truncate:              truncateSlot[T, PT],
		Sync:                  syncSlot[T, PT],
		FileSize:              fileSizeSlot[T, PT],
		Lock:                  lockSlot[T, PT],
		Unlock:                unlockSlot[T, PT],
		CheckReservedLock:     checkReservedLockSlot[T, PT],
		FileControl:           fileControlSlot[T, PT],
		SectorSize:            sectorSizeSlot[T, PT],
		DeviceCharacteristics: deviceCharacteristicsSlot[T, PT],
		ShmMap:                shmMapSlot[T, PT],
		ShmLock:               shmLockSlot[T, PT],
		ShmBarrier:            shmBarrierSlot[T, PT],
		ShmUnmap:              shmUnmapSlot[T, PT],
		Fetch:                 fetchSlot[T, PT],
		Unfetch:               unfetchSlot[T, PT],
	}
	f.Methods = &h.methods
}

// destroy runs the implementation's destructor and clears the slab. It is a
// no-op after the first call.
func (h *FileHandle[T, PT]) destroy(f *vfs.File) {
	if h.destroyed {
		return
	}
	h.destroyed = true
	if d, ok := any(h.File()).(Destroyer); ok {
		d.Destroy()
	}
	f.Destroy()
}

func handleOf[T any, PT FilePtr[T]](f *vfs.File) *FileHandle[T, PT] {
	h, _ := f.Object().(*FileHandle[T, PT])
	return h
}

func closeSlot[T any, PT FilePtr[T]](f *vfs.File) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	rc := h.File().Close()
	h.destroy(f)
	f.Methods = nil
	return rc
}

func readSlot[T any, PT FilePtr[T]](f *vfs.File, p []byte, off int64) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Read(p, off)
}

func writeSlot[T any, PT FilePtr[T]](f *vfs.File, p []byte, off int64) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Write(p, off)
}

func truncateSlot[T any, PT FilePtr[T]](f *vfs.File, size int64) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Truncate(size)
}

func syncSlot[T any, PT FilePtr[T]](f *vfs.File, flags core.SyncFlag) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Sync(flags)
}

func fileSizeSlot[T any, PT FilePtr[T]](f *vfs.File) (int64, core.ResultCode) {
	h := handleOf[T, PT](f)
	if h == nil {
		return 0, core.Misuse
	}
	return h.File().FileSize()
}

func lockSlot[T any, PT FilePtr[T]](f *vfs.File, level core.LockLevel) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Lock(level)
}

func unlockSlot[T any, PT FilePtr[T]](f *vfs.File, level core.LockLevel) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Unlock(level)
}

func checkReservedLockSlot[T any, PT FilePtr[T]](f *vfs.File) (bool, core.ResultCode) {
	h := handleOf[T, PT](f)
	if h == nil {
		return false, core.Misuse
	}
	return h.File().CheckReservedLock()
}

func fileControlSlot[T any, PT FilePtr[T]](f *vfs.File, op core.FcntlOp, arg any) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().FileControl(op, arg)
}

func sectorSizeSlot[T any, PT FilePtr[T]](f *vfs.File) int {
	h := handleOf[T, PT](f)
	if h == nil {
		return 0
	}
	return h.File().SectorSize()
}

func deviceCharacteristicsSlot[T any, PT FilePtr[T]](f *vfs.File) core.DeviceCharacteristic {
	h := handleOf[T, PT](f)
	if h == nil {
		return 0
	}
	return h.File().DeviceCharacteristics()
}

func shmMapSlot[T any, PT FilePtr[T]](f *vfs.File, region, size int, extend bool) ([]byte, core.ResultCode) {
	h := handleOf[T, PT](f)
	if h == nil {
		return nil, core.Misuse
	}
	return h.File().ShmMap(region, size, extend)
}

func shmLockSlot[T any, PT FilePtr[T]](f *vfs.File, offset, n int, flags core.ShmLockFlag) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().ShmLock(offset, n, flags)
}

func shmBarrierSlot[T any, PT FilePtr[T]](f *vfs.File) {
	if h := handleOf[T, PT](f); h != nil {
		h.File().ShmBarrier()
	}
}

func shmUnmapSlot[T any, PT FilePtr[T]](f *vfs.File, deleteFlag bool) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().ShmUnmap(deleteFlag)
}

func fetchSlot[T any, PT FilePtr[T]](f *vfs.File, off int64, amt int) ([]byte, core.ResultCode) {
	h := handleOf[T, PT](f)
	if h == nil {
		return nil, core.Misuse
	}
	return h.File().Fetch(off, amt)
}

func unfetchSlot[T any, PT FilePtr[T]](f *vfs.File, off int64, p []byte) core.ResultCode {
	h := handleOf[T, PT](f)
	if h == nil {
		return core.Misuse
	}
	return h.File().Unfetch(off, p)
}
