package vfs

import (
	"errors"
	"io"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/sys"
)

// osFile is the state the OS filesystem constructs in a file slab.
type osFile struct {
	fh            sys.FileHandle
	path          string
	vfs           *VFS
	lock          core.LockLevel
	deleteOnClose bool
}

var osMethods = &IOMethods{
	Version:               1,
	Close:                 osClose,
	Read:                  osRead,
	Write:                 osWrite,
	Truncate:              osTruncate,
	Sync:                  osSync,
	FileSize:              osFileSize,
	Lock:                  osLock,
	Unlock:                osUnlock,
	CheckReservedLock:     osCheckReservedLock,
	FileControl:           osFileControl,
	SectorSize:            func(*File) int { return osSectorSize },
	DeviceCharacteristics: func(*File) core.DeviceCharacteristic { return core.IOCapPowersafeOverwrite },
}

func osObject(f *File) *osFile {
	o, _ := f.Object().(*osFile)
	return o
}

func osClose(f *File) core.ResultCode {
	o := osObject(f)
	if o == nil {
		return core.Misuse
	}
	rc := core.OK
	if o.lock != core.LockNone {
		_ = sys.LockFile(o.fh.Fd(), core.LockNone)
	}
	if err := o.fh.Close(); err != nil {
		stateOf(o.vfs).record(err)
		rc = core.IOErrClose
	}
	if o.deleteOnClose {
		_ = sys.Remove(o.path)
	}
	f.Destroy()
	f.Methods = nil
	return rc
}

func osRead(f *File, p []byte, off int64) core.ResultCode {
	o := osObject(f)
	n, err := o.fh.ReadAt(p, off)
	if n == len(p) {
		return core.OK
	}
	if err != nil && !errors.Is(err, io.EOF) {
		stateOf(o.vfs).record(err)
		return core.IOErrRead
	}
	clear(p[n:])
	return core.IOErrShortRead
}

func osWrite(f *File, p []byte, off int64) core.ResultCode {
	o := osObject(f)
	n, err := o.fh.WriteAt(p, off)
	if err != nil || n != len(p) {
		stateOf(o.vfs).record(err)
		return core.IOErrWrite
	}
	return core.OK
}

func osTruncate(f *File, size int64) core.ResultCode {
	o := osObject(f)
	if err := o.fh.Truncate(size); err != nil {
		stateOf(o.vfs).record(err)
		return core.IOErrTruncate
	}
	return core.OK
}

func osSync(f *File, flags core.SyncFlag) core.ResultCode {
	o := osObject(f)
	if err := o.fh.Sync(); err != nil {
		stateOf(o.vfs).record(err)
		return core.IOErrFsync
	}
	return core.OK
}

func osFileSize(f *File) (int64, core.ResultCode) {
	o := osObject(f)
	info, err := o.fh.Stat()
	if err != nil {
		stateOf(o.vfs).record(err)
		return 0, core.IOErrFstat
	}
	return info.Size(), core.OK
}

func osLock(f *File, level core.LockLevel) core.ResultCode {
	o := osObject(f)
	if level <= o.lock {
		return core.OK
	}
	if err := sys.LockFile(o.fh.Fd(), level); err != nil {
		if errors.Is(err, sys.ErrLockBusy) {
			return core.Busy
		}
		stateOf(o.vfs).record(err)
		return core.IOErrLock
	}
	o.lock = level
	return core.OK
}

func osUnlock(f *File, level core.LockLevel) core.ResultCode {
	o := osObject(f)
	if level >= o.lock {
		return core.OK
	}
	if err := sys.LockFile(o.fh.Fd(), level); err != nil {
		stateOf(o.vfs).record(err)
		return core.IOErrUnlock
	}
	o.lock = level
	return core.OK
}

// osCheckReservedLock reports this handle's own reservation only.
func osCheckReservedLock(f *File) (bool, core.ResultCode) {
	o := osObject(f)
	return o.lock >= core.LockReserved, core.OK
}

func osFileControl(f *File, op core.FcntlOp, arg any) core.ResultCode {
	o := osObject(f)
	switch op {
	case core.FcntlVFSName:
		if out, ok := arg.(*string); ok {
			*out = o.vfs.Name
			return core.OK
		}
		return core.Misuse
	case core.FcntlLockState:
		if out, ok := arg.(*core.LockLevel); ok {
			*out = o.lock
			return core.OK
		}
		return core.Misuse
	}
	return core.NotFound
}
