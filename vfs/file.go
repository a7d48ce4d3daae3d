package vfs

import "github.com/INLOpen/nexusvfs/core"

// File is the engine-owned file slab. The engine allocates it with the
// footprint declared by the filesystem (VFS.SzOsFile) and hands it to Open,
// which constructs its private state in the object slot and installs a method
// table. A nil Methods means the file has no methods and must not be closed.
type File struct {
	Methods *IOMethods

	size int
	obj  any
}

// NewFile allocates a slab with the given declared footprint.
func NewFile(size int) *File {
	return &File{size: size}
}

// Size returns the footprint the slab was allocated with.
func (f *File) Size() int {
	return f.size
}

// Construct places obj into the slab. The slot must be empty; constructing over
// a live object is a programming error.
func (f *File) Construct(obj any) {
	if f.obj != nil {
		panic("vfs: Construct on an occupied file slab")
	}
	f.obj = obj
}

// Object returns the object constructed in the slab, or nil.
func (f *File) Object() any {
	return f.obj
}

// Destroy clears the object slot. It reports whether an object was present.
func (f *File) Destroy() bool {
	had := f.obj != nil
	f.obj = nil
	return had
}

// The helpers below invoke the installed table the way the engine does. They
// return Misuse when the file has no methods or the slot is not populated.

func (f *File) Close() core.ResultCode {
	if f.Methods == nil || f.Methods.Close == nil {
		return core.Misuse
	}
	return f.Methods.Close(f)
}

func (f *File) ReadAt(p []byte, off int64) core.ResultCode {
	if f.Methods == nil || f.Methods.Read == nil {
		return core.Misuse
	}
	return f.Methods.Read(f, p, off)
}

func (f *File) WriteAt(p []byte, off int64) core.ResultCode {
	if f.Methods == nil || f.Methods.Write == nil {
		return core.Misuse
	}
	return f.Methods.Write(f, p, off)
}

func (f *File) Truncate(size int64) core.ResultCode {
	if f.Methods == nil || f.Methods.Truncate == nil {
		return core.Misuse
	}
	return f.Methods.Truncate(f, size)
}

func (f *File) Sync(flags core.SyncFlag) core.ResultCode {
	if f.Methods == nil || f.Methods.Sync == nil {
		return core.Misuse
	}
	return f.Methods.Sync(f, flags)
}

func (f *File) FileSize() (int64, core.ResultCode) {
	if f.Methods == nil || f.Methods.FileSize == nil {
		return 0, core.Misuse
	}
	return f.Methods.FileSize(f)
}

func (f *File) FileControl(op core.FcntlOp, arg any) core.ResultCode {
	if f.Methods == nil || f.Methods.FileControl == nil {
		return core.Misuse
	}
	return f.Methods.FileControl(f, op, arg)
}
