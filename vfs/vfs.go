package vfs

import "github.com/INLOpen/nexusvfs/core"

// MaxVFSVersion is the highest filesystem-table tier defined by the contract.
const MaxVFSVersion = 3

// VFS is the filesystem dispatch table. Every slot receives the table itself so
// an implementation can recover its state from AppData or an embedding struct.
// Tier 2 adds CurrentTimeInt64; tier 3 adds the system-call slots.
type VFS struct {
	Version     int
	SzOsFile    int
	MaxPathname int
	Name        string
	AppData     any

	// v1
	Open         func(v *VFS, name string, f *File, flags core.OpenFlag) (core.OpenFlag, core.ResultCode)
	Delete       func(v *VFS, name string, syncDir bool) core.ResultCode
	Access       func(v *VFS, name string, flags core.AccessFlag) (bool, core.ResultCode)
	FullPathname func(v *VFS, name string) (string, core.ResultCode)
	DlOpen       func(v *VFS, filename string) uintptr
	DlError      func(v *VFS) string
	DlSym        func(v *VFS, handle uintptr, symbol string) uintptr
	DlClose      func(v *VFS, handle uintptr)
	Randomness   func(v *VFS, p []byte) int
	Sleep        func(v *VFS, microseconds int) int
	CurrentTime  func(v *VFS) (float64, core.ResultCode)
	GetLastError func(v *VFS) (int, string)

	// v2
	CurrentTimeInt64 func(v *VFS) (int64, core.ResultCode)

	// v3
	SetSystemCall  func(v *VFS, name string, fn uintptr) core.ResultCode
	GetSystemCall  func(v *VFS, name string) uintptr
	NextSystemCall func(v *VFS, name string) string
}

// Supports reports whether slots of tier n may be invoked on v.
func (v *VFS) Supports(n int) bool {
	return v != nil && n >= 1 && v.Version >= n
}

// OpenFile allocates a slab of the declared footprint and opens name on it,
// the way the engine does. On failure the slab has no methods.
func OpenFile(v *VFS, name string, flags core.OpenFlag) (*File, core.OpenFlag, core.ResultCode) {
	if v == nil || v.Open == nil {
		return nil, 0, core.Misuse
	}
	f := NewFile(v.SzOsFile)
	out, rc := v.Open(v, name, f, flags)
	return f, out, rc
}
