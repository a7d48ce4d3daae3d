package vfs

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/sys"
)

// OSName is the registered name of the built-in OS filesystem.
const OSName = "unix"

const (
	osMaxPathname = 512
	osSectorSize  = 4096

	// Milliseconds between the Julian day epoch and the Unix epoch.
	julianUnixEpochMs int64 = 24405875 * 8640000
	msPerDay                = 86400000.0
)

func init() {
	Register(NewOSVFS(), true)
}

type osState struct {
	mu      sync.Mutex
	lastErr error
}

func (s *osState) record(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// NewOSVFS builds a fresh OS filesystem table. The registry holds the one
// created at init; tests may build private ones.
func NewOSVFS() *VFS {
	return &VFS{
		Version:          3,
		SzOsFile:         int(unsafe.Sizeof(osFile{})),
		MaxPathname:      osMaxPathname,
		Name:             OSName,
		AppData:          &osState{},
		Open:             osOpen,
		Delete:           osDelete,
		Access:           osAccess,
		FullPathname:     osFullPathname,
		DlOpen:           func(*VFS, string) uintptr { return 0 },
		DlError:          func(*VFS) string { return "dynamic loading not supported" },
		DlSym:            func(*VFS, uintptr, string) uintptr { return 0 },
		DlClose:          func(*VFS, uintptr) {},
		Randomness:       osRandomness,
		Sleep:            osSleep,
		CurrentTime:      osCurrentTime,
		GetLastError:     osGetLastError,
		CurrentTimeInt64: osCurrentTimeInt64,
		SetSystemCall:    func(*VFS, string, uintptr) core.ResultCode { return core.NotFound },
		GetSystemCall:    func(*VFS, string) uintptr { return 0 },
		NextSystemCall:   func(*VFS, string) string { return "" },
	}
}

func stateOf(v *VFS) *osState {
	if s, ok := v.AppData.(*osState); ok {
		return s
	}
	return &osState{}
}

func osOpen(v *VFS, name string, f *File, flags core.OpenFlag) (core.OpenFlag, core.ResultCode) {
	if f.Size() < v.SzOsFile {
		return 0, core.Misuse
	}
	deleteOnClose := flags.Has(core.OpenDeleteOnClose)
	if name == "" {
		tmp, err := os.CreateTemp("", "nexusvfs-*")
		if err != nil {
			stateOf(v).record(err)
			return 0, core.CantOpen
		}
		name = tmp.Name()
		tmp.Close()
		deleteOnClose = true
		flags |= core.OpenReadWrite | core.OpenCreate
	}

	mode := os.O_RDONLY
	if flags.Has(core.OpenReadWrite) {
		mode = os.O_RDWR
	}
	if flags.Has(core.OpenCreate) {
		mode |= os.O_CREATE
	}
	if flags.Has(core.OpenExclusive) {
		mode |= os.O_EXCL
	}

	out := flags
	fh, err := sys.OpenFile(name, mode, 0644)
	if err != nil && errors.Is(err, os.ErrPermission) && flags.Has(core.OpenReadWrite) {
		// Fall back to read-only, as the engine expects for unwritable files.
		fh, err = sys.OpenFile(name, os.O_RDONLY, 0)
		out = (flags &^ (core.OpenReadWrite | core.OpenCreate)) | core.OpenReadOnly
	}
	if err != nil {
		stateOf(v).record(err)
		return 0, core.CantOpen
	}

	f.Construct(&osFile{
		fh:            fh,
		path:          name,
		vfs:           v,
		deleteOnClose: deleteOnClose,
	})
	f.Methods = osMethods
	return out, core.OK
}

func osDelete(v *VFS, name string, syncDir bool) core.ResultCode {
	if err := sys.Remove(name); err != nil {
		stateOf(v).record(err)
		if errors.Is(err, os.ErrNotExist) {
			return core.IOErrDeleteNoEnt
		}
		return core.IOErrDelete
	}
	if syncDir {
		d, err := sys.Open(filepath.Dir(name))
		if err != nil {
			stateOf(v).record(err)
			return core.IOErrDirFsync
		}
		defer d.Close()
		if err := d.Sync(); err != nil {
			stateOf(v).record(err)
			return core.IOErrDirFsync
		}
	}
	return core.OK
}

func osAccess(v *VFS, name string, flags core.AccessFlag) (bool, core.ResultCode) {
	info, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, core.OK
		}
		stateOf(v).record(err)
		return false, core.IOErrAccess
	}
	perm := info.Mode().Perm()
	switch flags {
	case core.AccessExists:
		return true, core.OK
	case core.AccessRead:
		return perm&0o400 != 0, core.OK
	case core.AccessReadWrite:
		return perm&0o600 == 0o600, core.OK
	}
	return false, core.NotFound
}

func osFullPathname(v *VFS, name string) (string, core.ResultCode) {
	abs, err := filepath.Abs(name)
	if err != nil {
		stateOf(v).record(err)
		return "", core.CantOpenFullPath
	}
	if len(abs) > v.MaxPathname {
		return "", core.CantOpenFullPath
	}
	return abs, core.OK
}

func osRandomness(v *VFS, p []byte) int {
	n, err := rand.Read(p)
	if err != nil {
		stateOf(v).record(err)
	}
	return n
}

func osSleep(v *VFS, microseconds int) int {
	time.Sleep(time.Duration(microseconds) * time.Microsecond)
	return microseconds
}

func osCurrentTimeInt64(v *VFS) (int64, core.ResultCode) {
	return julianUnixEpochMs + time.Now().UnixMilli(), core.OK
}

func osCurrentTime(v *VFS) (float64, core.ResultCode) {
	ms, rc := osCurrentTimeInt64(v)
	return float64(ms) / msPerDay, rc
}

func osGetLastError(v *VFS) (int, string) {
	s := stateOf(v)
	s.mu.Lock()
	err := s.lastErr
	s.mu.Unlock()
	if err == nil {
		return 0, ""
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno), err.Error()
	}
	return int(core.IOErr), fmt.Sprint(err)
}
