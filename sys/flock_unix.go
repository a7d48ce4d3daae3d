//go:build !windows

package sys

import (
	"errors"
	"os"
	"time"

	"github.com/INLOpen/nexusvfs/core"
	"golang.org/x/sys/unix"
)

// ErrLockBusy reports that another descriptor holds a conflicting lock.
var ErrLockBusy = errors.New("sys: lock held by another file")

// LockFile moves the advisory lock held on fd to level. SHARED takes a shared
// flock; RESERVED and above take an exclusive one; NONE releases it.
// Locks never block.
func LockFile(fd uintptr, level core.LockLevel) error {
	how := unix.LOCK_UN
	switch {
	case level == core.LockNone:
	case level == core.LockShared:
		how = unix.LOCK_SH | unix.LOCK_NB
	default:
		how = unix.LOCK_EX | unix.LOCK_NB
	}
	err := unix.Flock(int(fd), how)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return ErrLockBusy
	}
	return err
}

// AcquireOSFileLock attempts to acquire an advisory exclusive lock on the
// provided lockPath using POSIX flock. It opens (or creates) the file and
// acquires the lock on the file descriptor. If successful it returns a
// release function which will unlock, close the file and remove the file.
// The function will retry until the provided timeout elapses.
func AcquireOSFileLock(lockPath string, timeout time.Duration) (func() error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	fd := int(f.Fd())
	deadline := time.Now().Add(timeout)
	for {
		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			rel := func() error {
				_ = unix.Flock(fd, unix.LOCK_UN)
				_ = f.Close()
				// attempt to remove the lock file; ignore errors
				_ = os.Remove(lockPath)
				return nil
			}
			return rel, nil
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, err
		}
		time.Sleep(25 * time.Millisecond)
	}
}
