//go:build windows

package sys

import (
	"errors"
	"time"

	"github.com/INLOpen/nexusvfs/core"
)

var ErrLockBusy = errors.New("sys: lock held by another file")

// LockFile is a no-op where flock is unavailable.
func LockFile(fd uintptr, level core.LockLevel) error {
	return nil
}

func AcquireOSFileLock(lockPath string, timeout time.Duration) (func() error, error) {
	return nil, errors.New("OS file locking not supported on this platform")
}
