package sys

import (
	"os"
	"time"
)

// osFile implements File with the os package directly.
type osFile struct{}

type osSafeRemoveOptions struct {
	Retry         int
	IntervalRetry time.Duration
}

func (o *osSafeRemoveOptions) GetRetry() int {
	return o.Retry
}

func (o *osSafeRemoveOptions) GetIntervalRetry() time.Duration {
	return o.IntervalRetry
}

// NewFile returns the os-backed File.
func NewFile() File {
	return &osFile{}
}

func (o *osFile) Create(name string) (*os.File, error) {
	return os.Create(name)
}

func (o *osFile) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (o *osFile) Open(name string) (*os.File, error) {
	return os.Open(name)
}

// SafeRemove retries remove with exponential backoff. A missing file is
// reported as os.ErrNotExist so callers can tell "nothing to delete" apart.
func (o *osFile) SafeRemove(name string) error {
	return o.SafeRemoveWithOption(name, &osSafeRemoveOptions{
		Retry:         3,
		IntervalRetry: 10 * time.Millisecond,
	})
}

func (o *osFile) SafeRemoveWithOption(name string, opts SafeRemoveOptions) error {
	var err error
	retry := opts.GetRetry()
	if retry < 1 || retry > 5 {
		retry = 5
	}

	for i := 0; i < retry; i++ {
		err = os.Remove(name)
		if err == nil || os.IsNotExist(err) {
			return err
		}
		time.Sleep(opts.GetIntervalRetry() * time.Duration(1<<i))
	}
	return err
}

func (o *osFile) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (o *osFile) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (o *osFile) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}
