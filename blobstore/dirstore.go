package blobstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/INLOpen/nexusvfs/sys"
	"github.com/puzpuzpuz/xsync/v3"
)

const tmpSuffix = ".tmp"

// DirStore keeps every blob as its own file under root/<encoded dir>/<key>.
// Blobs are replaced atomically.
type DirStore struct {
	root string
	// dirs caches directories known to exist.
	dirs *xsync.MapOf[string, struct{}]
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := sys.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}
	return &DirStore{
		root: root,
		dirs: xsync.NewMapOf[string, struct{}](),
	}, nil
}

func (d *DirStore) Root() string {
	return d.root
}

func (d *DirStore) dirPath(dir string) string {
	return filepath.Join(d.root, EncodeDir(dir))
}

func (d *DirStore) blobPath(dir, key string) string {
	return filepath.Join(d.dirPath(dir), key)
}

func (d *DirStore) ensureDir(dir string) error {
	if _, ok := d.dirs.Load(dir); ok {
		return nil
	}
	if err := sys.MkdirAll(d.dirPath(dir), 0755); err != nil {
		return err
	}
	d.dirs.Store(dir, struct{}{})
	return nil
}

func (d *DirStore) Put(dir, key string, data []byte) (int, error) {
	if err := d.ensureDir(dir); err != nil {
		return 0, fmt.Errorf("failed to create blob directory for %s: %w", dir, err)
	}
	if err := sys.WriteFileAtomic(d.blobPath(dir, key), data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write blob %s/%s: %w", dir, key, err)
	}
	return len(data), nil
}

func (d *DirStore) ReadAt(dir, key string, p []byte, off int64) (int, error) {
	f, err := sys.Open(d.blobPath(dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotExist
		}
		return 0, err
	}
	defer f.Close()
	return f.ReadAt(p, off)
}

func (d *DirStore) Load(dir, key string) ([]byte, error) {
	f, err := sys.Open(d.blobPath(dir, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (d *DirStore) Exists(dir, key string) bool {
	info, err := os.Stat(d.blobPath(dir, key))
	return err == nil && info.Mode().IsRegular()
}

func (d *DirStore) Remove(dir, key string) error {
	err := sys.Remove(d.blobPath(dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotExist
	}
	return err
}

func (d *DirStore) RemoveDir(dir string) error {
	d.dirs.Delete(dir)
	if err := os.RemoveAll(d.dirPath(dir)); err != nil {
		return fmt.Errorf("failed to remove blob directory for %s: %w", dir, err)
	}
	return nil
}

func (d *DirStore) Keys(dir string) ([]string, error) {
	entries, err := os.ReadDir(d.dirPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), tmpSuffix) {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

// Dirs lists the directories holding at least one blob. Entries whose names do
// not decode are skipped.
func (d *DirStore) Dirs() []string {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir, err := DecodeDir(e.Name())
		if err != nil {
			continue
		}
		if keys, err := d.Keys(dir); err == nil && len(keys) > 0 {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
