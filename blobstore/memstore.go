package blobstore

import (
	"io"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/tidwall/btree"
)

type blob struct {
	dir  string
	key  string
	data []byte
}

func blobLess(a, b blob) bool {
	if a.dir != b.dir {
		return a.dir < b.dir
	}
	return a.key < b.key
}

// changeSet tracks what changed in one directory since the last snapshot.
// Page keys live in bitmaps; other keys in plain sets. A key is either put or
// removed, never both.
type changeSet struct {
	putPages   *roaring64.Bitmap
	delPages   *roaring64.Bitmap
	putMeta    map[string]struct{}
	delMeta    map[string]struct{}
	dirRemoved bool
}

func newChangeSet() *changeSet {
	return &changeSet{
		putPages: roaring64.New(),
		delPages: roaring64.New(),
		putMeta:  make(map[string]struct{}),
		delMeta:  make(map[string]struct{}),
	}
}

func (c *changeSet) markPut(key string) {
	if n, ok := ParsePageKey(key); ok {
		c.delPages.Remove(n)
		c.putPages.Add(n)
		return
	}
	delete(c.delMeta, key)
	c.putMeta[key] = struct{}{}
}

func (c *changeSet) markDel(key string) {
	if n, ok := ParsePageKey(key); ok {
		c.putPages.Remove(n)
		c.delPages.Add(n)
		return
	}
	delete(c.putMeta, key)
	c.delMeta[key] = struct{}{}
}

func (c *changeSet) len() int {
	return int(c.putPages.GetCardinality()+c.delPages.GetCardinality()) + len(c.putMeta) + len(c.delMeta)
}

// Change is one entry of a MemStore snapshot. Removed entries carry no data.
// An entry with an empty Key and Removed set stands for the whole directory.
type Change struct {
	Dir     string
	Key     string
	Data    []byte
	Removed bool
}

// MemStore is an ordered in-memory blob image that remembers which blobs
// changed since the last call to Changes. It is safe for concurrent use.
type MemStore struct {
	mu    sync.RWMutex
	tree  *btree.BTreeG[blob]
	dirty map[string]*changeSet
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		tree:  btree.NewBTreeG(blobLess),
		dirty: make(map[string]*changeSet),
	}
}

func (m *MemStore) changes(dir string) *changeSet {
	c, ok := m.dirty[dir]
	if !ok {
		c = newChangeSet()
		m.dirty[dir] = c
	}
	return c
}

func (m *MemStore) Put(dir, key string, data []byte) (int, error) {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Set(blob{dir: dir, key: key, data: cp})
	m.changes(dir).markPut(key)
	return len(cp), nil
}

func (m *MemStore) get(dir, key string) ([]byte, bool) {
	b, ok := m.tree.Get(blob{dir: dir, key: key})
	return b.data, ok
}

func (m *MemStore) ReadAt(dir, key string, p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.get(dir, key)
	if !ok {
		return 0, ErrNotExist
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemStore) Load(dir, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.get(dir, key)
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemStore) Exists(dir, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.get(dir, key)
	return ok
}

func (m *MemStore) Remove(dir, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tree.Delete(blob{dir: dir, key: key}); !ok {
		return ErrNotExist
	}
	m.changes(dir).markDel(key)
	return nil
}

// RemoveDir drops every blob under dir.
func (m *MemStore) RemoveDir(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.changes(dir)
	for _, key := range m.keysLocked(dir) {
		m.tree.Delete(blob{dir: dir, key: key})
		c.markDel(key)
	}
	c.dirRemoved = true
	return nil
}

func (m *MemStore) Keys(dir string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keysLocked(dir), nil
}

func (m *MemStore) keysLocked(dir string) []string {
	var keys []string
	m.tree.Ascend(blob{dir: dir}, func(b blob) bool {
		if b.dir != dir {
			return false
		}
		keys = append(keys, b.key)
		return true
	})
	return keys
}

// Dirs lists the directories holding at least one blob.
func (m *MemStore) Dirs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var dirs []string
	m.tree.Scan(func(b blob) bool {
		if len(dirs) == 0 || dirs[len(dirs)-1] != b.dir {
			dirs = append(dirs, b.dir)
		}
		return true
	})
	return dirs
}

// Len returns the number of blobs held.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Pending returns the number of blob changes not yet taken by Changes.
func (m *MemStore) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.dirty {
		n += c.len()
		if c.dirRemoved {
			n++
		}
	}
	return n
}

// Changes snapshots every change since the previous call and clears the dirty
// set. Entries are ordered by directory and key; a directory removal precedes
// the blobs written to the directory afterwards.
func (m *MemStore) Changes() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	dirs := make([]string, 0, len(m.dirty))
	for dir := range m.dirty {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var out []Change
	for _, dir := range dirs {
		c := m.dirty[dir]
		if c.dirRemoved {
			out = append(out, Change{Dir: dir, Removed: true})
		}
		var keys []string
		for _, n := range c.delPages.ToArray() {
			keys = append(keys, PageKey(n))
		}
		for key := range c.delMeta {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			// Removals covered by the directory removal need no entry.
			if !c.dirRemoved {
				out = append(out, Change{Dir: dir, Key: key, Removed: true})
			}
		}

		keys = keys[:0]
		for _, n := range c.putPages.ToArray() {
			keys = append(keys, PageKey(n))
		}
		for key := range c.putMeta {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			data, _ := m.get(dir, key)
			out = append(out, Change{Dir: dir, Key: key, Data: data})
		}
	}
	m.dirty = make(map[string]*changeSet)
	return out
}

// Requeue marks the keys of a snapshot dirty again, so a failed persist is
// retried by the next snapshot. Keys are re-marked against the current image:
// a key rewritten or removed since the snapshot keeps its newer state.
func (m *MemStore) Requeue(changes []Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range changes {
		c := m.changes(ch.Dir)
		if ch.Key == "" {
			if ch.Removed {
				c.dirRemoved = true
			}
			continue
		}
		if _, ok := m.get(ch.Dir, ch.Key); ok {
			c.markPut(ch.Key)
		} else {
			c.markDel(ch.Key)
		}
	}
}

// Apply loads entries into the image without marking them dirty.
func (m *MemStore) Apply(changes []Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range changes {
		switch {
		case ch.Key == "" && ch.Removed:
			for _, key := range m.keysLocked(ch.Dir) {
				m.tree.Delete(blob{dir: ch.Dir, key: key})
			}
		case ch.Removed:
			m.tree.Delete(blob{dir: ch.Dir, key: ch.Key})
		default:
			cp := make([]byte, len(ch.Data))
			copy(cp, ch.Data)
			m.tree.Set(blob{dir: ch.Dir, key: ch.Key, data: cp})
		}
	}
}
