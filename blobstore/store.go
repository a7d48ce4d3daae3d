// Package blobstore holds the page and metadata blobs the page store maps
// engine files onto. Blobs are addressed by a directory (the file name) and a
// key (a decimal page index or a metadata name such as "file_size").
package blobstore

import (
	"errors"
	"net/url"
	"strconv"
)

var ErrNotExist = errors.New("blobstore: blob does not exist")

// Lister is implemented by stores that can enumerate their directories.
type Lister interface {
	Dirs() []string
}

// Store is a directory-of-blobs substrate.
type Store interface {
	// Put replaces the blob at (dir, key) and returns the number of bytes stored.
	Put(dir, key string, data []byte) (int, error)
	// ReadAt copies bytes of the blob starting at off into p. It returns
	// io.EOF when fewer than len(p) bytes were available and ErrNotExist when
	// the blob is missing.
	ReadAt(dir, key string, p []byte, off int64) (int, error)
	Load(dir, key string) ([]byte, error)
	Exists(dir, key string) bool
	Remove(dir, key string) error
	RemoveDir(dir string) error
	Keys(dir string) ([]string, error)
}

// PageKey returns the key of page index n.
func PageKey(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// ParsePageKey reports whether key is the canonical decimal form of a page index.
func ParsePageKey(key string) (uint64, bool) {
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}

// EncodeDir maps a file name to a single path element.
func EncodeDir(dir string) string {
	return url.QueryEscape(dir)
}

// DecodeDir reverses EncodeDir.
func DecodeDir(name string) (string, error) {
	return url.QueryUnescape(name)
}
