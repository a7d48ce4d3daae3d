package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	d, err := NewDirStore(root)
	require.NoError(t, err)

	name := "/pagevfs/main.db"
	_, err = d.Put(name, "0", []byte("page zero"))
	require.NoError(t, err)
	_, err = d.Put(name, "file_size", []byte("9"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, EncodeDir(name), "0"))
	require.NoError(t, err, "blob is stored as its own file")

	assert.True(t, d.Exists(name, "0"))
	assert.False(t, d.Exists(name, "1"))

	buf := make([]byte, 4)
	n, err := d.ReadAt(name, "0", buf, 5)
	require.NoError(t, err)
	assert.Equal(t, "zero", string(buf[:n]))

	n, err = d.ReadAt(name, "0", buf, 7)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	_, err = d.ReadAt(name, "7", buf, 0)
	assert.ErrorIs(t, err, ErrNotExist)

	data, err := d.Load(name, "file_size")
	require.NoError(t, err)
	assert.Equal(t, "9", string(data))

	keys, err := d.Keys(name)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0", "file_size"}, keys)

	require.NoError(t, d.Remove(name, "0"))
	assert.ErrorIs(t, d.Remove(name, "0"), ErrNotExist)

	require.NoError(t, d.RemoveDir(name))
	keys, err = d.Keys(name)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// The directory is recreated after removal.
	_, err = d.Put(name, "0", []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, []string{name}, d.Dirs())
}
