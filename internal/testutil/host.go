package testutil

import (
	"testing"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/vfs"
	"github.com/stretchr/testify/require"
)

// Flags the engine passes for the common file kinds.
const (
	MainDBFlags      = core.OpenMainDB | core.OpenReadWrite | core.OpenCreate
	MainJournalFlags = core.OpenMainJournal | core.OpenReadWrite | core.OpenCreate
)

// Open opens name on v the way the engine does and fails the test unless the
// open succeeds with a complete method table.
func Open(t testing.TB, v *vfs.VFS, name string, flags core.OpenFlag) *vfs.File {
	t.Helper()
	f, _, rc := vfs.OpenFile(v, name, flags)
	require.Equal(t, core.OK, rc, "open %q", name)
	require.NotNil(t, f.Methods, "open %q installed no methods", name)
	require.True(t, f.Methods.Complete(), "open %q installed an incomplete table", name)
	return f
}

func Close(t testing.TB, f *vfs.File) {
	t.Helper()
	require.Equal(t, core.OK, f.Close())
	require.Nil(t, f.Methods)
}

func Write(t testing.TB, f *vfs.File, p []byte, off int64) {
	t.Helper()
	require.Equal(t, core.OK, f.WriteAt(p, off))
}

// Read reads n bytes at off and fails the test on any non-OK code.
func Read(t testing.TB, f *vfs.File, n int, off int64) []byte {
	t.Helper()
	p := make([]byte, n)
	require.Equal(t, core.OK, f.ReadAt(p, off))
	return p
}

func Sync(t testing.TB, f *vfs.File) {
	t.Helper()
	require.Equal(t, core.OK, f.Sync(core.SyncNormal))
}

func Size(t testing.TB, f *vfs.File) int64 {
	t.Helper()
	n, rc := f.FileSize()
	require.Equal(t, core.OK, rc)
	return n
}

// Page returns a page of length n filled with b.
func Page(n int, b byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = b
	}
	return p
}
