package vfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSVFS_TablesComplete(t *testing.T) {
	v := NewOSVFS()
	assert.Equal(t, 3, v.Version)
	assert.True(t, osMethods.Complete())
	assert.NotNil(t, v.CurrentTimeInt64)
	assert.NotNil(t, v.NextSystemCall)
}

func TestOSVFS_OpenReadWriteClose(t *testing.T) {
	v := NewOSVFS()
	name := filepath.Join(t.TempDir(), "main.db")

	f, out, rc := OpenFile(v, name, core.OpenReadWrite|core.OpenCreate|core.OpenMainDB)
	require.Equal(t, core.OK, rc)
	assert.True(t, out.Has(core.OpenReadWrite))
	require.NotNil(t, f.Methods)

	require.Equal(t, core.OK, f.WriteAt([]byte("hello world"), 0))
	size, rc := f.FileSize()
	require.Equal(t, core.OK, rc)
	assert.EqualValues(t, 11, size)

	buf := make([]byte, 5)
	require.Equal(t, core.OK, f.ReadAt(buf, 6))
	assert.Equal(t, "world", string(buf))

	// Short reads zero the tail.
	buf = []byte("xxxxxxxx")
	assert.Equal(t, core.IOErrShortRead, f.ReadAt(buf, 8))
	assert.Equal(t, []byte{'r', 'l', 'd', 0, 0, 0, 0, 0}, buf)

	require.Equal(t, core.OK, f.Truncate(5))
	size, _ = f.FileSize()
	assert.EqualValues(t, 5, size)
	require.Equal(t, core.OK, f.Sync(core.SyncNormal))

	var vfsName string
	require.Equal(t, core.OK, f.FileControl(core.FcntlVFSName, &vfsName))
	assert.Equal(t, OSName, vfsName)
	assert.Equal(t, core.NotFound, f.FileControl(core.FcntlPragma, nil))

	require.Equal(t, core.OK, f.Close())
	assert.Nil(t, f.Methods)
	assert.Nil(t, f.Object())
}

func TestOSVFS_OpenFailures(t *testing.T) {
	v := NewOSVFS()
	dir := t.TempDir()

	_, _, rc := OpenFile(v, filepath.Join(dir, "missing.db"), core.OpenReadWrite)
	assert.Equal(t, core.CantOpen, rc)

	small := NewFile(0)
	_, rc = v.Open(v, filepath.Join(dir, "x.db"), small, core.OpenReadWrite|core.OpenCreate)
	assert.Equal(t, core.Misuse, rc)
	assert.Nil(t, small.Methods)

	code, msg := v.GetLastError(v)
	assert.NotZero(t, code)
	assert.NotEmpty(t, msg)
}

func TestOSVFS_DeleteOnCloseAndTemp(t *testing.T) {
	v := NewOSVFS()
	name := filepath.Join(t.TempDir(), "temp.db")
	f, _, rc := OpenFile(v, name, core.OpenReadWrite|core.OpenCreate|core.OpenDeleteOnClose)
	require.Equal(t, core.OK, rc)
	require.Equal(t, core.OK, f.Close())
	_, err := os.Stat(name)
	assert.True(t, os.IsNotExist(err))

	anon, _, rc := OpenFile(v, "", core.OpenTempDB)
	require.Equal(t, core.OK, rc)
	require.Equal(t, core.OK, anon.WriteAt([]byte("tmp"), 0))
	path := anon.Object().(*osFile).path
	require.Equal(t, core.OK, anon.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOSVFS_DeleteAndAccess(t *testing.T) {
	v := NewOSVFS()
	dir := t.TempDir()
	name := filepath.Join(dir, "a.db")
	require.NoError(t, os.WriteFile(name, []byte("x"), 0644))

	ok, rc := v.Access(v, name, core.AccessExists)
	require.Equal(t, core.OK, rc)
	assert.True(t, ok)
	ok, _ = v.Access(v, name, core.AccessReadWrite)
	assert.True(t, ok)

	assert.Equal(t, core.OK, v.Delete(v, name, true))
	ok, rc = v.Access(v, name, core.AccessExists)
	require.Equal(t, core.OK, rc)
	assert.False(t, ok)
	assert.Equal(t, core.IOErrDeleteNoEnt, v.Delete(v, name, false))
}

func TestOSVFS_Locks(t *testing.T) {
	v := NewOSVFS()
	name := filepath.Join(t.TempDir(), "lock.db")
	a, _, rc := OpenFile(v, name, core.OpenReadWrite|core.OpenCreate)
	require.Equal(t, core.OK, rc)
	defer a.Close()
	b, _, rc := OpenFile(v, name, core.OpenReadWrite)
	require.Equal(t, core.OK, rc)
	defer b.Close()

	require.Equal(t, core.OK, a.Methods.Lock(a, core.LockShared))
	require.Equal(t, core.OK, b.Methods.Lock(b, core.LockShared))
	reserved, _ := a.Methods.CheckReservedLock(a)
	assert.False(t, reserved)

	require.Equal(t, core.OK, b.Methods.Unlock(b, core.LockNone))
	require.Equal(t, core.OK, a.Methods.Lock(a, core.LockReserved))
	reserved, _ = a.Methods.CheckReservedLock(a)
	assert.True(t, reserved)
	assert.Equal(t, core.Busy, b.Methods.Lock(b, core.LockShared))

	var level core.LockLevel
	require.Equal(t, core.OK, a.FileControl(core.FcntlLockState, &level))
	assert.Equal(t, core.LockReserved, level)
	require.Equal(t, core.OK, a.Methods.Unlock(a, core.LockNone))
	assert.Equal(t, core.OK, b.Methods.Lock(b, core.LockShared))
}

func TestOSVFS_PathsTimeRandomness(t *testing.T) {
	v := NewOSVFS()

	full, rc := v.FullPathname(v, "rel.db")
	require.Equal(t, core.OK, rc)
	assert.True(t, filepath.IsAbs(full))

	_, rc = v.FullPathname(v, "/"+strings.Repeat("a", osMaxPathname+1))
	assert.Equal(t, core.CantOpenFullPath, rc)

	ms, rc := v.CurrentTimeInt64(v)
	require.Equal(t, core.OK, rc)
	assert.InDelta(t, float64(julianUnixEpochMs+time.Now().UnixMilli()), float64(ms), 5000)
	day, _ := v.CurrentTime(v)
	assert.Greater(t, day, 2440587.5)

	p := make([]byte, 32)
	assert.Equal(t, 32, v.Randomness(v, p))
	assert.Equal(t, 10, v.Sleep(v, 10))
	assert.Equal(t, core.NotFound, v.SetSystemCall(v, "open", 0))
	assert.Zero(t, v.DlOpen(v, "lib"))
}
