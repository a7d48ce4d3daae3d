package shim

import (
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/INLOpen/nexusvfs/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passFile overrides nothing.
type passFile struct {
	BaseFile
}

type passVFS struct {
	BaseVFS[passFile, *passFile]
}

// countingFile records lifecycle events into a shared tracker.
type countingFile struct {
	BaseFile
	tracker *tracker
	version int
	closeRC core.ResultCode
	data    []byte
}

type tracker struct {
	destroyed int
	closed    int
}

func (f *countingFile) Version() int {
	return f.version
}

func (f *countingFile) Close() core.ResultCode {
	f.tracker.closed++
	return f.closeRC
}

func (f *countingFile) Write(p []byte, off int64) core.ResultCode {
	if need := int(off) + len(p); need > len(f.data) {
		f.data = append(f.data, make([]byte, need-len(f.data))...)
	}
	copy(f.data[off:], p)
	return core.OK
}

func (f *countingFile) FileSize() (int64, core.ResultCode) {
	return int64(len(f.data)), core.OK
}

func (f *countingFile) Destroy() {
	f.tracker.destroyed++
}

type countingVFS struct {
	BaseVFS[countingFile, *countingFile]
	tracker *tracker
	openRC  core.ResultCode
	version int
	closeRC core.ResultCode
}

func (v *countingVFS) Open(name string, h *FileHandle[countingFile, *countingFile], flags core.OpenFlag) (core.OpenFlag, core.ResultCode) {
	h.Impl.tracker = v.tracker
	h.Impl.version = v.version
	h.Impl.closeRC = v.closeRC
	return flags, v.openRC
}

func newCounting(t *testing.T, v *countingVFS) *Adapter[countingFile, *countingFile] {
	t.Helper()
	if v.tracker == nil {
		v.tracker = &tracker{}
	}
	a, err := New[countingFile]("counting-"+t.Name(), v, nil)
	require.NoError(t, err)
	return a
}

func TestNew_Validation(t *testing.T) {
	_, err := New[passFile]("", &passVFS{}, nil)
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = New[passFile]("x", nil, nil)
	assert.ErrorIs(t, err, ErrNilImpl)
}

func TestNew_TableShape(t *testing.T) {
	base := vfs.NewOSVFS()
	a, err := New[passFile]("pass", &passVFS{}, base)
	require.NoError(t, err)

	assert.Equal(t, "pass", a.Name)
	assert.Equal(t, base.Version, a.Version)
	assert.Equal(t, base.MaxPathname, a.MaxPathname)
	assert.Equal(t, a.Footprint()+base.SzOsFile, a.SzOsFile)
	assert.Same(t, base, a.Base())
	assert.Same(t, base, a.Impl.(*passVFS).Original)

	def, err := New[passFile]("pass-default", &passVFS{}, nil)
	require.NoError(t, err)
	assert.Same(t, vfs.Default(), def.Base())
}

func TestAdapter_PassthroughToOriginal(t *testing.T) {
	a, err := New[passFile]("pass", &passVFS{}, vfs.NewOSVFS())
	require.NoError(t, err)
	v := a.Table()
	name := filepath.Join(t.TempDir(), "main.db")

	f, _, rc := vfs.OpenFile(v, name, core.OpenReadWrite|core.OpenCreate|core.OpenMainDB)
	require.Equal(t, core.OK, rc)
	require.NotNil(t, f.Methods)
	assert.Equal(t, 1, f.Methods.Version, "default version follows the original file")
	assert.True(t, f.Methods.Complete())

	require.Equal(t, core.OK, f.WriteAt([]byte("abcdef"), 0))
	buf := make([]byte, 3)
	require.Equal(t, core.OK, f.ReadAt(buf, 3))
	assert.Equal(t, "def", string(buf))
	size, rc := f.FileSize()
	require.Equal(t, core.OK, rc)
	assert.EqualValues(t, 6, size)

	var vfsName string
	require.Equal(t, core.OK, f.FileControl(core.FcntlVFSName, &vfsName))
	assert.Equal(t, vfs.OSName, vfsName, "file control is forwarded verbatim")

	// Tier 3 defaults behave like a file without memory mapping.
	p, rc := f.Methods.Fetch(f, 0, 4)
	assert.Nil(t, p)
	assert.Equal(t, core.OK, rc)

	h := f.Object().(*FileHandle[passFile, *passFile])
	assert.Same(t, h.Original(), h.Impl.Original)

	require.Equal(t, core.OK, f.Close())
	assert.Nil(t, f.Methods)
	assert.Nil(t, f.Object())

	exists, rc := v.Access(v, name, core.AccessExists)
	require.Equal(t, core.OK, rc)
	assert.True(t, exists)
	assert.Equal(t, core.OK, v.Delete(v, name, false))
}

func TestAdapter_FailedOpenDestroysOnce(t *testing.T) {
	impl := &countingVFS{openRC: core.CantOpen}
	a := newCounting(t, impl)

	f, _, rc := vfs.OpenFile(a.Table(), "x", core.OpenReadWrite)
	assert.Equal(t, core.CantOpen, rc)
	assert.Nil(t, f.Methods)
	assert.Nil(t, f.Object())
	assert.Equal(t, 1, impl.tracker.destroyed)
	assert.Equal(t, 0, impl.tracker.closed)
}

func TestAdapter_CloseDestroysOnceRegardlessOfStatus(t *testing.T) {
	for _, closeRC := range []core.ResultCode{core.OK, core.IOErrClose} {
		t.Run(closeRC.String(), func(t *testing.T) {
			impl := &countingVFS{closeRC: closeRC, version: 1}
			a := newCounting(t, impl)

			f, _, rc := vfs.OpenFile(a.Table(), "x", core.OpenReadWrite)
			require.Equal(t, core.OK, rc)
			require.Equal(t, core.OK, f.WriteAt([]byte("12345"), 2))
			size, _ := f.FileSize()
			assert.EqualValues(t, 7, size)

			closeFn := f.Methods.Close
			assert.Equal(t, closeRC, closeFn(f))
			assert.Equal(t, 1, impl.tracker.closed)
			assert.Equal(t, 1, impl.tracker.destroyed)
			assert.Nil(t, f.Methods)

			// A stale trampoline finds no handle.
			assert.Equal(t, core.Misuse, closeFn(f))
			assert.Equal(t, 1, impl.tracker.destroyed)
		})
	}
}

func TestAdapter_FootprintTooSmall(t *testing.T) {
	impl := &countingVFS{}
	a := newCounting(t, impl)

	f := vfs.NewFile(a.SzOsFile - 1)
	_, rc := a.Open(a.Table(), "x", f, core.OpenReadWrite)
	assert.Equal(t, core.Misuse, rc)
	assert.Nil(t, f.Methods)
	assert.Equal(t, 0, impl.tracker.destroyed)
}

func TestAdapter_VersionClamp(t *testing.T) {
	cases := []struct {
		reported int
		want     int
	}{
		{reported: 0, want: 1},
		{reported: 1, want: 1},
		{reported: 2, want: 2},
		{reported: 3, want: 3},
		{reported: 9, want: 3},
	}
	for _, tc := range cases {
		impl := &countingVFS{version: tc.reported}
		a := newCounting(t, impl)
		f, _, rc := vfs.OpenFile(a.Table(), "x", core.OpenReadWrite)
		require.Equal(t, core.OK, rc)
		assert.Equal(t, tc.want, f.Methods.Version)
		for tier := 1; tier <= f.Methods.Version; tier++ {
			assert.True(t, f.Methods.Supports(tier))
		}
		assert.True(t, f.Methods.Complete())
		f.Close()
	}
}

func TestAdapter_Registration(t *testing.T) {
	prev := vfs.Default()
	a, err := New[passFile]("pass-reg", &passVFS{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Unregister()
		vfs.Register(prev, true)
	})

	assert.False(t, a.IsRegistered())
	require.Equal(t, core.OK, a.Register(false))
	assert.True(t, a.IsRegistered())
	assert.Same(t, prev, vfs.Default())

	require.Equal(t, core.OK, a.Register(false))
	require.Equal(t, core.OK, a.Register(true))
	assert.Same(t, a.Table(), vfs.Default())

	require.Equal(t, core.OK, a.Unregister())
	assert.False(t, a.IsRegistered())
	assert.NotSame(t, a.Table(), vfs.Default())
	require.Equal(t, core.OK, a.Unregister())
}
