package vfs

import (
	"testing"

	"github.com/INLOpen/nexusvfs/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OSFilesystemIsSeeded(t *testing.T) {
	v := Find(OSName)
	require.NotNil(t, v)
	assert.Equal(t, OSName, v.Name)
	assert.NotNil(t, Default())
}

func TestRegistry_RegisterFindUnregister(t *testing.T) {
	prev := Default()
	a := &VFS{Version: 1, Name: "reg-a"}
	b := &VFS{Version: 1, Name: "reg-b"}
	t.Cleanup(func() {
		Unregister(a)
		Unregister(b)
		Register(prev, true)
	})

	require.Equal(t, core.OK, Register(a, false))
	assert.Same(t, a, Find("reg-a"))
	assert.Same(t, prev, Default(), "non-default registration must not change the default")

	require.Equal(t, core.OK, Register(b, true))
	assert.Same(t, b, Default())

	// Registering twice is idempotent.
	require.Equal(t, core.OK, Register(a, false))
	count := 0
	for _, v := range List() {
		if v == a {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// Re-registering with makeDefault promotes.
	require.Equal(t, core.OK, Register(a, true))
	assert.Same(t, a, Default())

	// Removing the default promotes a successor.
	require.Equal(t, core.OK, Unregister(a))
	assert.Nil(t, Find("reg-a"))
	assert.NotNil(t, Default())
	assert.NotSame(t, a, Default())

	// Unregistering again is a no-op.
	assert.Equal(t, core.OK, Unregister(a))
}

func TestRegistry_RejectsInvalidTables(t *testing.T) {
	assert.Equal(t, core.Misuse, Register(nil, false))
	assert.Equal(t, core.Misuse, Register(&VFS{Version: 1}, false))
	assert.Equal(t, core.Misuse, Unregister(nil))
	assert.Nil(t, Find("no-such-vfs"))
}

func TestSupports(t *testing.T) {
	var nilMethods *IOMethods
	assert.False(t, nilMethods.Supports(1))

	m := &IOMethods{Version: 2}
	assert.True(t, m.Supports(1))
	assert.True(t, m.Supports(2))
	assert.False(t, m.Supports(3))
	assert.False(t, m.Supports(0))

	v := &VFS{Version: 1}
	assert.True(t, v.Supports(1))
	assert.False(t, v.Supports(2))
}

func TestFileSlab(t *testing.T) {
	f := NewFile(16)
	assert.Equal(t, 16, f.Size())
	assert.Nil(t, f.Object())
	assert.Equal(t, core.Misuse, f.Close(), "a slab without methods cannot be closed")

	f.Construct("state")
	assert.Equal(t, "state", f.Object())
	assert.Panics(t, func() { f.Construct("again") })
	assert.True(t, f.Destroy())
	assert.False(t, f.Destroy())
}
