package vfs

import (
	"sync"

	"github.com/INLOpen/nexusvfs/core"
)

// The registry is an ordered list of filesystem tables; its head is the
// process default. The built-in OS filesystem is registered from init.
var (
	registryMu sync.Mutex
	registry   []*VFS
)

// Register adds v to the registry. A table that is already registered keeps its
// position unless makeDefault promotes it to the head.
func Register(v *VFS, makeDefault bool) core.ResultCode {
	if v == nil || v.Name == "" {
		return core.Misuse
	}
	registryMu.Lock()
	defer registryMu.Unlock()

	idx := indexOf(v)
	if idx >= 0 {
		if !makeDefault || idx == 0 {
			return core.OK
		}
		registry = append(registry[:idx], registry[idx+1:]...)
	}
	switch {
	case makeDefault || len(registry) == 0:
		registry = append([]*VFS{v}, registry...)
	default:
		// New non-default tables go right after the default.
		registry = append(registry, nil)
		copy(registry[2:], registry[1:])
		registry[1] = v
	}
	return core.OK
}

// Unregister removes v. If v was the default, its successor becomes the
// default. Unregistering a table that is not registered is a no-op.
func Unregister(v *VFS) core.ResultCode {
	if v == nil {
		return core.Misuse
	}
	registryMu.Lock()
	defer registryMu.Unlock()

	if idx := indexOf(v); idx >= 0 {
		registry = append(registry[:idx], registry[idx+1:]...)
	}
	return core.OK
}

// Find returns the first registered table with the given name. The empty name
// selects the default. It returns nil when nothing matches.
func Find(name string) *VFS {
	registryMu.Lock()
	defer registryMu.Unlock()

	if len(registry) == 0 {
		return nil
	}
	if name == "" {
		return registry[0]
	}
	for _, v := range registry {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Default returns the current default table.
func Default() *VFS {
	return Find("")
}

// List returns the registered tables, default first.
func List() []*VFS {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*VFS, len(registry))
	copy(out, registry)
	return out
}

func indexOf(v *VFS) int {
	for i, r := range registry {
		if r == v {
			return i
		}
	}
	return -1
}
