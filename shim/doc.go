// Package shim adapts Go file and filesystem implementations to the native
// dispatch tables in package vfs.
//
// A file implementation is a struct that embeds BaseFile and overrides the
// operations it cares about; everything else forwards to the wrapped original
// file. A filesystem implementation embeds BaseVFS in the same way. Adapter
// builds the filesystem table, constructs a FileHandle inside every slab the
// engine opens and installs trampolines that route each slot to the
// implementation.
//
//	type myFile struct{ shim.BaseFile }
//	type myVFS struct{ shim.BaseVFS[myFile, *myFile] }
//
//	a, err := shim.New[myFile]("myvfs", &myVFS{}, nil)
//	a.Register(false)
package shim
