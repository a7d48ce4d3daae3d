package sys

import (
	"os"
)

var _ FileHandle = (*RealFile)(nil)

// RealFile is the handle returned outside debug mode. The embedded *os.File
// supplies every FileHandle method.
type RealFile struct {
	*os.File
}

func ROpenFile(sysFile File, name string, flag int, perm os.FileMode) (FileHandle, error) {
	f, err := sysFile.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &RealFile{File: f}, nil
}
