package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// FileHeader is a standard header for all persistent blob files.
type FileHeader struct {
	Magic          uint32
	Version        uint8
	CreatedAt      int64 // UnixNano timestamp
	CompressorType CompressionType
}

func (h *FileHeader) Size() int {
	return binary.Size(h)
}

// NewFileHeader creates a new header with the current time and specified magic number.
func NewFileHeader(magic uint32, compressorType CompressionType) FileHeader {
	return FileHeader{
		Magic:          magic,
		Version:        FormatVersion,
		CreatedAt:      time.Now().UnixNano(),
		CompressorType: compressorType,
	}
}

// WriteTo encodes the header in little endian.
func (h *FileHeader) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return 0, err
	}
	return int64(h.Size()), nil
}

// ReadFileHeader decodes a header from the front of data and validates the
// magic number and version.
func ReadFileHeader(data []byte, magic uint32) (FileHeader, error) {
	var h FileHeader
	if len(data) < h.Size() {
		return h, fmt.Errorf("header truncated: have %d bytes, need %d", len(data), h.Size())
	}
	if err := binary.Read(bytes.NewReader(data[:h.Size()]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to decode header: %w", err)
	}
	if h.Magic != magic {
		return h, fmt.Errorf("invalid magic number: got %x, want %x", h.Magic, magic)
	}
	if h.Version > FormatVersion {
		return h, fmt.Errorf("unsupported format version %d", h.Version)
	}
	return h, nil
}
