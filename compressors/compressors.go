// Package compressors provides the payload codecs for durable blob files.
package compressors

import (
	"bytes"
	"fmt"
	"io"

	"github.com/INLOpen/nexusvfs/core"
)

// New returns the compressor for ct.
func New(ct core.CompressionType) (core.Compressor, error) {
	switch ct {
	case core.CompressionNone:
		return NewNoCompressionCompressor(), nil
	case core.CompressionSnappy:
		return NewSnappyCompressor(), nil
	case core.CompressionLZ4:
		return NewLz4Compressor(), nil
	case core.CompressionZSTD:
		return NewZstdCompressor(), nil
	}
	return nil, fmt.Errorf("unsupported compression type %d", ct)
}

// ForName resolves a configuration name such as "snappy".
func ForName(name string) (core.Compressor, error) {
	ct, ok := core.ParseCompressionType(name)
	if !ok {
		return nil, fmt.Errorf("unknown compression %q", name)
	}
	return New(ct)
}

// DecompressAll decompresses data fully with c.
func DecompressAll(c core.Compressor, data []byte) ([]byte, error) {
	rc, err := c.Decompress(data)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// byteReadCloser serves an already decoded payload.
type byteReadCloser struct {
	*bytes.Reader
}

func (b *byteReadCloser) Close() error { return nil }

func newByteReadCloser(p []byte) io.ReadCloser {
	return &byteReadCloser{Reader: bytes.NewReader(p)}
}
