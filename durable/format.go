package durable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/INLOpen/nexusvfs/compressors"
	"github.com/INLOpen/nexusvfs/core"
)

var ErrCorrupt = errors.New("durable: corrupt blob file")

// encodeBlob lays out header, compressed payload and a CRC32 of both.
func encodeBlob(c core.Compressor, data []byte) ([]byte, error) {
	buf := core.BufferPool.Get()
	defer core.BufferPool.Put(buf)

	if err := c.CompressTo(buf, data); err != nil {
		return nil, fmt.Errorf("failed to compress blob: %w", err)
	}
	header := core.NewFileHeader(core.BlobMagicNumber, c.Type())

	var out bytes.Buffer
	out.Grow(header.Size() + buf.Len() + core.ChecksumSize)
	if _, err := header.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("failed to write blob header: %w", err)
	}
	out.Write(buf.Bytes())
	var sum [core.ChecksumSize]byte
	binary.LittleEndian.PutUint32(sum[:], crc32.ChecksumIEEE(out.Bytes()))
	out.Write(sum[:])
	return out.Bytes(), nil
}

// decodeBlob validates a blob file and returns its decompressed payload.
func decodeBlob(file []byte) ([]byte, error) {
	header, err := core.ReadFileHeader(file, core.BlobMagicNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(file) < header.Size()+core.ChecksumSize {
		return nil, fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	body := file[:len(file)-core.ChecksumSize]
	want := binary.LittleEndian.Uint32(file[len(file)-core.ChecksumSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return nil, fmt.Errorf("%w: checksum mismatch (got %08x, want %08x)", ErrCorrupt, got, want)
	}
	c, err := compressors.New(header.CompressorType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	data, err := compressors.DecompressAll(c, body[header.Size():])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}
