package compressors

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/INLOpen/nexusvfs/core"
	lz4 "github.com/pierrec/lz4/v4"
)

// maxLZ4Payload bounds the decoded size accepted from a length prefix.
const maxLZ4Payload = 64 * 1024 * 1024

var errLZ4Prefix = errors.New("lz4: invalid length prefix")

// LZ4Compressor uses the lz4 block format. The block format does not record
// the decoded size, so each payload starts with it as a uvarint.
type LZ4Compressor struct{}

var _ core.Compressor = (*LZ4Compressor)(nil)

func NewLz4Compressor() *LZ4Compressor {
	return &LZ4Compressor{}
}

func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.CompressTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *LZ4Compressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()
	var prefix [binary.MaxVarintLen64]byte
	dst.Write(prefix[:binary.PutUvarint(prefix[:], uint64(len(src)))])
	if len(src) == 0 {
		return nil
	}

	block := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, block, nil)
	if err != nil {
		return fmt.Errorf("lz4 compress error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lz4 compression produced no output for %d input bytes", len(src))
	}
	dst.Write(block[:n])
	return nil
}

func (c *LZ4Compressor) Decompress(data []byte) (io.ReadCloser, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 || size > maxLZ4Payload {
		return nil, errLZ4Prefix
	}
	if size == 0 {
		return newByteReadCloser(nil), nil
	}
	dst := make([]byte, size)
	m, err := lz4.UncompressBlock(data[n:], dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress error: %w", err)
	}
	if uint64(m) != size {
		return nil, fmt.Errorf("lz4 decompressed %d bytes, header says %d", m, size)
	}
	return newByteReadCloser(dst), nil
}

func (c *LZ4Compressor) Type() core.CompressionType {
	return core.CompressionLZ4
}
