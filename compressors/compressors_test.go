package compressors

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/INLOpen/nexusvfs/core"
)

func TestCompressors_RoundTrip(t *testing.T) {
	random := make([]byte, 4096)
	rand.Read(random)

	payloads := map[string][]byte{
		"page":       bytes.Repeat([]byte("SQLite format 3\x00"), 256),
		"size":       []byte("8192"),
		"empty":      {},
		"incompress": random,
	}

	for _, ct := range []core.CompressionType{core.CompressionNone, core.CompressionSnappy, core.CompressionLZ4, core.CompressionZSTD} {
		c, err := New(ct)
		if err != nil {
			t.Fatalf("New(%s): %v", ct, err)
		}
		if c.Type() != ct {
			t.Errorf("Type() = %v, want %v", c.Type(), ct)
		}
		for name, data := range payloads {
			t.Run(ct.String()+"/"+name, func(t *testing.T) {
				compressed, err := c.Compress(data)
				if err != nil {
					t.Fatalf("Compress: %v", err)
				}
				got, err := DecompressAll(c, compressed)
				if err != nil {
					t.Fatalf("Decompress: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
				}

				var buf bytes.Buffer
				buf.WriteString("stale")
				if err := c.CompressTo(&buf, data); err != nil {
					t.Fatalf("CompressTo: %v", err)
				}
				got, err = DecompressAll(c, buf.Bytes())
				if err != nil {
					t.Fatalf("Decompress after CompressTo: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("CompressTo round trip mismatch")
				}
			})
		}
	}
}

func TestForName(t *testing.T) {
	c, err := ForName("zstd")
	if err != nil || c.Type() != core.CompressionZSTD {
		t.Fatalf("ForName(zstd) = %v, %v", c, err)
	}
	if _, err := ForName("brotli"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
	if _, err := New(core.CompressionType(42)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestLZ4_RejectsBadPrefix(t *testing.T) {
	c := NewLz4Compressor()
	if _, err := c.Decompress([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}); err == nil {
		t.Fatalf("expected prefix error")
	}
	if _, err := c.Decompress(nil); err == nil {
		t.Fatalf("expected prefix error for empty input")
	}
}
