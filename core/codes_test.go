package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCodeValues(t *testing.T) {
	// Values are part of the engine ABI.
	tests := []struct {
		code ResultCode
		want int
		name string
	}{
		{OK, 0, "OK"},
		{ErrorCode, 1, "ERROR"},
		{NotFound, 12, "NOTFOUND"},
		{CantOpen, 14, "CANTOPEN"},
		{IOErrRead, 266, "IOERR_READ"},
		{IOErrShortRead, 522, "IOERR_SHORT_READ"},
		{IOErrWrite, 778, "IOERR_WRITE"},
		{IOErrFsync, 1034, "IOERR_FSYNC"},
		{IOErrDelete, 2570, "IOERR_DELETE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, int(tt.code))
			assert.Equal(t, tt.name, tt.code.String())
		})
	}
	assert.Equal(t, IOErr, IOErrShortRead.Primary())
	assert.Equal(t, "CODE(9999)", ResultCode(9999).String())
}

func TestResultCodeErr(t *testing.T) {
	require.NoError(t, OK.Err())

	err := IOErrWrite.Err()
	require.Error(t, err)
	assert.True(t, IsCode(err, IOErrWrite))
	assert.Equal(t, IOErrWrite, AsCode(err, ErrorCode))
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("disk gone")
	err := fmt.Errorf("sync page: %w", NewError("xSync", IOErrFsync, cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, IOErrFsync, AsCode(err, ErrorCode))
	assert.Equal(t, ErrorCode, AsCode(errors.New("plain"), ErrorCode))
	assert.Equal(t, OK, AsCode(nil, ErrorCode))
	assert.Contains(t, err.Error(), "xSync: IOERR_FSYNC: disk gone")
}

func TestOpenFlagKinds(t *testing.T) {
	assert.True(t, (OpenMainDB | OpenReadWrite).IsDatabase())
	assert.True(t, OpenTempDB.IsDatabase())
	assert.False(t, (OpenMainJournal | OpenCreate).IsDatabase())
	assert.False(t, OpenWAL.IsDatabase())
	assert.True(t, (OpenReadWrite | OpenCreate).Has(OpenCreate))
	assert.False(t, OpenReadWrite.Has(OpenCreate))
}

func TestFileHeaderRoundTrip(t *testing.T) {
	h := NewFileHeader(BlobMagicNumber, CompressionSnappy)
	var buf = BufferPool.Get()
	defer BufferPool.Put(buf)
	_, err := h.WriteTo(buf)
	require.NoError(t, err)
	require.Equal(t, h.Size(), buf.Len())

	got, err := ReadFileHeader(buf.Bytes(), BlobMagicNumber)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	_, err = ReadFileHeader(buf.Bytes(), 0xdeadbeef)
	assert.Error(t, err)
	_, err = ReadFileHeader(buf.Bytes()[:3], BlobMagicNumber)
	assert.Error(t, err)
}
