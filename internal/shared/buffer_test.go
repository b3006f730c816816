package shared

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWriteReadRoundTrip(t *testing.T) {
	b, err := Allocate(64, 0)
	require.NoError(t, err)

	data := []byte("hello, shared world")
	require.NoError(t, b.Write(8, data))

	out := make([]byte, len(data))
	require.NoError(t, b.Read(8, out))
	assert.Equal(t, data, out)
}

func TestBufferChecksumMaintainedOnWrite(t *testing.T) {
	b, err := Allocate(32, FlagChecksumed)
	require.NoError(t, err)
	require.NoError(t, b.ValidateHeader())

	require.NoError(t, b.Write(0, []byte{1, 2, 3, 4}))
	require.NoError(t, b.ValidateHeader())

	require.NoError(t, b.Clear())
	assert.NoError(t, b.ValidateHeader())
}

func TestBufferChecksumDetectsCorruption(t *testing.T) {
	b, err := Allocate(16, FlagChecksumed)
	require.NoError(t, err)
	require.NoError(t, b.Write(0, []byte("abcd")))

	// Corrupt the payload behind the buffer's back.
	b.Region()[HeaderSize] ^= 0xFF
	assert.Error(t, b.ValidateHeader())
}

func TestBufferReadOnlyRejectsMutation(t *testing.T) {
	b, err := Allocate(16, FlagReadOnly)
	require.NoError(t, err)
	assert.ErrorIs(t, b.Write(0, []byte{1}), ErrReadOnly)
	assert.ErrorIs(t, b.Clear(), ErrReadOnly)
}

func TestBufferOutOfRange(t *testing.T) {
	b, err := Allocate(8, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, b.Write(6, []byte{1, 2, 3}), ErrOutOfRange)
	assert.ErrorIs(t, b.Read(-1, make([]byte, 1)), ErrOutOfRange)
	assert.ErrorIs(t, b.Read(8, make([]byte, 1)), ErrOutOfRange)
}

func TestAttachValidatesHeader(t *testing.T) {
	b, err := Allocate(16, 0)
	require.NoError(t, err)

	attached, err := Attach(b.Region())
	require.NoError(t, err)
	assert.Equal(t, 16, attached.Size())
}

func TestAttachRejectsBadMagic(t *testing.T) {
	b, err := Allocate(16, 0)
	require.NoError(t, err)
	region := b.Region()
	binary.BigEndian.PutUint32(region[0:4], 0xDEADBEEF)
	_, err = Attach(region)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestAttachRejectsBadVersion(t *testing.T) {
	b, err := Allocate(16, 0)
	require.NoError(t, err)
	region := b.Region()
	binary.BigEndian.PutUint16(region[4:6], 99)
	_, err = Attach(region)
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestAttachRejectsShortRegion(t *testing.T) {
	_, err := Attach(make([]byte, HeaderSize-1))
	assert.ErrorIs(t, err, ErrOutOfRange)
}
