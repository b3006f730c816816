package shared

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Header layout constants, mirroring the public package's shared-buffer
// format: 24 bytes, big-endian, {magic, version, size, flags,
// checksum, reserved}.
const (
	HeaderSize = 24
	Magic      = uint32(0x474F4E45)
	Version    = uint16(1)
)

// Flag bits, mirrored from the public package's constants.go.
const (
	FlagReadOnly   uint32 = 1 << 0
	FlagCompressed uint32 = 1 << 1
	FlagEncrypted  uint32 = 1 << 2
	FlagChecksumed uint32 = 1 << 3
	FlagCircular   uint32 = 1 << 4
)

var (
	// ErrBadMagic is returned by Attach when the region's magic number
	// doesn't match Magic.
	ErrBadMagic = errors.New("shared: bad buffer magic")
	// ErrBadVersion is returned by Attach when the region's version field
	// doesn't match a supported Version.
	ErrBadVersion = errors.New("shared: unsupported buffer version")
	// ErrReadOnly is returned by any mutating operation on a buffer with
	// FlagReadOnly set.
	ErrReadOnly = errors.New("shared: buffer is read-only")
	// ErrOutOfRange is returned by Read/Write when off/len fall outside
	// the payload region.
	ErrOutOfRange = errors.New("shared: offset/length out of range")
)

// Buffer is a shared byte region with a fixed 24-byte header (magic,
// version, size, flags, checksum, reserved) followed by size payload
// bytes. When FlagChecksumed is set, every mutation recomputes and stores
// the checksum over the payload.
type Buffer struct {
	region []byte // header + payload, contiguous
}

// Allocate constructs a fresh Buffer of the given payload size with flags
// applied. The header is initialized and, if FlagChecksumed is set, the
// checksum over the (zeroed) payload is computed immediately.
func Allocate(size int, flags uint32) (*Buffer, error) {
	if size < 0 {
		return nil, ErrOutOfRange
	}
	b := &Buffer{region: make([]byte, HeaderSize+size)}
	binary.BigEndian.PutUint32(b.region[0:4], Magic)
	binary.BigEndian.PutUint16(b.region[4:6], Version)
	binary.BigEndian.PutUint32(b.region[8:12], uint32(size))
	binary.BigEndian.PutUint32(b.region[12:16], flags)
	if flags&FlagChecksumed != 0 {
		b.updateChecksum()
	}
	return b, nil
}

// Attach wraps an existing region (e.g. one received from another goroutine
// or worker) as a Buffer, validating its header.
func Attach(region []byte) (*Buffer, error) {
	if len(region) < HeaderSize {
		return nil, fmt.Errorf("%w: region shorter than header", ErrOutOfRange)
	}
	b := &Buffer{region: region}
	if err := b.validateHeader(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) validateHeader() error {
	if binary.BigEndian.Uint32(b.region[0:4]) != Magic {
		return ErrBadMagic
	}
	if binary.BigEndian.Uint16(b.region[4:6]) != Version {
		return ErrBadVersion
	}
	size := binary.BigEndian.Uint32(b.region[8:12])
	if int(size) != len(b.region)-HeaderSize {
		return fmt.Errorf("%w: header size %d does not match region", ErrOutOfRange, size)
	}
	return nil
}

// ValidateHeader re-checks the header and, if FlagChecksumed is set, that
// the stored checksum matches the payload.
func (b *Buffer) ValidateHeader() error {
	if err := b.validateHeader(); err != nil {
		return err
	}
	if b.Flags()&FlagChecksumed != 0 {
		stored := binary.BigEndian.Uint32(b.region[16:20])
		if stored != b.computeChecksum() {
			return fmt.Errorf("%w: checksum mismatch", ErrOutOfRange)
		}
	}
	return nil
}

// Size returns the payload size in bytes.
func (b *Buffer) Size() int {
	return int(binary.BigEndian.Uint32(b.region[8:12]))
}

// Flags returns the header's flag bits.
func (b *Buffer) Flags() uint32 {
	return binary.BigEndian.Uint32(b.region[12:16])
}

// Checksum returns the stored checksum value (meaningful only when
// FlagChecksumed is set).
func (b *Buffer) Checksum() uint32 {
	return binary.BigEndian.Uint32(b.region[16:20])
}

func (b *Buffer) payload() []byte {
	return b.region[HeaderSize:]
}

func (b *Buffer) computeChecksum() uint32 {
	return crc32.ChecksumIEEE(b.payload())
}

func (b *Buffer) updateChecksum() {
	binary.BigEndian.PutUint32(b.region[16:20], b.computeChecksum())
}

// Read copies len(dst) bytes starting at off into dst.
func (b *Buffer) Read(off int, dst []byte) error {
	payload := b.payload()
	if off < 0 || off+len(dst) > len(payload) {
		return ErrOutOfRange
	}
	copy(dst, payload[off:off+len(dst)])
	return nil
}

// Write copies src into the payload at off. Fails with ErrReadOnly if
// FlagReadOnly is set; otherwise, if FlagChecksumed is set, the stored
// checksum is recomputed over the full payload after the write.
func (b *Buffer) Write(off int, src []byte) error {
	if b.Flags()&FlagReadOnly != 0 {
		return ErrReadOnly
	}
	payload := b.payload()
	if off < 0 || off+len(src) > len(payload) {
		return ErrOutOfRange
	}
	copy(payload[off:off+len(src)], src)
	if b.Flags()&FlagChecksumed != 0 {
		b.updateChecksum()
	}
	return nil
}

// Clear zeroes the entire payload. Fails with ErrReadOnly if FlagReadOnly
// is set.
func (b *Buffer) Clear() error {
	if b.Flags()&FlagReadOnly != 0 {
		return ErrReadOnly
	}
	payload := b.payload()
	for i := range payload {
		payload[i] = 0
	}
	if b.Flags()&FlagChecksumed != 0 {
		b.updateChecksum()
	}
	return nil
}

// Region returns the underlying header+payload bytes, e.g. to hand off to
// another goroutine via Attach.
func (b *Buffer) Region() []byte { return b.region }
