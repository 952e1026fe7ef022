package kpdb

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// HeaderSize is the fixed size of serialized Header
	HeaderSize = 39

	// DefaultPaddingSize is the size of reserved space after the header
	DefaultPaddingSize = 10

	// MaxPaddingSize limits the reserved space after the header
	MaxPaddingSize = 1 << 20

	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Magic identifies kpdb archives. It's the first 4 bytes of the file
var Magic = [4]byte{'K', 'P', 'D', 'B'}

type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Header is at the beginning of the archive and points to
// the central directory at the end
type Header struct {
	Magic   [4]byte
	Version Version
	// seconds since Unix epoch
	Timestamp              uint64
	CentralDirectoryOffset uint64
	CentralDirectorySize   uint64
	// size of zero-filled space reserved after the header
	PaddingSize uint64
}

// NewHeader returns a header stamped with current time and
// zero central directory pointers
func NewHeader() *Header {
	return &Header{
		Magic: Magic,
		Version: Version{
			Major: VersionMajor,
			Minor: VersionMinor,
			Patch: VersionPatch,
		},
		Timestamp:   uint64(time.Now().Unix()),
		PaddingSize: DefaultPaddingSize,
	}
}

// CreatedAt returns Timestamp as time.Time
func (h *Header) CreatedAt() time.Time {
	return time.Unix(int64(h.Timestamp), 0)
}

// MarshalBinary serializes the header into exactly HeaderSize bytes
func (h *Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, HeaderSize)
	b = append(b, h.Magic[:]...)
	b = append(b, h.Version.Major, h.Version.Minor, h.Version.Patch)
	b = binary.LittleEndian.AppendUint64(b, h.Timestamp)
	b = binary.LittleEndian.AppendUint64(b, h.CentralDirectoryOffset)
	b = binary.LittleEndian.AppendUint64(b, h.CentralDirectorySize)
	b = binary.LittleEndian.AppendUint64(b, h.PaddingSize)
	return b, nil
}

// UnmarshalBinary decodes the header and validates magic and major version
func (h *Header) UnmarshalBinary(d []byte) error {
	if len(d) != HeaderSize {
		return fmt.Errorf("%w: header: expected %d bytes, got %d", ErrFormat, HeaderSize, len(d))
	}
	r := newDecoder(d, "header")
	var hdr Header
	copy(hdr.Magic[:], r.take(4))
	hdr.Version.Major = r.u8()
	hdr.Version.Minor = r.u8()
	hdr.Version.Patch = r.u8()
	hdr.Timestamp = r.u64()
	hdr.CentralDirectoryOffset = r.u64()
	hdr.CentralDirectorySize = r.u64()
	hdr.PaddingSize = r.u64()
	if err := r.finish(); err != nil {
		return err
	}
	if hdr.Magic != Magic {
		return fmt.Errorf("%w: header: bad magic %q", ErrFormat, hdr.Magic[:])
	}
	if hdr.Version.Major != VersionMajor {
		return fmt.Errorf("%w: header: unsupported version %s, expected major version %d", ErrFormat, hdr.Version, VersionMajor)
	}
	*h = hdr
	return nil
}

// DecodeHeader decodes a header from d
func DecodeHeader(d []byte) (*Header, error) {
	h := &Header{}
	if err := h.UnmarshalBinary(d); err != nil {
		return nil, err
	}
	return h, nil
}

// dataStart is the offset of the first record
func (h *Header) dataStart() uint64 {
	return HeaderSize + h.PaddingSize
}
