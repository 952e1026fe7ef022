package kpdb

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/klauspost/crc32"
)

// MACSize is the size of authentication tag
const MACSize = sha256.Size

// Key is a secret used to compute authentication tags of records.
// It must come from configuration
type Key []byte

// NewKey returns a copy of k as a Key. Empty key is an error
func NewKey(k []byte) (Key, error) {
	if len(k) == 0 {
		return nil, ErrNoKey
	}
	return append(Key{}, k...), nil
}

// ParseKeyHex parses a hex-encoded key
func ParseKeyHex(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoKey
	}
	d, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	return NewKey(d)
}

// String doesn't reveal the key
func (k Key) String() string {
	return fmt.Sprintf("Key(%d bytes)", len(k))
}

// Checksum returns CRC-32 (IEEE) of d
func Checksum(d []byte) uint32 {
	return crc32.ChecksumIEEE(d)
}

// Authenticate returns HMAC-SHA256 of d
func Authenticate(d []byte, key Key) [MACSize]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(d)
	var res [MACSize]byte
	copy(res[:], mac.Sum(nil))
	return res
}

// Verify recomputes checksum and authentication tag of d and compares
// them with values stored in fm. Returns an error wrapping ErrMismatch
// if they differ
func Verify(fm *FileMetadata, d []byte, key Key) error {
	if len(key) == 0 {
		return ErrNoKey
	}
	if uint64(len(d)) != fm.Size {
		return fmt.Errorf("%w: '%s' is %d bytes, expected %d", ErrMismatch, fm.Name, len(d), fm.Size)
	}
	crc := Checksum(d)
	if crc != fm.CRC {
		return fmt.Errorf("%w: checksum of '%s' is %08x, expected %08x", ErrMismatch, fm.Name, crc, fm.CRC)
	}
	mac := Authenticate(d, key)
	if !hmac.Equal(mac[:], fm.MAC) {
		return fmt.Errorf("%w: authentication tag of '%s' doesn't match", ErrMismatch, fm.Name)
	}
	return nil
}
