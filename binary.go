package kpdb

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// all integers are little-endian, lengths and counts are u64

func appendU32(b []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(b, v)
}

func appendU64(b []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(b, v)
}

func appendBytes(b []byte, d []byte) []byte {
	b = appendU64(b, uint64(len(d)))
	return append(b, d...)
}

func appendString(b []byte, s string) []byte {
	b = appendU64(b, uint64(len(s)))
	return append(b, s...)
}

func appendOptionU64(b []byte, v uint64, present bool) []byte {
	if !present {
		return append(b, 0)
	}
	b = append(b, 1)
	return appendU64(b, v)
}

// decoder reads from d and remembers the first error.
// It never reads past the end of d and never allocates
// based on an unchecked length prefix.
type decoder struct {
	d    []byte
	off  int
	what string
	err  error
}

func newDecoder(d []byte, what string) *decoder {
	return &decoder{
		d:    d,
		what: what,
	}
}

func (r *decoder) remaining() int {
	return len(r.d) - r.off
}

func (r *decoder) fail(format string, args ...any) {
	if r.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	r.err = fmt.Errorf("%w: %s: %s", ErrFormat, r.what, msg)
}

func (r *decoder) take(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(r.remaining()) {
		r.fail("need %d bytes at offset %d, have %d", n, r.off, r.remaining())
		return nil
	}
	d := r.d[r.off : r.off+int(n)]
	r.off += int(n)
	return d
}

func (r *decoder) u8() uint8 {
	d := r.take(1)
	if d == nil {
		return 0
	}
	return d[0]
}

func (r *decoder) u32() uint32 {
	d := r.take(4)
	if d == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(d)
}

func (r *decoder) u64() uint64 {
	d := r.take(8)
	if d == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(d)
}

// bytes reads a length-prefixed byte span. The result aliases r.d
func (r *decoder) bytes() []byte {
	n := r.u64()
	return r.take(n)
}

func (r *decoder) str() string {
	d := r.bytes()
	if r.err != nil {
		return ""
	}
	if !utf8.Valid(d) {
		r.fail("string at offset %d is not valid utf-8", r.off-len(d))
		return ""
	}
	return string(d)
}

func (r *decoder) optionU64() (uint64, bool) {
	flag := r.u8()
	switch flag {
	case 0:
		return 0, false
	case 1:
		return r.u64(), true
	}
	r.fail("invalid option flag %d at offset %d", flag, r.off-1)
	return 0, false
}

// count reads a count prefix of items that take at least minSize bytes each
// and rejects counts that can't possibly fit in the remaining bytes
func (r *decoder) count(minSize int) int {
	n := r.u64()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.remaining()/minSize) {
		r.fail("count %d doesn't fit in %d bytes", n, r.remaining())
		return 0
	}
	return int(n)
}

func (r *decoder) finish() error {
	if r.err == nil && r.remaining() != 0 {
		r.fail("%d unexpected trailing bytes", r.remaining())
	}
	return r.err
}
