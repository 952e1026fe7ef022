package siser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"
)

// MaxDataSize limits size of a block accepted by Reader so that
// a corrupted header can't trigger a huge allocation
var MaxDataSize int64 = 16 * 1024 * 1024

// Reader reads blocks written by Writer or MarshalLine
type Reader struct {
	r *bufio.Reader

	// Data / Name / Timestamp are available after ReadNextData.
	// They are over-written in next ReadNextData.
	Data      []byte
	Name      string
	Timestamp time.Time

	err  error
	done bool
}

// NewReader creates a new reader
func NewReader(r *bufio.Reader) *Reader {
	return &Reader{
		r: r,
	}
}

// Err returns the first error. io.EOF at a block boundary is not an error
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) badHeader(hdr []byte) bool {
	r.err = fmt.Errorf("unexpected header '%s'", string(hdr))
	return false
}

// ReadNextData reads next block. Returns false when there are
// no more blocks or there was an error (check Err())
func (r *Reader) ReadNextData() bool {
	if r.err != nil || r.done {
		return false
	}
	r.Name = ""
	r.Timestamp = time.Time{}

	hdr, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(hdr) == 0 {
			r.done = true
		} else {
			r.err = err
		}
		return false
	}
	rest := bytes.TrimSuffix(hdr, []byte{'\n'})
	if !bytes.HasPrefix(rest, hdrPrefix) {
		return r.badHeader(hdr)
	}
	rest = rest[len(hdrPrefix):]

	// ${size} [${timestamp} [${name}]]
	parts := bytes.SplitN(rest, []byte{' '}, 3)
	size, err := strconv.ParseInt(string(parts[0]), 10, 64)
	if err != nil || size < 0 {
		return r.badHeader(hdr)
	}
	if size > MaxDataSize {
		r.err = fmt.Errorf("block size %d is bigger than %d", size, MaxDataSize)
		return false
	}
	if len(parts) > 1 {
		ms, err := strconv.ParseInt(string(parts[1]), 10, 64)
		if err != nil {
			return r.badHeader(hdr)
		}
		r.Timestamp = time.UnixMilli(ms)
	}
	if len(parts) > 2 {
		r.Name = string(parts[2])
	}

	r.Data = make([]byte, size)
	if _, err = io.ReadFull(r.r, r.Data); err != nil {
		r.err = err
		return false
	}
	// data not ending with newline was padded with one
	if size > 0 && r.Data[size-1] != '\n' {
		if _, err = r.r.Discard(1); err != nil {
			r.err = err
			return false
		}
	}
	return true
}
