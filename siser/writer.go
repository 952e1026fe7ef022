// Package siser frames blocks of data as human-readable log entries:
//
//	--- ${size} ${timestamp_in_unix_epoch_ms} ${name}\n
//	${data}\n
//
// The trailing newline is only added if data doesn't already end with one.
package siser

import (
	"bytes"
	"io"
	"strconv"
	"sync"
	"time"
)

var hdrPrefix = []byte("--- ")

// Writer writes framed blocks of data
type Writer struct {
	w  io.Writer
	wb bytes.Buffer
	mu sync.Mutex
}

// NewWriter creates a writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w: w,
	}
}

// Write writes d with a timestamp and optional name.
// If t is zero time, uses current time
func (w *Writer) Write(d []byte, t time.Time, name string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// don't keep big buffers around
	if w.wb.Cap() > 100*1024 && len(d) < 50*1024 {
		w.wb = bytes.Buffer{}
	}
	if t.IsZero() {
		t = time.Now()
	}
	d2 := MarshalLine(name, t, d, &w.wb)
	return w.w.Write(d2)
}

// MarshalLine frames d. If wb is given, it's used as a buffer
// and the result is valid until wb is modified.
// If t is zero time, the timestamp is not written
func MarshalLine(name string, t time.Time, d []byte, wb *bytes.Buffer) []byte {
	if wb == nil {
		wb = &bytes.Buffer{}
	} else {
		wb.Reset()
	}
	wb.Grow(len(hdrPrefix) + len(name) + len(d) + 32)

	wb.Write(hdrPrefix)
	dataLen := len(d)
	wb.WriteString(strconv.Itoa(dataLen))
	if !t.IsZero() {
		wb.WriteByte(' ')
		wb.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
	}
	if name != "" {
		wb.WriteByte(' ')
		wb.WriteString(name)
	}
	wb.WriteByte('\n')
	if dataLen > 0 {
		wb.Write(d)
		if d[dataLen-1] != '\n' {
			wb.WriteByte('\n')
		}
	}
	return wb.Bytes()
}
