package kpdb

import (
	"fmt"

	"github.com/kjk/kpdb/codec"
)

type Mode int

const (
	ModeWrite Mode = iota + 1
	ModeRead
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeRead:
		return "read"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Archive is a high-level API for writing values to and reading values
// from an archive. It's either in write mode (Create) or
// read mode (Open), never both.
//
//	a, err := kpdb.Create("foo.kpdb", &kpdb.Options{Key: key})
//	err = kpdb.Write(a, codec.Bytes, []byte{1, 2, 3})
//	err = a.Finalize()
//
//	a, err = kpdb.Open("foo.kpdb", nil)
//	d, err := kpdb.Read(a, codec.Bytes, 0)
type Archive struct {
	w *Writer
	r *Reader
}

// Create creates a new archive in write mode and writes the header
func Create(path string, opts *Options) (*Archive, error) {
	w, err := NewWriter(path, opts)
	if err != nil {
		return nil, err
	}
	if err = w.WriteHeader(); err != nil {
		w.Close()
		return nil, err
	}
	return &Archive{w: w}, nil
}

// Open opens an existing archive in read mode
func Open(path string, opts *Options) (*Archive, error) {
	r, err := OpenReader(path, opts)
	if err != nil {
		return nil, err
	}
	return &Archive{r: r}, nil
}

// Mode returns ModeWrite or ModeRead
func (a *Archive) Mode() Mode {
	if a.w != nil {
		return ModeWrite
	}
	return ModeRead
}

func (a *Archive) writer(op string) (*Writer, error) {
	if a.w == nil {
		return nil, fmt.Errorf("%w: %s: archive is opened for reading", ErrMode, op)
	}
	return a.w, nil
}

func (a *Archive) reader(op string) (*Reader, error) {
	if a.r == nil {
		return nil, fmt.Errorf("%w: %s: archive is opened for writing", ErrMode, op)
	}
	return a.r, nil
}

// Write encodes v with c and appends it as a record with
// empty metadata and no preview
func Write[T any](a *Archive, c codec.Codec[T], v T) error {
	w, err := a.writer("Write")
	if err != nil {
		return err
	}
	d, err := c.Encode(v)
	if err != nil {
		return err
	}
	return w.WriteFileRecord(NewFileRecord(d, Metadata{}))
}

// Read reads data of a record at index and decodes it with c
func Read[T any](a *Archive, c codec.Codec[T], index int) (T, error) {
	var zero T
	r, err := a.reader("Read")
	if err != nil {
		return zero, err
	}
	d, err := r.ReadData(index)
	if err != nil {
		return zero, err
	}
	return c.Decode(d)
}

// WriteRecord appends a record with metadata and optional preview
func (a *Archive) WriteRecord(rec *FileRecord) error {
	w, err := a.writer("WriteRecord")
	if err != nil {
		return err
	}
	return w.WriteFileRecord(rec)
}

// ReadRecord reads a record with its metadata and preview
func (a *Archive) ReadRecord(index int) (*FileRecord, error) {
	r, err := a.reader("ReadRecord")
	if err != nil {
		return nil, err
	}
	return r.ReadFileRecord(index)
}

// Finalize publishes the archive
func (a *Archive) Finalize() error {
	w, err := a.writer("Finalize")
	if err != nil {
		return err
	}
	return w.Finalize()
}

// ListFiles returns a snapshot of central directory entries.
// In write mode those are records written so far
func (a *Archive) ListFiles() []FileMetadata {
	if a.w != nil {
		return a.w.Files()
	}
	return a.r.Files()
}

// Len returns number of records
func (a *Archive) Len() int {
	if a.w != nil {
		return a.w.Len()
	}
	return a.r.Len()
}

// Header returns a copy of the header
func (a *Archive) Header() Header {
	if a.w != nil {
		return a.w.Header()
	}
	return a.r.Header()
}

// Close closes the reader or the writer. A writer that wasn't
// finalized is abandoned
func (a *Archive) Close() error {
	if a.w != nil {
		return a.w.Close()
	}
	return a.r.Close()
}
