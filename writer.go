package kpdb

import (
	"bufio"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kjk/kpdb/atomicfile"
	"github.com/kjk/kpdb/log"
)

type writerState int

const (
	stateCreated writerState = iota
	stateHeaderWritten
	stateFinalized
	stateClosed
)

// Writer creates an archive. Records are written to <path>.tmp
// which is renamed to <path> by Finalize().
//
// The order of calls must be:
// NewWriter(), WriteHeader(), WriteFileRecord() (any number of times), Finalize().
// Call Close() (e.g. with defer) to delete the temporary file
// if Finalize() wasn't called.
//
// Writer is not safe for concurrent use.
type Writer struct {
	path   string
	key    Key
	f      *atomicfile.File
	bw     *bufio.Writer
	header *Header
	dir    CentralDirectory
	// offset at which next write happens
	offset uint64
	state  writerState
	// first write error
	err     error
	started time.Time
}

// NewWriter creates <path>.tmp for writing. It fails if <path>.tmp
// already exists. opts.Key is required
func NewWriter(path string, opts *Options) (*Writer, error) {
	if err := opts.validateForWrite(); err != nil {
		return nil, err
	}
	f, err := atomicfile.New(path)
	if err != nil {
		return nil, err
	}
	hdr := NewHeader()
	hdr.PaddingSize = opts.paddingSize()
	w := &Writer{
		path:    path,
		key:     append(Key{}, opts.Key...),
		f:       f,
		bw:      bufio.NewWriterSize(f, 64*1024),
		header:  hdr,
		started: time.Now(),
	}
	return w, nil
}

// Path returns the destination path
func (w *Writer) Path() string {
	return w.path
}

// Header returns a copy of the header
func (w *Writer) Header() Header {
	return *w.header
}

// Len returns number of records written so far
func (w *Writer) Len() int {
	return w.dir.Len()
}

// Files returns a snapshot of directory entries written so far
func (w *Writer) Files() []FileMetadata {
	return w.dir.Files()
}

func (w *Writer) checkState(op string, expected writerState) error {
	if w.err != nil {
		return w.err
	}
	if w.state == expected {
		return nil
	}
	var reason string
	switch w.state {
	case stateCreated:
		reason = "header not written yet"
	case stateHeaderWritten:
		reason = "header already written"
	case stateFinalized:
		reason = "archive already finalized"
	case stateClosed:
		reason = "writer is closed"
	}
	return fmt.Errorf("%w: %s: %s", ErrUsage, op, reason)
}

func (w *Writer) write(d []byte) error {
	if w.err != nil {
		return w.err
	}
	n, err := w.bw.Write(d)
	w.offset += uint64(n)
	if err != nil {
		w.err = fmt.Errorf("writing '%s': %w", w.f.TmpPath(), err)
	}
	return w.err
}

// WriteHeader writes the header and reserved padding.
// Must be called once, before any WriteFileRecord()
func (w *Writer) WriteHeader() error {
	if err := w.checkState("WriteHeader", stateCreated); err != nil {
		return err
	}
	d, err := w.header.MarshalBinary()
	if err != nil {
		return err
	}
	if err = w.write(d); err != nil {
		return err
	}
	padding := make([]byte, w.header.PaddingSize)
	if err = w.write(padding); err != nil {
		return err
	}
	w.state = stateHeaderWritten
	return nil
}

// WriteFileRecord appends metadata, data and optional preview of rec
// and adds an entry to the central directory.
// Metadata with duplicate keys or non UTF-8 strings is rejected with
// ErrUsage before anything is written and the writer stays usable.
// If a write fails, the temporary file is left partially written and
// subsequent calls return the same error
func (w *Writer) WriteFileRecord(rec *FileRecord) error {
	if err := w.checkState("WriteFileRecord", stateHeaderWritten); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: WriteFileRecord: nil record", ErrUsage)
	}

	meta, err := rec.Metadata.MarshalBinary()
	if err != nil {
		return err
	}
	var preview []byte
	if rec.Preview != nil {
		if preview, err = rec.Preview.MarshalBinary(); err != nil {
			return err
		}
	}

	fm := FileMetadata{
		Name: fmt.Sprintf("file_%d", w.dir.Len()),
		CRC:  Checksum(rec.Data),
	}
	mac := Authenticate(rec.Data, w.key)
	fm.MAC = mac[:]

	fm.MetadataOffset = w.offset
	fm.MetadataSize = uint64(len(meta))
	if err = w.write(meta); err != nil {
		return err
	}

	fm.Offset = w.offset
	fm.Size = uint64(len(rec.Data))
	if err = w.write(rec.Data); err != nil {
		return err
	}

	if rec.Preview != nil {
		fm.HasPreview = true
		fm.PreviewOffset = w.offset
		fm.PreviewSize = uint64(len(preview))
		if err = w.write(preview); err != nil {
			return err
		}
	}

	w.dir.add(fm)
	return nil
}

// Finalize writes the central directory, updates the header and
// atomically renames <path>.tmp to <path>.
// No records can be written after Finalize()
func (w *Writer) Finalize() error {
	if err := w.checkState("Finalize", stateHeaderWritten); err != nil {
		return err
	}

	dirOffset := w.offset
	d, err := w.dir.MarshalBinary()
	if err != nil {
		return err
	}
	if err = w.write(d); err != nil {
		return err
	}
	if err = w.bw.Flush(); err != nil {
		w.err = fmt.Errorf("writing '%s': %w", w.f.TmpPath(), err)
		return w.err
	}

	w.header.CentralDirectoryOffset = dirOffset
	w.header.CentralDirectorySize = uint64(len(d))
	hdr, err := w.header.MarshalBinary()
	if err != nil {
		return err
	}
	// header has fixed size so re-writing it doesn't touch padding or records
	if _, err = w.f.WriteAt(hdr, 0); err != nil {
		w.err = fmt.Errorf("writing header of '%s': %w", w.f.TmpPath(), err)
		return w.err
	}

	if err = w.f.Close(); err != nil {
		w.err = fmt.Errorf("publishing '%s': %w", w.path, err)
		return w.err
	}
	w.state = stateFinalized

	size := w.offset
	log.Verbosef("kpdb: published '%s', %d records, %s\n", w.path, w.dir.Len(), humanize.Bytes(size))
	log.EventWithDuration("kpdb.publish", time.Since(w.started), "path", w.path, "records", w.dir.Len(), "size", size)
	return nil
}

// Close abandons the archive if it wasn't finalized: <path>.tmp
// is deleted and <path> is not touched. After Finalize() it's a no-op.
// Can be called multiple times
func (w *Writer) Close() error {
	if w.state == stateFinalized || w.state == stateClosed {
		return nil
	}
	w.f.RemoveIfNotClosed()
	w.state = stateClosed
	log.IfErrf(w.err, "kpdb: abandoned '%s' after error: %s", w.f.TmpPath(), w.err)
	return nil
}
