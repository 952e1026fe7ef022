package kpdb

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kjk/kpdb/log"
)

// Reader reads records from a finalized archive.
//
// The header and central directory are read once, in OpenReader().
// Records are read with positioned reads (ReadAt) so a single Reader
// can be used from multiple goroutines.
type Reader struct {
	path   string
	f      *os.File
	size   int64
	header Header
	dir    *CentralDirectory
	key    Key
	verify bool
}

// OpenReader opens an archive, reads and validates the header
// and the central directory
func OpenReader(path string, opts *Options) (*Reader, error) {
	if err := opts.validateForRead(); err != nil {
		return nil, err
	}
	timeStart := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		path: path,
		f:    f,
	}
	if opts != nil {
		r.key = append(Key{}, opts.Key...)
		r.verify = opts.Verify
	}
	if err = r.load(); err != nil {
		f.Close()
		return nil, fmt.Errorf("opening '%s': %w", path, err)
	}
	log.Verbosef("kpdb: opened '%s', %d records, %s\n", path, r.dir.Len(), humanize.Bytes(uint64(r.size)))
	log.EventWithDuration("kpdb.open", time.Since(timeStart), "path", path, "records", r.dir.Len())
	return r, nil
}

func (r *Reader) load() error {
	st, err := r.f.Stat()
	if err != nil {
		return err
	}
	r.size = st.Size()
	if r.size < HeaderSize {
		return fmt.Errorf("%w: file is %d bytes, smaller than header (%d bytes)", ErrFormat, r.size, HeaderSize)
	}

	d, err := r.readSpan(0, HeaderSize)
	if err != nil {
		return err
	}
	if err = r.header.UnmarshalBinary(d); err != nil {
		return err
	}

	hdr := &r.header
	fileSize := uint64(r.size)
	if hdr.PaddingSize > fileSize {
		return fmt.Errorf("%w: padding size %d is bigger than file size %d", ErrFormat, hdr.PaddingSize, fileSize)
	}
	if err = checkSpan("central directory", hdr.CentralDirectoryOffset, hdr.CentralDirectorySize, hdr.dataStart(), fileSize); err != nil {
		return err
	}

	d, err = r.readSpan(hdr.CentralDirectoryOffset, hdr.CentralDirectorySize)
	if err != nil {
		return err
	}
	r.dir, err = DecodeCentralDirectory(d)
	if err != nil {
		return err
	}
	return r.dir.ValidateSpans(hdr.dataStart(), hdr.CentralDirectoryOffset)
}

// readSpan reads size bytes at offset off
func (r *Reader) readSpan(off, size uint64) ([]byte, error) {
	if r.f == nil {
		return nil, os.ErrClosed
	}
	if size > math.MaxInt || off > math.MaxInt64 {
		return nil, fmt.Errorf("%w: span [%d, +%d) is too big", ErrFormat, off, size)
	}
	d := make([]byte, int(size))
	_, err := r.f.ReadAt(d, int64(off))
	if err != nil {
		// ReadAt returns io.EOF if it read fewer bytes than asked for
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: truncated, can't read %d bytes at offset %d", ErrFormat, size, off)
		}
		return nil, err
	}
	return d, nil
}

// Path returns path of the archive
func (r *Reader) Path() string {
	return r.path
}

// Header returns a copy of the header
func (r *Reader) Header() Header {
	return r.header
}

// Len returns number of records
func (r *Reader) Len() int {
	return r.dir.Len()
}

// Files returns a copy of central directory entries
func (r *Reader) Files() []FileMetadata {
	return r.dir.Files()
}

// ReadData reads data of a record at index
func (r *Reader) ReadData(index int) ([]byte, error) {
	fm, err := r.dir.Get(index)
	if err != nil {
		return nil, err
	}
	d, err := r.readSpan(fm.Offset, fm.Size)
	if err != nil {
		return nil, err
	}
	if r.verify {
		if err = Verify(&fm, d, r.key); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ReadFileRecord reads metadata, data and preview of a record at index
func (r *Reader) ReadFileRecord(index int) (*FileRecord, error) {
	fm, err := r.dir.Get(index)
	if err != nil {
		return nil, err
	}

	d, err := r.readSpan(fm.MetadataOffset, fm.MetadataSize)
	if err != nil {
		return nil, err
	}
	meta, err := DecodeMetadata(d)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", index, err)
	}

	data, err := r.ReadData(index)
	if err != nil {
		return nil, err
	}

	rec := &FileRecord{
		Data:     data,
		Metadata: meta,
	}
	if fm.HasPreview {
		d, err = r.readSpan(fm.PreviewOffset, fm.PreviewSize)
		if err != nil {
			return nil, err
		}
		rec.Preview, err = DecodePreview(d)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", index, err)
		}
	}
	return rec, nil
}

// Close closes the archive file
func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
