package kpdb

import (
	"fmt"
	"math"
)

// FileMetadata describes where a record lives in the archive
// and its integrity tags
type FileMetadata struct {
	// Name is generated ("file_0", "file_1" etc.). Records are
	// addressed by index, not by name
	Name string

	// offset and size of record data
	Offset uint64
	Size   uint64

	// CRC-32 (IEEE) of data
	CRC uint32
	// HMAC-SHA256 of data
	MAC []byte

	MetadataOffset uint64
	MetadataSize   uint64

	// PreviewOffset and PreviewSize are only valid if HasPreview is true
	HasPreview    bool
	PreviewOffset uint64
	PreviewSize   uint64
}

// minimum size of serialized FileMetadata: empty name, empty mac, no preview
const minFileMetadataSize = 8 + 8 + 8 + 4 + 8 + 8 + 8 + 1 + 1

func (fm *FileMetadata) appendBinary(b []byte) []byte {
	b = appendString(b, fm.Name)
	b = appendU64(b, fm.Offset)
	b = appendU64(b, fm.Size)
	b = appendU32(b, fm.CRC)
	b = appendBytes(b, fm.MAC)
	b = appendU64(b, fm.MetadataOffset)
	b = appendU64(b, fm.MetadataSize)
	b = appendOptionU64(b, fm.PreviewOffset, fm.HasPreview)
	b = appendOptionU64(b, fm.PreviewSize, fm.HasPreview)
	return b
}

func (fm *FileMetadata) decode(r *decoder) {
	fm.Name = r.str()
	fm.Offset = r.u64()
	fm.Size = r.u64()
	fm.CRC = r.u32()
	mac := r.bytes()
	if r.err == nil && len(mac) != MACSize {
		r.fail("entry '%s': mac is %d bytes, expected %d", fm.Name, len(mac), MACSize)
	}
	fm.MAC = append([]byte{}, mac...)
	fm.MetadataOffset = r.u64()
	fm.MetadataSize = r.u64()
	previewOffset, hasOffset := r.optionU64()
	previewSize, hasSize := r.optionU64()
	if r.err == nil && hasOffset != hasSize {
		r.fail("entry '%s': preview offset and size must both be present or absent", fm.Name)
	}
	fm.HasPreview = hasOffset && hasSize
	fm.PreviewOffset = previewOffset
	fm.PreviewSize = previewSize
}

func checkSpan(what string, off, size, start, end uint64) error {
	if off < start || size > math.MaxUint64-off || off+size > end {
		return fmt.Errorf("%w: %s span [%d, +%d) outside of [%d, %d)", ErrFormat, what, off, size, start, end)
	}
	return nil
}

// validateSpans checks that all parts of the record are within [start, end)
func (fm *FileMetadata) validateSpans(start, end uint64) error {
	if err := checkSpan(fm.Name+" metadata", fm.MetadataOffset, fm.MetadataSize, start, end); err != nil {
		return err
	}
	if err := checkSpan(fm.Name+" data", fm.Offset, fm.Size, start, end); err != nil {
		return err
	}
	if fm.HasPreview {
		return checkSpan(fm.Name+" preview", fm.PreviewOffset, fm.PreviewSize, start, end)
	}
	return nil
}

// CentralDirectory lists records in the order they were written.
// Index in Files is the index of the record
type CentralDirectory struct {
	files []FileMetadata
}

// Len returns number of records
func (cd *CentralDirectory) Len() int {
	return len(cd.files)
}

// Files returns a copy of directory entries
func (cd *CentralDirectory) Files() []FileMetadata {
	return append([]FileMetadata{}, cd.files...)
}

// Get returns entry at index i
func (cd *CentralDirectory) Get(i int) (FileMetadata, error) {
	if i < 0 || i >= len(cd.files) {
		return FileMetadata{}, fmt.Errorf("%w: index %d, have %d records", ErrRange, i, len(cd.files))
	}
	return cd.files[i], nil
}

func (cd *CentralDirectory) add(fm FileMetadata) {
	cd.files = append(cd.files, fm)
}

// MarshalBinary serializes the directory as a count followed by entries
func (cd *CentralDirectory) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 8+len(cd.files)*(minFileMetadataSize+16+MACSize+16))
	b = appendU64(b, uint64(len(cd.files)))
	for i := range cd.files {
		b = cd.files[i].appendBinary(b)
	}
	return b, nil
}

func (cd *CentralDirectory) UnmarshalBinary(d []byte) error {
	r := newDecoder(d, "central directory")
	n := r.count(minFileMetadataSize)
	files := make([]FileMetadata, n)
	for i := 0; i < n && r.err == nil; i++ {
		files[i].decode(r)
	}
	if err := r.finish(); err != nil {
		return err
	}
	cd.files = files
	return nil
}

// ValidateSpans checks that every record's metadata, data and preview
// are within [start, end)
func (cd *CentralDirectory) ValidateSpans(start, end uint64) error {
	for i := range cd.files {
		if err := cd.files[i].validateSpans(start, end); err != nil {
			return err
		}
	}
	return nil
}

// DecodeCentralDirectory decodes the directory from d
func DecodeCentralDirectory(d []byte) (*CentralDirectory, error) {
	cd := &CentralDirectory{}
	if err := cd.UnmarshalBinary(d); err != nil {
		return nil, err
	}
	return cd, nil
}
