package kpdb

// FileRecord is a single record: data, its metadata and optional preview.
// It only exists in memory. In the archive each part is stored separately
// and located via FileMetadata
type FileRecord struct {
	Data     []byte
	Metadata Metadata
	// nil if there's no preview
	Preview *Preview
}

// NewFileRecord creates a record with data and metadata and no preview
func NewFileRecord(data []byte, meta Metadata) *FileRecord {
	return &FileRecord{
		Data:     data,
		Metadata: meta,
	}
}
