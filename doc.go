/*
Package kpdb implements a single-file, append-only archive of records.

Each record has data (opaque bytes), key / value metadata and
an optional preview (e.g. a thumbnail). A central directory at the end
of the file has offsets and sizes of every part of every record, so any
record can be read directly, by index.

# File layout

All integers are little-endian.

	offset                  size              contents
	0                       39                header: magic "KPDB", version (3 x u8),
	                                          timestamp, directory offset, directory size,
	                                          padding size (u64 each)
	39                      padding size      reserved, zero-filled
	39 + padding size       variable          records: metadata, data, optional preview
	directory offset        directory size    central directory

# Writing

Writer writes to <path>.tmp and Finalize() renames it to <path>, so <path>
is never partially written.

	w, err := kpdb.NewWriter("foo.kpdb", &kpdb.Options{Key: key})
	if err != nil {
		return err
	}
	defer w.Close()
	err = w.WriteHeader()
	...
	err = w.WriteFileRecord(kpdb.NewFileRecord(data, kpdb.NewMetadata("Type", "png")))
	...
	err = w.Finalize()

# Integrity

Each record's data is tagged with CRC-32 (corruption) and HMAC-SHA256
(tampering). The key is provided in Options and must come from configuration.
With Options.Verify, Reader checks both on every read.

# Higher level API

Archive binds a Writer or a Reader. Write and Read encode / decode values
with an explicit codec.Codec.
*/
package kpdb
