package kpdb

import "errors"

var (
	// ErrFormat is returned when bytes read from an archive can't be decoded:
	// bad magic, unsupported version, truncated or inconsistent structures
	ErrFormat = errors.New("kpdb: invalid format")

	// ErrRange is returned when a record index is outside of [0, Len())
	ErrRange = errors.New("kpdb: index out of range")

	// ErrMode is returned when writing to an archive opened for reading
	// or reading from an archive created for writing
	ErrMode = errors.New("kpdb: wrong mode")

	// ErrUsage is returned when Writer methods are called out of order
	// or with a record that can't be stored
	ErrUsage = errors.New("kpdb: invalid usage")

	// ErrMismatch is returned when verification of a record's checksum or
	// authentication tag fails
	ErrMismatch = errors.New("kpdb: integrity check failed")

	// ErrNoKey is returned when an authentication key is needed but
	// wasn't provided
	ErrNoKey = errors.New("kpdb: no authentication key")
)
