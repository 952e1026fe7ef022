package kpdb

import "fmt"

// Options configure Writer and Reader
type Options struct {
	// Key for computing authentication tags. Required for writing
	// and for reading with Verify
	Key Key

	// if true, Reader re-computes checksum and authentication tag
	// of every record it reads and compares with stored values
	Verify bool

	// size of reserved space after the header.
	// 0 means DefaultPaddingSize
	PaddingSize uint64
}

func (o *Options) paddingSize() uint64 {
	if o == nil || o.PaddingSize == 0 {
		return DefaultPaddingSize
	}
	return o.PaddingSize
}

func (o *Options) validateForWrite() error {
	if o == nil || len(o.Key) == 0 {
		return fmt.Errorf("%w: writing requires Options.Key", ErrNoKey)
	}
	if o.PaddingSize > MaxPaddingSize {
		return fmt.Errorf("%w: padding size %d is bigger than %d", ErrUsage, o.PaddingSize, MaxPaddingSize)
	}
	return nil
}

func (o *Options) validateForRead() error {
	if o != nil && o.Verify && len(o.Key) == 0 {
		return fmt.Errorf("%w: Options.Verify requires Options.Key", ErrNoKey)
	}
	return nil
}
