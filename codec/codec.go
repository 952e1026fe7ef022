// Package codec defines how values are turned into bytes and back
// when stored in a kpdb archive.
//
// A Codec is passed explicitly to kpdb.Write and kpdb.Read. Provided codecs:
//
//   - [Bytes] stores []byte as is
//   - [String] stores a string as UTF-8 bytes
//   - [CBOR] stores any value as deterministic CBOR
//   - [Func] adapts a pair of functions, for hand-written layouts
package codec

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrDecode is wrapped by errors returned from Decode
var ErrDecode = errors.New("codec: decode failed")

// Codec converts values of type T to bytes and back
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(d []byte) (T, error)
}

type bytesCodec struct{}

func (bytesCodec) Encode(v []byte) ([]byte, error) {
	return v, nil
}

func (bytesCodec) Decode(d []byte) ([]byte, error) {
	return append([]byte{}, d...), nil
}

// Bytes stores []byte without changes
var Bytes Codec[[]byte] = bytesCodec{}

type stringCodec struct{}

func (stringCodec) Encode(v string) ([]byte, error) {
	return []byte(v), nil
}

func (stringCodec) Decode(d []byte) (string, error) {
	if !utf8.Valid(d) {
		return "", fmt.Errorf("%w: string is not valid utf-8", ErrDecode)
	}
	return string(d), nil
}

// String stores a string as UTF-8 bytes
var String Codec[string] = stringCodec{}

type funcCodec[T any] struct {
	enc func(T) ([]byte, error)
	dec func([]byte) (T, error)
}

func (c funcCodec[T]) Encode(v T) ([]byte, error) {
	return c.enc(v)
}

func (c funcCodec[T]) Decode(d []byte) (T, error) {
	v, err := c.dec(d)
	if err != nil && !errors.Is(err, ErrDecode) {
		err = fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, err
}

// Func returns a codec that uses enc and dec.
// Errors returned by dec are wrapped with ErrDecode
func Func[T any](enc func(T) ([]byte, error), dec func([]byte) (T, error)) Codec[T] {
	return funcCodec[T]{
		enc: enc,
		dec: dec,
	}
}
