package codec

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/kjk/kpdb/u"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length items.
// The same value always produces the same bytes
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	u.Must(err)

	decMode, err = cbor.DecOptions{
		// decode maps into map[string]any instead of map[any]any
		// when the target is any
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	u.Must(err)
}

// Marshal encodes v as deterministic CBOR
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

type cborCodec[T any] struct{}

func (cborCodec[T]) Encode(v T) ([]byte, error) {
	return Marshal(v)
}

func (cborCodec[T]) Decode(d []byte) (T, error) {
	var v T
	if err := Unmarshal(d, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, nil
}

// CBOR returns a codec that stores values of type T as CBOR.
// It works for any type that fxamacker/cbor can encode: structs
// (use `cbor:"name"` tags), maps, slices and basic types
func CBOR[T any]() Codec[T] {
	return cborCodec[T]{}
}
