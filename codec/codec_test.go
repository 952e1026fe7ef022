package codec

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/alecthomas/assert"
)

type point struct {
	X    int    `cbor:"x"`
	Y    int    `cbor:"y"`
	Name string `cbor:"name"`
}

func TestBytes(t *testing.T) {
	d := []byte{1, 2, 3, 4, 5}
	enc, err := Bytes.Encode(d)
	assert.NoError(t, err)
	assert.Equal(t, d, enc)

	dec, err := Bytes.Decode(enc)
	assert.NoError(t, err)
	assert.Equal(t, d, dec)
	// decoded value doesn't alias the input
	enc[0] = 9
	assert.Equal(t, byte(1), dec[0])
}

func TestString(t *testing.T) {
	enc, err := String.Encode("Hello")
	assert.NoError(t, err)
	assert.Equal(t, []byte("Hello"), enc)
	s, err := String.Decode(enc)
	assert.NoError(t, err)
	assert.Equal(t, "Hello", s)

	_, err = String.Decode([]byte{0xff, 0xfe})
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestCBOR(t *testing.T) {
	c := CBOR[point]()
	p := point{X: 3, Y: -4, Name: "p1"}
	d, err := c.Encode(p)
	assert.NoError(t, err)
	got, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, p, got)

	// deterministic: map order doesn't change the bytes
	cm := CBOR[map[string]int]()
	d1, err := cm.Encode(map[string]int{"a": 1, "b": 2, "c": 3})
	assert.NoError(t, err)
	d2, err := cm.Encode(map[string]int{"c": 3, "b": 2, "a": 1})
	assert.NoError(t, err)
	assert.Equal(t, d1, d2)

	_, err = c.Decode([]byte{0xff})
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestCBORAny(t *testing.T) {
	d, err := Marshal(map[string]any{"k": "v"})
	assert.NoError(t, err)
	v, err := CBOR[any]().Decode(d)
	assert.NoError(t, err)
	m, ok := v.(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "v", m["k"])
}

func TestFunc(t *testing.T) {
	enc := func(v uint32) ([]byte, error) {
		return binary.LittleEndian.AppendUint32(nil, v), nil
	}
	dec := func(d []byte) (uint32, error) {
		if len(d) != 4 {
			return 0, errors.New("need 4 bytes")
		}
		return binary.LittleEndian.Uint32(d), nil
	}
	c := Func(enc, dec)
	d, err := c.Encode(42)
	assert.NoError(t, err)
	v, err := c.Decode(d)
	assert.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	_, err = c.Decode([]byte{1})
	assert.True(t, errors.Is(err, ErrDecode))
}
