package kpdb

import (
	"fmt"
	"unicode/utf8"
)

// KV represents single key / value meta data entry
type KV struct {
	Key   string
	Value string
}

// Metadata is a list of key / value pairs with unique keys.
// Order of entries is preserved so that encoding is deterministic
// but it has no meaning
type Metadata struct {
	Meta []KV
}

// NewMetadata creates metadata from key / value pairs
// e.g. NewMetadata("Type", "image", "Name", "foo.png")
// Odd trailing key is ignored
func NewMetadata(kv ...string) Metadata {
	var m Metadata
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

// Reset resets Metadata for re-use
func (m *Metadata) Reset() {
	m.Meta = m.Meta[:0]
}

// Size returns number of metadata entries
func (m *Metadata) Size() int {
	return len(m.Meta)
}

// Get returns value for a given key
func (m *Metadata) Get(key string) (string, bool) {
	for _, kv := range m.Meta {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Set sets a value for a given key. Returns true if new value was added,
// false value was updated
func (m *Metadata) Set(k, v string) bool {
	for i, kv := range m.Meta {
		if kv.Key == k {
			m.Meta[i].Value = v
			return false
		}
	}
	m.Meta = append(m.Meta, KV{Key: k, Value: v})
	return true
}

// Delete removes a key. Returns false if there was no such key
func (m *Metadata) Delete(k string) bool {
	for i, kv := range m.Meta {
		if kv.Key == k {
			m.Meta = append(m.Meta[:i], m.Meta[i+1:]...)
			return true
		}
	}
	return false
}

// Map returns metadata as a map
func (m *Metadata) Map() map[string]string {
	res := make(map[string]string, len(m.Meta))
	for _, kv := range m.Meta {
		res[kv.Key] = kv.Value
	}
	return res
}

// Validate checks that keys are unique and that keys and values
// are valid UTF-8, which is what UnmarshalBinary accepts
func (m *Metadata) Validate() error {
	seen := make(map[string]bool, len(m.Meta))
	for i, kv := range m.Meta {
		if !utf8.ValidString(kv.Key) {
			return fmt.Errorf("%w: metadata: key %d is not valid utf-8", ErrUsage, i)
		}
		if !utf8.ValidString(kv.Value) {
			return fmt.Errorf("%w: metadata: value of '%s' is not valid utf-8", ErrUsage, kv.Key)
		}
		if seen[kv.Key] {
			return fmt.Errorf("%w: metadata: duplicate key '%s'", ErrUsage, kv.Key)
		}
		seen[kv.Key] = true
	}
	return nil
}

// MarshalBinary serializes metadata as count-prefixed,
// length-prefixed key / value pairs
func (m *Metadata) MarshalBinary() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	n := 8
	for _, kv := range m.Meta {
		n += 16 + len(kv.Key) + len(kv.Value)
	}
	b := make([]byte, 0, n)
	b = appendU64(b, uint64(len(m.Meta)))
	for _, kv := range m.Meta {
		b = appendString(b, kv.Key)
		b = appendString(b, kv.Value)
	}
	return b, nil
}

// UnmarshalBinary decodes metadata. Duplicate keys are a format error
func (m *Metadata) UnmarshalBinary(d []byte) error {
	r := newDecoder(d, "metadata")
	n := r.count(16)
	var res Metadata
	for i := 0; i < n && r.err == nil; i++ {
		k := r.str()
		v := r.str()
		if r.err != nil {
			break
		}
		if !res.Set(k, v) {
			r.fail("duplicate key '%s'", k)
		}
	}
	if err := r.finish(); err != nil {
		return err
	}
	*m = res
	return nil
}

// DecodeMetadata decodes metadata block from d
func DecodeMetadata(d []byte) (Metadata, error) {
	var m Metadata
	err := m.UnmarshalBinary(d)
	return m, err
}

// Preview is an optional, small representation of a record
// e.g. a thumbnail of an image
type Preview struct {
	MimeType string
	Data     []byte
}

// MarshalBinary serializes preview as length-prefixed mime type
// followed by length-prefixed data
func (p *Preview) MarshalBinary() ([]byte, error) {
	if !utf8.ValidString(p.MimeType) {
		return nil, fmt.Errorf("%w: preview: mime type is not valid utf-8", ErrUsage)
	}
	b := make([]byte, 0, 16+len(p.MimeType)+len(p.Data))
	b = appendString(b, p.MimeType)
	b = appendBytes(b, p.Data)
	return b, nil
}

func (p *Preview) UnmarshalBinary(d []byte) error {
	r := newDecoder(d, "preview")
	mime := r.str()
	data := r.bytes()
	if err := r.finish(); err != nil {
		return err
	}
	p.MimeType = mime
	p.Data = append([]byte{}, data...)
	return nil
}

// DecodePreview decodes preview block from d
func DecodePreview(d []byte) (*Preview, error) {
	p := &Preview{}
	if err := p.UnmarshalBinary(d); err != nil {
		return nil, err
	}
	return p, nil
}
