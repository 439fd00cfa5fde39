// Package xmlmap decodes XML documents into ordered key/value trees.
//
// Attributes are stored under keys prefixed with "@", element names keep the
// namespace prefix they were written with, and repeated sibling elements are
// collected into a list. A Map never changes after Decode returns it.
package xmlmap

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// TextKey holds the character data of an element that also carries
// attributes or child elements.
const TextKey = "#text"

// Map is an insertion-ordered mapping. Values are string, *Map, []any or nil.
// The zero value is an empty map.
type Map struct {
	keys   []string
	values map[string]any
}

func newMap() *Map {
	return &Map{values: make(map[string]any)}
}

// add appends v under key. A second value for the same key turns the entry
// into a list; further values are appended to it.
func (m *Map) add(key string, v any) {
	existing, ok := m.values[key]
	if !ok {
		m.keys = append(m.keys, key)
		m.values[key] = v
		return
	}
	if list, isList := existing.([]any); isList {
		m.values[key] = append(list, v)
		return
	}
	m.values[key] = []any{existing, v}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in document order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Get returns the raw value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// String returns the value under key when it is character data. For an
// element with attributes the #text entry is returned instead.
func (m *Map) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case *Map:
		return t.String(TextKey)
	}
	return "", false
}

// Map returns the nested mapping under key.
func (m *Map) Map(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case *Map:
		return t, true
	case nil:
		return &Map{}, true
	}
	return nil, false
}

// List returns the values under key as a list, wrapping a single value in a
// one-element list. A missing key yields nil.
func (m *Map) List(key string) []any {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	if list, isList := v.([]any); isList {
		out := make([]any, len(list))
		copy(out, list)
		return out
	}
	return []any{v}
}

// Maps is List restricted to nested mappings. Empty elements count as empty
// mappings; character data entries are skipped.
func (m *Map) Maps(key string) []*Map {
	var out []*Map
	for _, v := range m.List(key) {
		switch t := v.(type) {
		case *Map:
			out = append(out, t)
		case nil:
			out = append(out, &Map{})
		}
	}
	return out
}

// MarshalJSON renders the map as a JSON object with keys in document order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
