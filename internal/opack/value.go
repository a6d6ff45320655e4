// Package opack implements Apple's OPACK tagged binary serialization:
// a self-describing format where the first byte of every encoded value
// determines its type, plus an encoded-form back-reference pool that
// deduplicates repeated values within a single document.
//
// Grounded on the encode/decode call shape used against
// github.com/danielpaulus/go-ios's opack package (see the pairing
// handshake in the go-ios tunnel-service reference file), generalized
// here to the ordered-map and back-reference guarantees this module's
// wire format requires.
package opack

import "fmt"

// UUID is a 16-byte OPACK UUID literal (tag 0x05). It is a distinct Go
// type from []byte so callers and the codec can tell a UUID value apart
// from an equal-length byte string.
type UUID [16]byte

func (u UUID) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}

// ForcedFloat64 pins a numeric field to encode as OPACK tag 0x36
// (float64) even when its value is integral. Some peers distinguish an
// integer-valued float from a true integer on certain fields (notably
// the touch-surface width/height); wrap those values in ForcedFloat64
// instead of a plain float64/int so the encoder never takes the
// small-integer shortcut for them.
type ForcedFloat64 float64

// Map is an insertion-ordered string-keyed map of OPACK values. Apple's
// peer validators are order-sensitive on nested identity dictionaries,
// so a plain Go map (unordered) cannot represent OPACK maps faithfully.
type Map struct {
	keys []string
	vals map[string]interface{}
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{vals: make(map[string]interface{})}
}

// Set inserts or updates key. Updating an existing key preserves its
// original position; inserting a new key appends it to the end.
func (m *Map) Set(key string, value interface{}) *Map {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
	return m
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (interface{}, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the map's keys in insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	return len(m.keys)
}

// Range calls fn for each entry in insertion order, stopping early if
// fn returns false.
func (m *Map) Range(fn func(key string, value interface{}) bool) {
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Equal reports whether two maps have the same keys, in the same
// order, with structurally equal values.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k {
			return false
		}
		if !valuesEqual(m.vals[k], other.vals[k]) {
			return false
		}
	}
	return true
}
