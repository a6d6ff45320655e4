// Package bplist implements the subset of Apple's binary property
// list format (bplist00) needed to read and write NSKeyedArchiver
// payloads for the text-input subsystem: null, bool, unsigned
// integer, float64, ASCII/UTF-16 string, byte string, UID reference,
// array and ordered dictionary objects.
package bplist

import (
	"encoding/binary"
	"math"
	"unicode/utf16"

	"atvremote/internal/atverr"
)

// UID is an NSKeyedArchiver object reference: a non-negative integer
// indexing into an archive's $objects table. It is a distinct Go type
// from an integer so the codec can tell a reference apart from a
// plain number with the same value.
type UID uint64

// Dict is an insertion-ordered string-keyed property list dictionary.
// NSKeyedArchiver payloads are order-sensitive on some class
// descriptors, so a plain Go map cannot stand in for one.
type Dict struct {
	keys []string
	vals map[string]interface{}
}

// NewDict returns an empty ordered dictionary.
func NewDict() *Dict {
	return &Dict{vals: make(map[string]interface{})}
}

// Set inserts or updates key, preserving original position on update.
func (d *Dict) Set(key string, value interface{}) *Dict {
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.vals[key] = value
	return d
}

// Get returns the value for key and whether it was present.
func (d *Dict) Get(key string) (interface{}, bool) {
	v, ok := d.vals[key]
	return v, ok
}

// Keys returns the dictionary's keys in insertion order.
func (d *Dict) Keys() []string { return d.keys }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Range calls fn for each entry in insertion order until fn returns
// false.
func (d *Dict) Range(fn func(key string, value interface{}) bool) {
	for _, k := range d.keys {
		if !fn(k, d.vals[k]) {
			return
		}
	}
}

const header = "bplist00"

// Marshal renders root (built from nil, bool, an unsigned integer
// type, float64, string, []byte, UID, []interface{}, or *Dict) as a
// binary property list.
func Marshal(root interface{}) ([]byte, error) {
	w := &writer{}
	w.flatten(root)
	return w.render(), nil
}

// Unmarshal parses a binary property list, returning a value built
// from the same set of Go types Marshal accepts.
func Unmarshal(data []byte) (interface{}, error) {
	r, err := newReader(data)
	if err != nil {
		return nil, err
	}
	return r.object(int(r.topObject))
}

// --- writer ---

type plNode struct {
	kind string // "null","bool","uint","real","data","string","uid","array","dict"
	raw  interface{}
	refs []int // array: element refs; dict: key refs then value refs
	n    int   // dict: number of entries (split point within refs)
}

type writer struct {
	nodes []plNode
}

func (w *writer) flatten(v interface{}) int {
	idx := len(w.nodes)
	switch val := v.(type) {
	case nil:
		w.nodes = append(w.nodes, plNode{kind: "null"})
	case bool:
		w.nodes = append(w.nodes, plNode{kind: "bool", raw: val})
	case UID:
		w.nodes = append(w.nodes, plNode{kind: "uid", raw: uint64(val)})
	case uint64:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: val})
	case uint:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: uint64(val)})
	case uint32:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: uint64(val)})
	case uint16:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: uint64(val)})
	case uint8:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: uint64(val)})
	case int:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: uint64(val)})
	case int64:
		w.nodes = append(w.nodes, plNode{kind: "uint", raw: uint64(val)})
	case float64:
		w.nodes = append(w.nodes, plNode{kind: "real", raw: val})
	case float32:
		w.nodes = append(w.nodes, plNode{kind: "real", raw: float64(val)})
	case string:
		w.nodes = append(w.nodes, plNode{kind: "string", raw: val})
	case []byte:
		w.nodes = append(w.nodes, plNode{kind: "data", raw: val})
	case []interface{}:
		w.nodes = append(w.nodes, plNode{kind: "array"})
		refs := make([]int, len(val))
		for i, item := range val {
			refs[i] = w.flatten(item)
		}
		w.nodes[idx].refs = refs
	case *Dict:
		w.nodes = append(w.nodes, plNode{kind: "dict"})
		n := val.Len()
		keys := val.Keys()
		keyRefs := make([]int, n)
		for i, k := range keys {
			keyRefs[i] = w.flatten(k)
		}
		valRefs := make([]int, n)
		for i, k := range keys {
			v, _ := val.Get(k)
			valRefs[i] = w.flatten(v)
		}
		w.nodes[idx].refs = append(keyRefs, valRefs...)
		w.nodes[idx].n = n
	default:
		panic("bplist: unsupported value type")
	}
	return idx
}

func (w *writer) render() []byte {
	refSize := widthFor(uint64(len(w.nodes)))
	var body []byte
	offsets := make([]uint64, len(w.nodes))
	for i, node := range w.nodes {
		offsets[i] = uint64(len(header)) + uint64(len(body))
		body = append(body, encodeNode(node, refSize)...)
	}
	offsetTableStart := uint64(len(header)) + uint64(len(body))
	offIntSize := widthFor(offsetTableStart)

	out := make([]byte, 0, len(header)+len(body)+len(offsets)*offIntSize+32)
	out = append(out, header...)
	out = append(out, body...)
	for _, off := range offsets {
		out = append(out, beBytes(off, offIntSize)...)
	}

	trailer := make([]byte, 32)
	trailer[6] = byte(offIntSize)
	trailer[7] = byte(refSize)
	binary.BigEndian.PutUint64(trailer[8:16], uint64(len(w.nodes)))
	binary.BigEndian.PutUint64(trailer[16:24], 0) // top object is always index 0
	binary.BigEndian.PutUint64(trailer[24:32], offsetTableStart)
	out = append(out, trailer...)
	return out
}

func encodeNode(n plNode, refSize int) []byte {
	switch n.kind {
	case "null":
		return []byte{0x00}
	case "bool":
		if n.raw.(bool) {
			return []byte{0x09}
		}
		return []byte{0x08}
	case "uid":
		return encodeUint(0x80, n.raw.(uint64), true)
	case "uint":
		return encodeUint(0x10, n.raw.(uint64), false)
	case "real":
		buf := make([]byte, 9)
		buf[0] = 0x23
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(n.raw.(float64)))
		return buf
	case "data":
		b := n.raw.([]byte)
		return append(encodeLenMarker(0x40, len(b)), b...)
	case "string":
		s := n.raw.(string)
		if isASCII(s) {
			return append(encodeLenMarker(0x50, len(s)), s...)
		}
		units := utf16.Encode([]rune(s))
		buf := encodeLenMarker(0x60, len(units))
		for _, u := range units {
			buf = append(buf, byte(u>>8), byte(u))
		}
		return buf
	case "array":
		buf := encodeLenMarker(0xA0, len(n.refs))
		for _, r := range n.refs {
			buf = append(buf, beBytes(uint64(r), refSize)...)
		}
		return buf
	case "dict":
		buf := encodeLenMarker(0xD0, n.n)
		for _, r := range n.refs {
			buf = append(buf, beBytes(uint64(r), refSize)...)
		}
		return buf
	default:
		panic("bplist: unknown node kind " + n.kind)
	}
}

// encodeUint renders an integer or UID object: a marker byte with the
// width exponent in its low nibble, followed by big-endian bytes.
// UID widths are the raw byte count minus one; integer widths are a
// power-of-two byte count (log2 in the low nibble).
func encodeUint(base byte, v uint64, isUID bool) []byte {
	width := widthFor(v)
	if isUID {
		return append([]byte{base | byte(width-1)}, beBytes(v, width)...)
	}
	exp := 0
	for w := width; w > 1; w >>= 1 {
		exp++
	}
	return append([]byte{base | byte(exp)}, beBytes(v, width)...)
}

// encodeLenMarker returns the marker byte(s) for a string/data/array/
// dict object: an inline count when it fits a nibble, otherwise the
// 0xF sentinel low nibble followed by an inline integer object
// encoding the count.
func encodeLenMarker(base byte, n int) []byte {
	if n < 15 {
		return []byte{base | byte(n)}
	}
	return append([]byte{base | 0x0F}, encodeUint(0x10, uint64(n), false)...)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func widthFor(v uint64) int {
	switch {
	case v <= 0xFF:
		return 1
	case v <= 0xFFFF:
		return 2
	case v <= 0xFFFFFFFF:
		return 4
	default:
		return 8
	}
}

func beBytes(v uint64, width int) []byte {
	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		buf[width-1-i] = byte(v >> (8 * uint(i)))
	}
	return buf
}

// --- reader ---

type reader struct {
	buf        []byte
	offIntSize int
	refSize    int
	numObjects uint64
	topObject  uint64
	offsets    []uint64
	cache      map[int]interface{}
}

func newReader(data []byte) (*reader, error) {
	if len(data) < len(header)+32 {
		return nil, atverr.Truncated("bplist", "file too short")
	}
	if string(data[:len(header)]) != header {
		return nil, atverr.UnknownTag("bplist", data[0])
	}
	trailer := data[len(data)-32:]
	offIntSize := int(trailer[6])
	refSize := int(trailer[7])
	numObjects := binary.BigEndian.Uint64(trailer[8:16])
	topObject := binary.BigEndian.Uint64(trailer[16:24])
	offsetTableOffset := binary.BigEndian.Uint64(trailer[24:32])

	r := &reader{
		buf:        data,
		offIntSize: offIntSize,
		refSize:    refSize,
		numObjects: numObjects,
		topObject:  topObject,
		cache:      make(map[int]interface{}),
	}
	pos := offsetTableOffset
	for i := uint64(0); i < numObjects; i++ {
		if pos+uint64(offIntSize) > uint64(len(data)) {
			return nil, atverr.Truncated("bplist", "offset table")
		}
		r.offsets = append(r.offsets, beUint(data[pos:pos+uint64(offIntSize)]))
		pos += uint64(offIntSize)
	}
	return r, nil
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func (r *reader) object(idx int) (interface{}, error) {
	if v, ok := r.cache[idx]; ok {
		return v, nil
	}
	if idx < 0 || idx >= len(r.offsets) {
		return nil, atverr.BadBackref("bplist", idx)
	}
	pos := int(r.offsets[idx])
	if pos >= len(r.buf) {
		return nil, atverr.Truncated("bplist", "object offset")
	}
	marker := r.buf[pos]
	kind := marker & 0xF0

	switch marker {
	case 0x00:
		return nil, nil
	case 0x08:
		return false, nil
	case 0x09:
		return true, nil
	}

	switch kind {
	case 0x10:
		width := 1 << (marker & 0x0F)
		v, err := r.readUint(pos+1, width)
		if err != nil {
			return nil, err
		}
		r.cache[idx] = v
		return v, nil
	case 0x20:
		width := 1 << (marker & 0x0F)
		v, err := r.readUint(pos+1, width)
		if err != nil {
			return nil, err
		}
		var f float64
		if width == 4 {
			f = float64(math.Float32frombits(uint32(v)))
		} else {
			f = math.Float64frombits(v)
		}
		r.cache[idx] = f
		return f, nil
	case 0x40:
		n, body, err := r.readCountedBody(pos)
		if err != nil {
			return nil, err
		}
		b := append([]byte(nil), body[:n]...)
		r.cache[idx] = b
		return b, nil
	case 0x50:
		n, body, err := r.readCountedBody(pos)
		if err != nil {
			return nil, err
		}
		s := string(body[:n])
		r.cache[idx] = s
		return s, nil
	case 0x60:
		n, body, err := r.readCountedBodyUnits(pos, 2)
		if err != nil {
			return nil, err
		}
		units := make([]uint16, n)
		for i := 0; i < n; i++ {
			units[i] = uint16(body[2*i])<<8 | uint16(body[2*i+1])
		}
		s := string(utf16.Decode(units))
		r.cache[idx] = s
		return s, nil
	case 0x80:
		width := int(marker&0x0F) + 1
		v, err := r.readUint(pos+1, width)
		if err != nil {
			return nil, err
		}
		u := UID(v)
		r.cache[idx] = u
		return u, nil
	case 0xA0:
		n, hdrLen, err := r.readCount(pos)
		if err != nil {
			return nil, err
		}
		refStart := pos + hdrLen
		items := make([]interface{}, n)
		for i := 0; i < n; i++ {
			ref, err := r.readUint(refStart+i*r.refSize, r.refSize)
			if err != nil {
				return nil, err
			}
			v, err := r.object(int(ref))
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		r.cache[idx] = items
		return items, nil
	case 0xD0:
		n, hdrLen, err := r.readCount(pos)
		if err != nil {
			return nil, err
		}
		refStart := pos + hdrLen
		d := NewDict()
		for i := 0; i < n; i++ {
			keyRef, err := r.readUint(refStart+i*r.refSize, r.refSize)
			if err != nil {
				return nil, err
			}
			valRef, err := r.readUint(refStart+(n+i)*r.refSize, r.refSize)
			if err != nil {
				return nil, err
			}
			kv, err := r.object(int(keyRef))
			if err != nil {
				return nil, err
			}
			vv, err := r.object(int(valRef))
			if err != nil {
				return nil, err
			}
			ks, ok := kv.(string)
			if !ok {
				return nil, atverr.Protocol("bplist: dict key is not a string")
			}
			d.Set(ks, vv)
		}
		r.cache[idx] = d
		return d, nil
	default:
		return nil, atverr.UnknownTag("bplist", marker)
	}
}

func (r *reader) readUint(pos, width int) (uint64, error) {
	if pos < 0 || pos+width > len(r.buf) {
		return 0, atverr.Truncated("bplist", "integer value")
	}
	return beUint(r.buf[pos : pos+width]), nil
}

// readCount returns the element/entry count for a sized object at pos
// and the total header length (marker byte plus any inline size
// integer) consumed before the ref/byte data begins.
func (r *reader) readCount(pos int) (count int, hdrLen int, err error) {
	marker := r.buf[pos]
	low := marker & 0x0F
	if low != 0x0F {
		return int(low), 1, nil
	}
	if pos+1 >= len(r.buf) {
		return 0, 0, atverr.Truncated("bplist", "size integer")
	}
	sizeMarker := r.buf[pos+1]
	width := 1 << (sizeMarker & 0x0F)
	n, err := r.readUint(pos+2, width)
	if err != nil {
		return 0, 0, err
	}
	return int(n), 2 + width, nil
}

// readCountedBody returns the element count and the raw byte slice
// beginning at the first data byte, for string/data objects.
func (r *reader) readCountedBody(pos int) (int, []byte, error) {
	n, hdrLen, err := r.readCount(pos)
	if err != nil {
		return 0, nil, err
	}
	start := pos + hdrLen
	if start+n > len(r.buf) {
		return 0, nil, atverr.Truncated("bplist", "string/data body")
	}
	return n, r.buf[start:], nil
}

func (r *reader) readCountedBodyUnits(pos, unitSize int) (int, []byte, error) {
	n, hdrLen, err := r.readCount(pos)
	if err != nil {
		return 0, nil, err
	}
	start := pos + hdrLen
	if start+n*unitSize > len(r.buf) {
		return 0, nil, atverr.Truncated("bplist", "unicode string body")
	}
	return n, r.buf[start:], nil
}
