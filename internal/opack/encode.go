package opack

import "math"

// Pack encodes v as an OPACK document. v must be built from nil, bool,
// an unsigned integer type (uint/uint8/uint16/uint32/uint64/int when
// non-negative), float32, float64, ForcedFloat64, string, []byte, UUID,
// []interface{}, or *Map.
func Pack(v interface{}) []byte {
	e := &encoder{}
	e.encode(v)
	return e.out
}

// encoder holds the back-reference pool for a single Pack call. The
// pool records the literal encoded bytes of every non-trivial value in
// the order each was first emitted; containers reserve their slot
// before their children are encoded (so a container's own bytes are
// never a valid back-reference target, but it still occupies an index),
// matching the wire examples in the format's test vectors.
type encoder struct {
	out  []byte
	pool [][]byte // nil entry = a reserved, never-matchable container slot
}

func (e *encoder) encode(v interface{}) {
	switch val := v.(type) {
	case nil:
		e.out = append(e.out, 0x04)
	case bool:
		if val {
			e.out = append(e.out, 0x01)
		} else {
			e.out = append(e.out, 0x02)
		}
	case UUID:
		e.emitPooled(append([]byte{0x05}, val[:]...))
	case float32:
		e.emitPooled(encodeFloat32(val))
	case float64:
		e.emitPooled(encodeFloat64(val))
	case ForcedFloat64:
		e.emitPooled(encodeFloat64(float64(val)))
	case string:
		e.emitPooled(encodeString(val))
	case []byte:
		e.emitPooled(encodeBytes(val))
	case int:
		e.encodeUint(uint64(val))
	case int64:
		e.encodeUint(uint64(val))
	case uint:
		e.encodeUint(uint64(val))
	case uint8:
		e.encodeUint(uint64(val))
	case uint16:
		e.encodeUint(uint64(val))
	case uint32:
		e.encodeUint(uint64(val))
	case uint64:
		e.encodeUint(val)
	case []interface{}:
		e.encodeArray(val)
	case *Map:
		e.encodeMap(val)
	default:
		panic("opack: unsupported value type")
	}
}

func (e *encoder) encodeUint(v uint64) {
	if v <= 0x27 {
		// Trivial: small unsigned integer, never pooled.
		e.out = append(e.out, byte(v)+8)
		return
	}
	idx, width := fitWidth(intWidths, v)
	buf := make([]byte, 1+width)
	buf[0] = 0x30 + byte(idx)
	putLE(buf[1:], v, width)
	e.emitPooled(buf)
}

func (e *encoder) encodeArray(items []interface{}) {
	if len(items) == 0 {
		e.out = append(e.out, 0xD0)
		return
	}
	slot := e.reserve()
	if len(items) < 15 {
		e.out = append(e.out, 0xD0+byte(len(items)))
		for _, it := range items {
			e.encode(it)
		}
	} else {
		e.out = append(e.out, 0xDF)
		for _, it := range items {
			e.encode(it)
		}
		e.out = append(e.out, 0x03)
	}
	_ = slot
}

func (e *encoder) encodeMap(m *Map) {
	if m == nil || m.Len() == 0 {
		e.out = append(e.out, 0xE0)
		return
	}
	slot := e.reserve()
	n := m.Len()
	if n < 15 {
		e.out = append(e.out, 0xE0+byte(n))
		m.Range(func(k string, v interface{}) bool {
			e.encode(k)
			e.encode(v)
			return true
		})
	} else {
		e.out = append(e.out, 0xEF)
		m.Range(func(k string, v interface{}) bool {
			e.encode(k)
			e.encode(v)
			return true
		})
		e.out = append(e.out, 0x03)
	}
	_ = slot
}

// reserve allocates a pool slot for a container before its children are
// encoded. The slot is never a match candidate (its entry is nil).
func (e *encoder) reserve() int {
	idx := len(e.pool)
	e.pool = append(e.pool, nil)
	return idx
}

// emitPooled searches the pool for bytes identical to buf; if found it
// emits a back-reference instead, otherwise it appends buf to the pool
// and emits it literally.
func (e *encoder) emitPooled(buf []byte) {
	for i, prev := range e.pool {
		if prev == nil {
			continue
		}
		if bytesEqual(prev, buf) {
			e.out = append(e.out, encodeBackref(i)...)
			return
		}
	}
	e.pool = append(e.pool, buf)
	e.out = append(e.out, buf...)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func encodeBackref(idx int) []byte {
	if idx <= 0x20 {
		return []byte{0xA0 + byte(idx)}
	}
	i, width := fitWidth(refWidths, uint64(idx))
	buf := make([]byte, 1+width)
	buf[0] = 0xC1 + byte(i)
	putLE(buf[1:], uint64(idx), width)
	return buf
}

func encodeString(s string) []byte {
	n := len(s)
	if n <= 0x20 {
		buf := make([]byte, 1+n)
		buf[0] = 0x40 + byte(n)
		copy(buf[1:], s)
		return buf
	}
	idx, width := fitWidth(stringLenWidths, uint64(n))
	buf := make([]byte, 1+width+n)
	buf[0] = 0x61 + byte(idx)
	putLE(buf[1:1+width], uint64(n), width)
	copy(buf[1+width:], s)
	return buf
}

func encodeBytes(b []byte) []byte {
	n := len(b)
	if n <= 0x20 {
		buf := make([]byte, 1+n)
		buf[0] = 0x70 + byte(n)
		copy(buf[1:], b)
		return buf
	}
	idx, width := fitWidth(bytesLenWidths, uint64(n))
	buf := make([]byte, 1+width+n)
	buf[0] = 0x91 + byte(idx)
	putLE(buf[1:1+width], uint64(n), width)
	copy(buf[1+width:], b)
	return buf
}

func encodeFloat32(f float32) []byte {
	bits := math.Float32bits(f)
	buf := make([]byte, 5)
	buf[0] = 0x35
	putLE(buf[1:], uint64(bits), 4)
	return buf
}

func encodeFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	buf := make([]byte, 9)
	buf[0] = 0x36
	putLE(buf[1:], bits, 8)
	return buf
}

var (
	intWidths       = []int{1, 2, 4, 8}
	refWidths       = []int{1, 2, 4, 8}
	stringLenWidths = []int{1, 2, 3, 4}
	bytesLenWidths  = []int{1, 2, 4, 8}
)

// fitWidth returns the index into widths and the byte width of the
// smallest entry able to hold v.
func fitWidth(widths []int, v uint64) (int, int) {
	for i, w := range widths {
		if w >= 8 {
			return i, w
		}
		if v < uint64(1)<<(uint(w)*8) {
			return i, w
		}
	}
	last := widths[len(widths)-1]
	return len(widths) - 1, last
}

func putLE(buf []byte, v uint64, width int) {
	for i := 0; i < width; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}
