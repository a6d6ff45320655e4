package opack

import (
	"math"

	"atvremote/internal/atverr"
)

// reserved marks a pool slot occupied by a container whose own bytes
// can never be the target of a back-reference.
type reserved struct{}

// Unpack decodes a single OPACK document from data, returning a value
// built from the same set of Go types Pack accepts (uint64 for all
// decoded integers, float32/float64, string, []byte, UUID,
// []interface{}, *Map, bool, nil).
func Unpack(data []byte) (interface{}, error) {
	d := &decoder{buf: data}
	v, err := d.decode()
	if err != nil {
		return nil, err
	}
	return v, nil
}

type decoder struct {
	buf  []byte
	pos  int
	pool []interface{}
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.buf) {
		return atverr.Truncated("opack", "unexpected end of buffer")
	}
	return nil
}

func (d *decoder) readByte() (byte, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readUint(width int) (uint64, error) {
	b, err := d.readBytes(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v, nil
}

func (d *decoder) decode() (interface{}, error) {
	tag, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch {
	case tag == 0x01:
		return true, nil
	case tag == 0x02:
		return false, nil
	case tag == 0x04:
		return nil, nil
	case tag == 0x05:
		b, err := d.readBytes(16)
		if err != nil {
			return nil, err
		}
		var u UUID
		copy(u[:], b)
		d.pool = append(d.pool, u)
		return u, nil
	case tag == 0x06:
		v, err := d.readUint(8)
		if err != nil {
			return nil, err
		}
		d.pool = append(d.pool, v)
		return v, nil
	case tag >= 0x08 && tag <= 0x2F:
		return uint64(tag - 8), nil
	case tag >= 0x30 && tag <= 0x33:
		width := intWidths[tag-0x30]
		v, err := d.readUint(width)
		if err != nil {
			return nil, err
		}
		d.pool = append(d.pool, v)
		return v, nil
	case tag == 0x35:
		v, err := d.readUint(4)
		if err != nil {
			return nil, err
		}
		f := math.Float32frombits(uint32(v))
		d.pool = append(d.pool, f)
		return f, nil
	case tag == 0x36:
		v, err := d.readUint(8)
		if err != nil {
			return nil, err
		}
		f := math.Float64frombits(v)
		d.pool = append(d.pool, f)
		return f, nil
	case tag >= 0x40 && tag <= 0x60:
		n := int(tag - 0x40)
		b, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		s := string(b)
		d.pool = append(d.pool, s)
		return s, nil
	case tag >= 0x61 && tag <= 0x64:
		width := stringLenWidths[tag-0x61]
		n, err := d.readUint(width)
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		s := string(b)
		d.pool = append(d.pool, s)
		return s, nil
	case tag >= 0x70 && tag <= 0x90:
		n := int(tag - 0x70)
		b, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		bs := append([]byte(nil), b...)
		d.pool = append(d.pool, bs)
		return bs, nil
	case tag >= 0x91 && tag <= 0x94:
		width := bytesLenWidths[tag-0x91]
		n, err := d.readUint(width)
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		bs := append([]byte(nil), b...)
		d.pool = append(d.pool, bs)
		return bs, nil
	case tag == 0xD0:
		return []interface{}{}, nil
	case tag >= 0xD1 && tag <= 0xDE:
		count := int(tag - 0xD0)
		d.pool = append(d.pool, reserved{})
		items := make([]interface{}, 0, count)
		for i := 0; i < count; i++ {
			v, err := d.decode()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case tag == 0xDF:
		d.pool = append(d.pool, reserved{})
		items := []interface{}{}
		for {
			if err := d.need(1); err != nil {
				return nil, err
			}
			if d.buf[d.pos] == 0x03 {
				d.pos++
				break
			}
			v, err := d.decode()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case tag == 0xE0:
		return NewMap(), nil
	case tag >= 0xE1 && tag <= 0xEE:
		count := int(tag - 0xE0)
		d.pool = append(d.pool, reserved{})
		m := NewMap()
		for i := 0; i < count; i++ {
			k, err := d.decode()
			if err != nil {
				return nil, err
			}
			v, err := d.decode()
			if err != nil {
				return nil, err
			}
			ks, ok := k.(string)
			if !ok {
				return nil, atverr.Protocol("opack map key is not a string")
			}
			m.Set(ks, v)
		}
		return m, nil
	case tag == 0xEF:
		d.pool = append(d.pool, reserved{})
		m := NewMap()
		for {
			if err := d.need(1); err != nil {
				return nil, err
			}
			if d.buf[d.pos] == 0x03 {
				d.pos++
				break
			}
			k, err := d.decode()
			if err != nil {
				return nil, err
			}
			v, err := d.decode()
			if err != nil {
				return nil, err
			}
			ks, ok := k.(string)
			if !ok {
				return nil, atverr.Protocol("opack map key is not a string")
			}
			m.Set(ks, v)
		}
		return m, nil
	case tag >= 0xA0 && tag <= 0xC0:
		idx := int(tag - 0xA0)
		return d.resolveBackref(idx)
	case tag >= 0xC1 && tag <= 0xC4:
		width := refWidths[tag-0xC1]
		n, err := d.readUint(width)
		if err != nil {
			return nil, err
		}
		return d.resolveBackref(int(n))
	default:
		return nil, atverr.UnknownTag("opack", tag)
	}
}

func (d *decoder) resolveBackref(idx int) (interface{}, error) {
	if idx < 0 || idx >= len(d.pool) {
		return nil, atverr.BadBackref("opack", idx)
	}
	v := d.pool[idx]
	if _, isReserved := v.(reserved); isReserved {
		return nil, atverr.BadBackref("opack", idx)
	}
	return v, nil
}
