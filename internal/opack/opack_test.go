package opack

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackSmallInt(t *testing.T) {
	assert.Equal(t, []byte{0x0F}, Pack(uint64(7)))
	assert.Equal(t, []byte{0x08}, Pack(uint64(0)))
	assert.Equal(t, []byte{0x30, 0x28}, Pack(uint64(40)))
}

func TestPackBackref(t *testing.T) {
	got := Pack([]interface{}{"abc", "abc"})
	want := append([]byte{0xD2, 0x43}, []byte("abc")...)
	want = append(want, 0xA1)
	assert.Equal(t, want, got)
}

func TestIntWidths(t *testing.T) {
	// 0x27 is the last trivial small int.
	assert.Equal(t, byte(0x2F), Pack(uint64(0x27))[0])
	// 0x28 is the first value requiring the 1-byte extended form.
	got := Pack(uint64(0x28))
	assert.Equal(t, byte(0x30), got[0])
	assert.Equal(t, byte(0x28), got[1])

	// 0xFF fits in 1 byte, 0x100 needs 2.
	got = Pack(uint64(0xFF))
	assert.Equal(t, byte(0x30), got[0])
	got = Pack(uint64(0x100))
	assert.Equal(t, byte(0x31), got[0])

	// 0xFFFF fits in 2 bytes, 0x10000 needs 4.
	got = Pack(uint64(0xFFFF))
	assert.Equal(t, byte(0x31), got[0])
	got = Pack(uint64(0x10000))
	assert.Equal(t, byte(0x32), got[0])

	// 0xFFFFFFFF fits in 4 bytes, 0x100000000 needs 8.
	got = Pack(uint64(0xFFFFFFFF))
	assert.Equal(t, byte(0x32), got[0])
	got = Pack(uint64(0x100000000))
	assert.Equal(t, byte(0x33), got[0])
}

func TestPackUnpackRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("name", "Apple TV")
	m.Set("count", uint64(3))
	m.Set("nested", []interface{}{"abc", "abc", uint64(40)})

	data := Pack(m)
	got, err := Unpack(data)
	require.NoError(t, err)
	assert.True(t, Equal(m, got))
}

func TestUnpackSmallInt(t *testing.T) {
	v, err := Unpack([]byte{0x0F})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)
}

func TestUnpackBackref(t *testing.T) {
	data := append([]byte{0xD2, 0x43}, []byte("abc")...)
	data = append(data, 0xA1)
	v, err := Unpack(data)
	require.NoError(t, err)
	arr, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, "abc", arr[0])
	assert.Equal(t, "abc", arr[1])
}

func TestUnpackTruncated(t *testing.T) {
	_, err := Unpack([]byte{0x61})
	assert.Error(t, err)
}

func TestUnpackUnknownTag(t *testing.T) {
	_, err := Unpack([]byte{0xFF})
	assert.Error(t, err)
}

func TestUnpackBadBackref(t *testing.T) {
	_, err := Unpack([]byte{0xA5})
	assert.Error(t, err)
}

func TestEmptyArrayAndMap(t *testing.T) {
	assert.Equal(t, []byte{0xD0}, Pack([]interface{}{}))
	assert.Equal(t, []byte{0xE0}, Pack(NewMap()))

	v, err := Unpack([]byte{0xD0})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, v)

	v, err = Unpack([]byte{0xE0})
	require.NoError(t, err)
	assert.True(t, Equal(NewMap(), v))
}

func TestForcedFloat64(t *testing.T) {
	data := Pack(ForcedFloat64(5))
	assert.Equal(t, byte(0x36), data[0])
	v, err := Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)
}

func TestBytesRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAA}, 300)
	data := Pack(payload)
	v, err := Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, payload, v)
}

func TestUUIDRoundTrip(t *testing.T) {
	var u UUID
	for i := range u {
		u[i] = byte(i)
	}
	data := Pack(u)
	v, err := Unpack(data)
	require.NoError(t, err)
	assert.Equal(t, u, v)
}

func TestLargeArraySentinelForm(t *testing.T) {
	items := make([]interface{}, 20)
	for i := range items {
		items[i] = uint64(i)
	}
	data := Pack(items)
	assert.Equal(t, byte(0xDF), data[0])
	assert.Equal(t, byte(0x03), data[len(data)-1])

	v, err := Unpack(data)
	require.NoError(t, err)
	arr, ok := v.([]interface{})
	require.True(t, ok)
	require.Len(t, arr, 20)
}
