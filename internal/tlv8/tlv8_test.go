package tlv8

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentation(t *testing.T) {
	value := bytes.Repeat([]byte{0xAA}, 300)
	got := NewWriter().Append(0x03, value).Bytes()

	want := append([]byte{0x03, 0xFF}, bytes.Repeat([]byte{0xAA}, 255)...)
	want = append(want, 0x03, 0x2D)
	want = append(want, bytes.Repeat([]byte{0xAA}, 45)...)
	assert.Equal(t, want, got)

	r, err := Read(got)
	require.NoError(t, err)
	gotValue, ok := r.Get(0x03)
	require.True(t, ok)
	assert.Equal(t, value, gotValue)
}

func TestFragmentBoundaries(t *testing.T) {
	for _, n := range []int{254, 255, 256, 510, 511, 765} {
		value := bytes.Repeat([]byte{0x5A}, n)
		encoded := NewWriter().Append(0x07, value).Bytes()
		r, err := Read(encoded)
		require.NoError(t, err)
		got, ok := r.Get(0x07)
		require.True(t, ok)
		assert.Equal(t, value, got, "length %d", n)
	}
}

func TestEmptyValue(t *testing.T) {
	encoded := NewWriter().Append(0x06, nil).Bytes()
	assert.Equal(t, []byte{0x06, 0x00}, encoded)

	r, err := Read(encoded)
	require.NoError(t, err)
	v, ok := r.Get(0x06)
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestMultipleTagsPreserveOrder(t *testing.T) {
	w := NewWriter().
		AppendByte(0x00, 0x01).
		Append(0x01, []byte("atv-id")).
		AppendByte(0x06, 0x01)
	r, err := Read(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x06}, r.Tags())

	method, ok := r.GetByte(0x00)
	require.True(t, ok)
	assert.Equal(t, byte(0x01), method)
}

func TestReadTruncated(t *testing.T) {
	_, err := Read([]byte{0x01})
	assert.Error(t, err)

	_, err = Read([]byte{0x01, 0x05, 0x00, 0x00})
	assert.Error(t, err)
}
