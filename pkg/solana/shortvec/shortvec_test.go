package shortvec

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortVec_Valid(t *testing.T) {
	for i := 0; i <= math.MaxUint16; i++ {
		buf := &bytes.Buffer{}

		n, err := EncodeLen(buf, i)
		require.NoError(t, err)
		require.Equal(t, n, buf.Len())

		actual, err := DecodeLen(buf)
		require.NoError(t, err)
		require.Equal(t, i, actual)
	}
}

func TestShortVec_CrossImpl(t *testing.T) {
	for _, tc := range []struct {
		value   int
		encoded []byte
	}{
		{0x0, []byte{0x0}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0xff, []byte{0xff, 0x01}},
		{0x100, []byte{0x80, 0x02}},
		{0x7fff, []byte{0xff, 0xff, 0x01}},
		{0xffff, []byte{0xff, 0xff, 0x03}},
	} {
		buf := &bytes.Buffer{}
		_, err := EncodeLen(buf, tc.value)
		require.NoError(t, err)
		assert.Equal(t, tc.encoded, buf.Bytes())

		actual, err := DecodeLen(bytes.NewBuffer(tc.encoded))
		require.NoError(t, err)
		assert.Equal(t, tc.value, actual)
	}
}

func TestShortVec_Invalid(t *testing.T) {
	_, err := EncodeLen(&bytes.Buffer{}, math.MaxUint16+1)
	assert.Error(t, err)

	// Too many continuation bytes.
	_, err = DecodeLen(bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0x01}))
	assert.Error(t, err)
}
