package bin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, uint32(0xDEADBEEF)))
	require.NoError(t, Write(&buf, int32(-7)))

	u, err := Read[uint32](&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u)

	i, err := Read[int32](&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i)

	_, err = Read[uint32](&buf)
	assert.Error(t, err)
}

func TestGetPut(t *testing.T) {
	data := make([]byte, 8)
	Put(data[4:], uint32(42))
	assert.Equal(t, uint32(0), Get[uint32](data))
	assert.Equal(t, uint32(42), Get[uint32](data[4:]))
}
