package wl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShmFormat(t *testing.T) {
	tests := []struct {
		format ShmFormat
		name   string
		bpp    int
	}{
		{ShmFormatArgb8888, "argb8888", 4},
		{ShmFormatXrgb8888, "xrgb8888", 4},
		{ShmFormatRgb565, "rgb565", 2},
		{ShmFormatRgb888, "rgb888", 3},
		{ShmFormatC8, "c8", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.format.String())

			bpp, ok := tt.format.BytesPerPixel()
			assert.True(t, ok)
			assert.Equal(t, tt.bpp, bpp)

			f, err := ParseShmFormat(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.format, f)
		})
	}
}

func TestShmFormatUnknown(t *testing.T) {
	f := ShmFormat(0x34325258) // DRM code for what wl_shm calls 1
	_, ok := f.BytesPerPixel()
	assert.False(t, ok)
	assert.Equal(t, `fourcc("XR24")`, f.String())
	assert.Equal(t, "ShmFormat(0x2)", ShmFormat(2).String())

	_, err := ParseShmFormat("bogus")
	assert.Error(t, err)

	f, err = ParseShmFormat("XRGB8888")
	require.NoError(t, err)
	assert.Equal(t, ShmFormatXrgb8888, f)
}
