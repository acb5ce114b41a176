package wl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ShmFormat is a pixel format as used by wl_shm. Apart from the two
// formats that every server supports, formats are DRM fourcc codes.
type ShmFormat uint32

const (
	ShmFormatArgb8888 ShmFormat = 0
	ShmFormatXrgb8888 ShmFormat = 1

	ShmFormatC8          ShmFormat = 0x20203843
	ShmFormatRgb565      ShmFormat = 0x36314752
	ShmFormatRgb888      ShmFormat = 0x34324752
	ShmFormatAbgr8888    ShmFormat = 0x34324241
	ShmFormatXbgr8888    ShmFormat = 0x34324258
	ShmFormatArgb2101010 ShmFormat = 0x30335241
	ShmFormatXrgb2101010 ShmFormat = 0x30335258
)

type formatInfo struct {
	name string
	bpp  int
}

var formats = map[ShmFormat]formatInfo{
	ShmFormatArgb8888:    {"argb8888", 4},
	ShmFormatXrgb8888:    {"xrgb8888", 4},
	ShmFormatC8:          {"c8", 1},
	ShmFormatRgb565:      {"rgb565", 2},
	ShmFormatRgb888:      {"rgb888", 3},
	ShmFormatAbgr8888:    {"abgr8888", 4},
	ShmFormatXbgr8888:    {"xbgr8888", 4},
	ShmFormatArgb2101010: {"argb2101010", 4},
	ShmFormatXrgb2101010: {"xrgb2101010", 4},
}

func (f ShmFormat) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}

	code := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range code {
		if c < ' ' || c > '~' {
			return fmt.Sprintf("ShmFormat(%#x)", uint32(f))
		}
	}
	return fmt.Sprintf("fourcc(%q)", code)
}

// BytesPerPixel returns the size of a single pixel in f. It returns
// false if f is not a format that this package knows the layout of.
func (f ShmFormat) BytesPerPixel() (int, bool) {
	info, ok := formats[f]
	return info.bpp, ok
}

// ParseShmFormat returns the format with the given name, such as
// "xrgb8888". Case is ignored.
func ParseShmFormat(name string) (ShmFormat, error) {
	name = strings.ToLower(name)
	for f, info := range formats {
		if info.name == name {
			return f, nil
		}
	}
	return 0, errors.Errorf("unknown pixel format %q", name)
}
