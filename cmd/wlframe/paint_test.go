package main

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/image/colornames"
)

func TestPaint(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	img.Set(0, 0, colornames.Red)

	paint(img, img.Bounds())

	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0), "corner cleared")
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(256, 50), "outside circle")
	assert.Equal(t, color.NRGBA(colornames.Whitesmoke), img.NRGBAAt(256, 57), "edge")

	center := img.NRGBAAt(256, 256)
	assert.Equal(t, uint8(192), center.A)
	assert.Equal(t, uint8(127), center.G)
	assert.Equal(t, uint8(127), center.B)
}

func TestPaintEmpty(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	assert.NotPanics(t, func() { paint(img, image.Rectangle{}) })
}
