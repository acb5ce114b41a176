package main

import (
	"image"
	"image/color"

	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
)

// paint clears r and draws a mostly opaque circle filled with a
// blue-green gradient in the middle of it.
func paint(img draw.Image, r image.Rectangle) {
	draw.Draw(img, r, image.Transparent, image.Point{}, draw.Src)

	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return
	}

	cx, cy := r.Min.X+w/2, r.Min.Y+h/2
	radius := min(w, h) * 200 / 512
	edge := max(radius-2, 0)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dx, dy := x-cx, y-cy
			d := dx*dx + dy*dy
			switch {
			case d >= radius*radius:
				continue
			case d >= edge*edge:
				img.Set(x, y, colornames.Whitesmoke)
			default:
				img.Set(x, y, color.NRGBA{
					G: uint8((y - r.Min.Y) * 255 / h),
					B: uint8((x - r.Min.X) * 255 / w),
					A: 192,
				})
			}
		}
	}
}
