// Package display defines where emotion frames end up: a preview window on a
// desktop or the robot's LCD panel.
package display

import (
	"errors"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ErrUnavailable is wrapped by errors from opening a sink whose hardware or
// window system cannot be acquired.
var ErrUnavailable = errors.New("display unavailable")

// Sink shows one frame at a time.
type Sink interface {
	// Render replaces the displayed image. A failed render leaves the
	// previous frame on screen.
	Render(img image.Image) error
	// Close releases the display.
	Close() error
}

// Panel is a Sink backed by a physical panel.
type Panel interface {
	Sink
	// SetBacklight sets the backlight brightness in percent, 0 to 100.
	SetBacklight(percent int) error
	// Clear blanks the panel.
	Clear() error
}

// FitHeight returns the size that scales src to the given height while
// keeping its aspect ratio.
func FitHeight(src image.Point, height int) image.Point {
	if src.X <= 0 || src.Y <= 0 || height <= 0 {
		return image.Pt(0, height)
	}
	w := (src.X*height + src.Y/2) / src.Y
	return image.Pt(max(w, 1), height)
}

// Rotate180 returns img turned upside down.
func Rotate180(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	src := toRGBA(img)
	w, h := b.Dx(), b.Dy()
	for y := range h {
		srow := src.Pix[src.PixOffset(b.Min.X, b.Max.Y-1-y):]
		drow := dst.Pix[dst.PixOffset(0, y):]
		for x := range w {
			s := srow[(w-1-x)*4 : (w-1-x)*4+4]
			copy(drow[x*4:x*4+4], s)
		}
	}
	return dst
}

// Scale resizes img to size with bilinear filtering. Images that already
// have the requested size are returned unchanged.
func Scale(img image.Image, size image.Point) image.Image {
	if img.Bounds().Size() == size {
		return img
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba
}
