package display

import (
	"image"
	"image/color"
	"testing"
)

func TestFitHeight(t *testing.T) {
	tests := []struct {
		src    image.Point
		height int
		want   image.Point
	}{
		{image.Pt(200, 150), 200, image.Pt(267, 200)},
		{image.Pt(240, 320), 160, image.Pt(120, 160)},
		{image.Pt(100, 100), 200, image.Pt(200, 200)},
		{image.Pt(1, 1000), 10, image.Pt(1, 10)},
		{image.Pt(0, 0), 200, image.Pt(0, 200)},
	}
	for _, test := range tests {
		if got := FitHeight(test.src, test.height); got != test.want {
			t.Errorf("FitHeight(%v, %d) = %v, want %v", test.src, test.height, got, test.want)
		}
	}
}

func TestRotate180(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	blue := color.RGBA{B: 0xff, A: 0xff}
	// Odd origin to exercise the bounds arithmetic.
	src := image.NewNRGBA(image.Rect(5, 7, 8, 9))
	src.Set(5, 7, red)
	src.Set(7, 8, blue)
	got := Rotate180(src)
	if got.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("got bounds %v", got.Bounds())
	}
	if c := got.RGBAAt(2, 1); c != red {
		t.Errorf("top-left pixel moved to %v, not bottom-right", c)
	}
	if c := got.RGBAAt(0, 0); c != blue {
		t.Errorf("bottom-right pixel moved to %v, not top-left", c)
	}
	if c := got.RGBAAt(1, 0); c != (color.RGBA{}) {
		t.Errorf("got %v for an unset pixel", c)
	}
}

func TestScale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	if got := Scale(src, image.Pt(4, 2)); got != image.Image(src) {
		t.Error("same-size scale copied the image")
	}
	if got := Scale(src, image.Pt(8, 4)).Bounds(); got != image.Rect(0, 0, 8, 4) {
		t.Errorf("got bounds %v", got)
	}
}
