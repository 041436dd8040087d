// package rgb16 contains an image.Image implementation of a 16-bit
// RGB image laid out the way SPI panels expect it: 5-6-5 bits, most
// significant byte first.
package rgb16

import (
	"image"
	"image/color"
	"image/draw"
)

type Image struct {
	Pix    []RGB565
	Stride int
	Rect   image.Rectangle
}

// RGB565 is a big-endian 5-6-5 pixel.
type RGB565 [2]byte

func New(r image.Rectangle) *Image {
	return &Image{
		Pix:    make([]RGB565, r.Dx()*r.Dy()),
		Stride: r.Dx(),
		Rect:   r,
	}
}

func (p *Image) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Image) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *Image) PixOffset(x, y int) int {
	off := image.Pt(x, y).Sub(p.Rect.Min)
	return off.Y*p.Stride + off.X
}

func (p *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}).In(p.Rect) {
		return
	}
	r, g, b, _ := c.RGBA()
	p.Pix[p.PixOffset(x, y)] = FromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

func (p *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}).In(p.Rect) {
		return color.RGBA{}
	}
	r, g, b := p.Pix[p.PixOffset(x, y)].RGB()
	return color.RGBA{A: 0xff, R: r, G: g, B: b}
}

// Fill sets every pixel to c.
func (p *Image) Fill(c color.Color) {
	r, g, b, _ := c.RGBA()
	px := FromRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
	for i := range p.Pix {
		p.Pix[i] = px
	}
}

// Convert copies src into p, aligning the minimum points. Alpha is
// ignored.
func (p *Image) Convert(src image.Image) {
	dr := p.Rect.Intersect(src.Bounds().Sub(src.Bounds().Min).Add(p.Rect.Min))
	rgba, ok := src.(*image.RGBA)
	if !ok {
		draw.Draw(p, dr, src, src.Bounds().Min, draw.Src)
		return
	}
	sp := rgba.Rect.Min
	for y := 0; y < dr.Dy(); y++ {
		spix := rgba.Pix[rgba.PixOffset(sp.X, sp.Y+y):]
		dpix := p.Pix[p.PixOffset(dr.Min.X, dr.Min.Y+y):]
		for x := 0; x < dr.Dx(); x++ {
			s := spix[x*4 : x*4+3]
			dpix[x] = FromRGB(s[0], s[1], s[2])
		}
	}
}

// FromRGB packs an 8-bit per channel color.
func FromRGB(r, g, b uint8) RGB565 {
	u16 := uint16(b)>>3 | uint16(g&0xFC)<<3 | uint16(r&0xF8)<<8
	return RGB565{byte(u16 >> 8), byte(u16)}
}

// RGB expands the pixel to 8 bits per channel.
func (c RGB565) RGB() (r, g, b uint8) {
	u := uint16(c[0])<<8 | uint16(c[1])
	r = uint8(u>>8) & 0xf8
	r |= r >> 5
	g = uint8(u>>3) & 0xfc
	g |= g >> 6
	b = uint8(u << 3)
	b |= b >> 5
	return
}
