// Package raster holds decoded images as flat RGBA8 buffers.
//
// A Raster is the common currency between the texture codecs and the
// analysis/recommendation code: 4 bytes per pixel (R, G, B, A), row-major,
// non-premultiplied alpha, no padding between rows.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalid reports a raster whose buffer does not match its dimensions.
var ErrInvalid = errors.New("invalid raster")

// Raster is a decoded RGBA8 image.
type Raster struct {
	Width  int
	Height int
	Pix    []byte // len == 4*Width*Height
}

// New allocates a zeroed (fully transparent black) raster.
func New(w, h int) *Raster {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Raster{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

// TotalPixels returns Width*Height.
func (r *Raster) TotalPixels() int {
	return r.Width * r.Height
}

// Validate checks the buffer length invariant.
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil raster", ErrInvalid)
	}
	if r.Width < 0 || r.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalid, r.Width, r.Height)
	}
	if want := r.Width * r.Height * 4; len(r.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, have %d", ErrInvalid, r.Width, r.Height, want, len(r.Pix))
	}
	return nil
}

// At returns the RGBA bytes of pixel (x, y).
func (r *Raster) At(x, y int) (red, green, blue, alpha uint8) {
	i := (y*r.Width + x) * 4
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2], r.Pix[i+3]
}

// Set writes pixel (x, y).
func (r *Raster) Set(x, y int, red, green, blue, alpha uint8) {
	i := (y*r.Width + x) * 4
	r.Pix[i] = red
	r.Pix[i+1] = green
	r.Pix[i+2] = blue
	r.Pix[i+3] = alpha
}

// Image exposes the raster as an *image.NRGBA sharing the same buffer.
func (r *Raster) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    r.Pix,
		Stride: r.Width * 4,
		Rect:   image.Rect(0, 0, r.Width, r.Height),
	}
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]byte, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// FromImage converts any image.Image into a raster.
// NRGBA sources are copied row by row. Everything else is converted pixel
// by pixel through color.NRGBAModel, which keeps non-premultiplied palette
// entries exact.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := New(w, h)
	if w == 0 || h == 0 {
		return out
	}

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*w*4:(y+1)*w*4], src.Pix[si:si+w*4])
		}
		return out
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, c.A
			i += 4
		}
	}
	return out
}
