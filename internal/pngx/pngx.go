// Package pngx writes rasters as PNG with an explicit color type and bit depth.
package pngx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/AnyUserName/blpkit/internal/raster"
)

// ErrUnsupported is returned for color type / bit depth pairs we cannot write.
var ErrUnsupported = errors.New("pngx: unsupported color type and bit depth")

// ColorType mirrors the PNG IHDR color type byte.
type ColorType uint8

const (
	ColorGray      ColorType = 0
	ColorRGB       ColorType = 2
	ColorPalette   ColorType = 3
	ColorGrayAlpha ColorType = 4
	ColorRGBA      ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case ColorGray:
		return "gray"
	case ColorRGB:
		return "rgb"
	case ColorPalette:
		return "palette"
	case ColorGrayAlpha:
		return "gray-alpha"
	case ColorRGBA:
		return "rgba"
	default:
		return fmt.Sprintf("color(%d)", uint8(c))
	}
}

// Options selects the output layout.
type Options struct {
	ColorType ColorType
	BitDepth  int
}

func (o Options) String() string {
	return fmt.Sprintf("%s/%d", o.ColorType, o.BitDepth)
}

// Encode converts r to the requested layout and writes it.
//
// The standard encoder picks the on-disk layout from the image type, so
// 4-bit gray is written as a 16-entry gray palette and gray+alpha as
// NRGBA with equal color channels.
func Encode(r *raster.Raster, opts Options) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	img, err := convert(r, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(r.Pix) / 2)
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode %s: %w", opts, err)
	}
	return buf.Bytes(), nil
}

func convert(r *raster.Raster, opts Options) (image.Image, error) {
	bounds := image.Rect(0, 0, r.Width, r.Height)
	n := r.TotalPixels()

	switch {
	case opts.ColorType == ColorRGBA && opts.BitDepth == 8:
		return r.Clone().Image(), nil

	case opts.ColorType == ColorRGB && opts.BitDepth == 8:
		out := r.Clone()
		for i := 3; i < len(out.Pix); i += 4 {
			out.Pix[i] = 255
		}
		return out.Image(), nil

	case opts.ColorType == ColorGray && opts.BitDepth == 8:
		out := image.NewGray(bounds)
		for i := 0; i < n; i++ {
			out.Pix[i] = r.Luma(i)
		}
		return out, nil

	case opts.ColorType == ColorGray && opts.BitDepth == 4:
		pal := make(color.Palette, 16)
		for i := range pal {
			pal[i] = color.Gray{Y: uint8(i * 17)}
		}
		out := image.NewPaletted(bounds, pal)
		for i := 0; i < n; i++ {
			out.Pix[i] = uint8((int(r.Luma(i)) + 8) / 17)
		}
		return out, nil

	case opts.ColorType == ColorPalette && (opts.BitDepth == 8 || opts.BitDepth == 4):
		maxColors := 256
		if opts.BitDepth == 4 {
			maxColors = 16
		}
		q := raster.Quantize(r, maxColors, true)
		pal := make(color.Palette, len(q.Colors))
		for i, c := range q.Colors {
			pal[i] = c
		}
		out := image.NewPaletted(bounds, pal)
		copy(out.Pix, q.Index)
		return out, nil

	case opts.ColorType == ColorGrayAlpha && opts.BitDepth == 8:
		out := r.Clone()
		for i := 0; i < n; i++ {
			y := r.Luma(i)
			o := i * 4
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = y, y, y
		}
		return out.Image(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, opts)
}
