package blp

import (
	"errors"
	"fmt"

	"github.com/AnyUserName/blpkit/internal/raster"
)

// EncodeOptions selects the container layout.
type EncodeOptions struct {
	Compression     ColorEncoding
	PreferredFormat PixelFormat
	AlphaSize       uint8 // 0, 1, 4 or 8
	Mipmaps         bool
	Resize          ResizeMode
	AutoResize      bool // fit to power-of-two dimensions before encoding
}

func (o EncodeOptions) String() string {
	s := fmt.Sprintf("%s alpha=%d", o.Compression, o.AlphaSize)
	if o.Compression == EncodingDXT {
		s = fmt.Sprintf("%s/%s alpha=%d", o.Compression, o.dxtFormat(), o.AlphaSize)
	}
	if o.Mipmaps {
		s += " mips"
	}
	if o.AutoResize {
		s += " resize=" + o.Resize.String()
	}
	return s
}

func (o EncodeOptions) dxtFormat() PixelFormat {
	h := Header{PreferredFormat: o.PreferredFormat}
	return h.DXTFormat()
}

var errEmptyImage = errors.New("blp: empty image")

// Encode writes r as a BLP2 file.
func Encode(r *raster.Raster, opts EncodeOptions) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Width == 0 || r.Height == 0 {
		return nil, errEmptyImage
	}
	if _, err := alphaLen(0, opts.AlphaSize); err != nil {
		return nil, err
	}

	base := r
	if opts.AutoResize {
		base = fitPowerOfTwo(r, opts.Resize)
	}
	levels := mipChain(base, opts.Mipmaps)

	h := &Header{
		Magic:           magicBLP2,
		Type:            1,
		Compression:     opts.Compression,
		AlphaSize:       opts.AlphaSize,
		PreferredFormat: opts.PreferredFormat,
		Width:           uint32(base.Width),
		Height:          uint32(base.Height),
	}
	if opts.Mipmaps {
		h.HasMips = 1
	}

	var blobs [][]byte
	switch opts.Compression {
	case EncodingPalette:
		pal := raster.Quantize(base, 256, false)
		copy(h.Palette[:], pal.Colors)
		for i, lvl := range levels {
			idx := pal.Index
			if i > 0 {
				idx = raster.Remap(lvl, pal.Colors, false)
			}
			blobs = append(blobs, encodePaletteLevel(lvl, idx, opts.AlphaSize))
		}
	case EncodingDXT:
		if opts.AlphaSize > 1 && opts.dxtFormat() == PixelFormatDXT1 {
			h.AlphaSize = 1
		}
		for _, lvl := range levels {
			blobs = append(blobs, encodeDXT(lvl, opts.dxtFormat(), h.AlphaSize))
		}
	case EncodingARGB8888:
		for _, lvl := range levels {
			blobs = append(blobs, encodeBGRA(lvl))
		}
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, opts.Compression)
	}

	offset := uint32(HeaderSize)
	for i, b := range blobs {
		h.MipOffsets[i] = offset
		h.MipSizes[i] = uint32(len(b))
		offset += uint32(len(b))
	}

	out := h.marshal()
	for _, b := range blobs {
		out = append(out, b...)
	}
	return out, nil
}

func encodePaletteLevel(r *raster.Raster, idx []uint8, alphaSize uint8) []byte {
	n := r.TotalPixels()
	aLen, _ := alphaLen(n, alphaSize)
	out := make([]byte, n+aLen)
	copy(out, idx)
	alpha := out[n:]
	for i := 0; i < n; i++ {
		a := r.Pix[i*4+3]
		switch alphaSize {
		case 1:
			if a >= 128 {
				alpha[i/8] |= 1 << (i % 8)
			}
		case 4:
			alpha[i/2] |= (a >> 4) << (4 * (i % 2))
		case 8:
			alpha[i] = a
		}
	}
	return out
}

func encodeBGRA(r *raster.Raster) []byte {
	out := make([]byte, len(r.Pix))
	for o := 0; o < len(r.Pix); o += 4 {
		out[o], out[o+1], out[o+2], out[o+3] = r.Pix[o+2], r.Pix[o+1], r.Pix[o], r.Pix[o+3]
	}
	return out
}
