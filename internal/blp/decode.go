package blp

import (
	"fmt"

	"github.com/AnyUserName/blpkit/internal/raster"
)

// Decode returns the top mip level as RGBA8.
func Decode(data []byte) (*raster.Raster, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	return h.DecodeLevel(data, 0)
}

// DecodeLevel decodes one mip level of the file the header was read from.
func (h *Header) DecodeLevel(data []byte, level int) (*raster.Raster, error) {
	if level < 0 || level >= MaxMipLevels {
		return nil, fmt.Errorf("%w: mip level %d", ErrCorrupt, level)
	}
	if h.Width == 0 || h.Height == 0 {
		return nil, fmt.Errorf("%w: zero dimensions", ErrCorrupt)
	}
	w, ht := mipDims(int(h.Width), int(h.Height), level)
	mip, err := h.mipData(data, level)
	if err != nil {
		return nil, err
	}

	switch h.Compression {
	case EncodingPalette:
		return h.decodePalette(mip, w, ht)
	case EncodingDXT:
		return decodeDXT(mip, w, ht, h.DXTFormat(), h.AlphaSize)
	case EncodingARGB8888:
		return decodeBGRA(mip, w, ht)
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, h.Compression)
	}
}

func alphaLen(n int, alphaSize uint8) (int, error) {
	switch alphaSize {
	case 0:
		return 0, nil
	case 1:
		return (n + 7) / 8, nil
	case 4:
		return (n + 1) / 2, nil
	case 8:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: alpha size %d", ErrUnsupported, alphaSize)
	}
}

func (h *Header) decodePalette(mip []byte, w, ht int) (*raster.Raster, error) {
	n := w * ht
	aLen, err := alphaLen(n, h.AlphaSize)
	if err != nil {
		return nil, err
	}
	if len(mip) < n+aLen {
		return nil, fmt.Errorf("%w: palette level needs %d bytes, have %d", ErrTruncated, n+aLen, len(mip))
	}
	alpha := mip[n:]

	out := raster.New(w, ht)
	for i := 0; i < n; i++ {
		c := h.Palette[mip[i]]
		a := uint8(255)
		switch h.AlphaSize {
		case 1:
			if alpha[i/8]>>(i%8)&1 == 0 {
				a = 0
			}
		case 4:
			a = (alpha[i/2] >> (4 * (i % 2)) & 0xf) * 17
		case 8:
			a = alpha[i]
		}
		o := i * 4
		out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = c.R, c.G, c.B, a
	}
	return out, nil
}

func decodeBGRA(mip []byte, w, ht int) (*raster.Raster, error) {
	n := w * ht
	if len(mip) < n*4 {
		return nil, fmt.Errorf("%w: argb level needs %d bytes, have %d", ErrTruncated, n*4, len(mip))
	}
	out := raster.New(w, ht)
	for i := 0; i < n; i++ {
		o := i * 4
		out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = mip[o+2], mip[o+1], mip[o], mip[o+3]
	}
	return out, nil
}
