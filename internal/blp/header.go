// Package blp reads and writes BLP2 texture containers.
//
// Only the "BLP2" variant with type 1 (direct, non-JPEG) content is
// supported. Pixel data can be palettized (with 0, 1, 4 or 8 bit alpha),
// DXT1/3/5 block compressed, or uncompressed BGRA.
package blp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
)

var (
	ErrInvalidMagic = errors.New("blp: invalid magic")
	ErrTruncated    = errors.New("blp: truncated data")
	ErrUnsupported  = errors.New("blp: unsupported variant")
	ErrCorrupt      = errors.New("blp: corrupt mipmap table")
)

const (
	// HeaderSize is the fixed BLP2 header length including the palette.
	HeaderSize = 148 + 256*4
	// MaxMipLevels is the number of mip slots in the header.
	MaxMipLevels = 16

	magicBLP2 = "BLP2"
	magicBLP1 = "BLP1"
)

// ColorEncoding is the compression field of the header.
type ColorEncoding uint8

const (
	EncodingPalette  ColorEncoding = 1
	EncodingDXT      ColorEncoding = 2
	EncodingARGB8888 ColorEncoding = 3
)

func (e ColorEncoding) String() string {
	switch e {
	case EncodingPalette:
		return "palette"
	case EncodingDXT:
		return "dxt"
	case EncodingARGB8888:
		return "argb8888"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// PixelFormat is the preferred-format field of the header.
type PixelFormat uint8

const (
	PixelFormatDXT1        PixelFormat = 0
	PixelFormatDXT3        PixelFormat = 1
	PixelFormatARGB8888    PixelFormat = 2
	PixelFormatDXT5        PixelFormat = 7
	PixelFormatUnspecified PixelFormat = 8
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatDXT1:
		return "dxt1"
	case PixelFormatDXT3:
		return "dxt3"
	case PixelFormatARGB8888:
		return "argb8888"
	case PixelFormatDXT5:
		return "dxt5"
	case PixelFormatUnspecified:
		return "unspecified"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Header is the parsed BLP2 header.
type Header struct {
	Magic           string
	Type            uint32
	Compression     ColorEncoding
	AlphaSize       uint8
	PreferredFormat PixelFormat
	HasMips         uint8
	Width           uint32
	Height          uint32
	MipOffsets      [MaxMipLevels]uint32
	MipSizes        [MaxMipLevels]uint32
	Palette         [256]color.NRGBA
}

// HasAlphaChannel reports whether the header declares alpha bits.
func (h *Header) HasAlphaChannel() bool {
	return h.AlphaSize != 0
}

// MipCount returns the number of populated mip slots.
func (h *Header) MipCount() int {
	n := 0
	for i := 0; i < MaxMipLevels; i++ {
		if h.MipOffsets[i] == 0 || h.MipSizes[i] == 0 {
			break
		}
		n++
	}
	return n
}

// DXTFormat resolves which block format a DXT texture uses.
func (h *Header) DXTFormat() PixelFormat {
	switch h.PreferredFormat {
	case PixelFormatDXT3:
		return PixelFormatDXT3
	case PixelFormatDXT5:
		return PixelFormatDXT5
	default:
		return PixelFormatDXT1
	}
}

// IsBLP reports whether data starts with a BLP magic, either version.
func IsBLP(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	m := string(data[:4])
	return m == magicBLP2 || m == magicBLP1
}

// ReadHeader parses the fixed header. It does not touch pixel data.
func ReadHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	switch string(data[:4]) {
	case magicBLP2:
	case magicBLP1:
		return nil, fmt.Errorf("%w: BLP1", ErrUnsupported)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMagic, data[:4])
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(data))
	}

	le := binary.LittleEndian
	h := &Header{
		Magic:           magicBLP2,
		Type:            le.Uint32(data[4:8]),
		Compression:     ColorEncoding(data[8]),
		AlphaSize:       data[9],
		PreferredFormat: PixelFormat(data[10]),
		HasMips:         data[11],
		Width:           le.Uint32(data[12:16]),
		Height:          le.Uint32(data[16:20]),
	}
	for i := 0; i < MaxMipLevels; i++ {
		h.MipOffsets[i] = le.Uint32(data[20+i*4:])
		h.MipSizes[i] = le.Uint32(data[84+i*4:])
	}
	for i := 0; i < 256; i++ {
		o := 148 + i*4
		// BGRA on disk; palette alpha is unused, per-pixel alpha lives in the mip data.
		h.Palette[i] = color.NRGBA{R: data[o+2], G: data[o+1], B: data[o], A: 255}
	}
	if h.Type != 1 {
		return nil, fmt.Errorf("%w: content type %d", ErrUnsupported, h.Type)
	}
	return h, nil
}

func (h *Header) marshal() []byte {
	buf := make([]byte, HeaderSize)
	le := binary.LittleEndian
	copy(buf[0:4], magicBLP2)
	le.PutUint32(buf[4:8], h.Type)
	buf[8] = byte(h.Compression)
	buf[9] = h.AlphaSize
	buf[10] = byte(h.PreferredFormat)
	buf[11] = h.HasMips
	le.PutUint32(buf[12:16], h.Width)
	le.PutUint32(buf[16:20], h.Height)
	for i := 0; i < MaxMipLevels; i++ {
		le.PutUint32(buf[20+i*4:], h.MipOffsets[i])
		le.PutUint32(buf[84+i*4:], h.MipSizes[i])
	}
	for i, c := range h.Palette {
		o := 148 + i*4
		buf[o], buf[o+1], buf[o+2], buf[o+3] = c.B, c.G, c.R, 0
	}
	return buf
}

// mipData returns the byte range of a mip level.
func (h *Header) mipData(data []byte, level int) ([]byte, error) {
	off, size := uint64(h.MipOffsets[level]), uint64(h.MipSizes[level])
	if off < HeaderSize || size == 0 || off+size > uint64(len(data)) {
		return nil, fmt.Errorf("%w: level %d at %d+%d, file %d bytes", ErrCorrupt, level, off, size, len(data))
	}
	return data[off : off+size], nil
}

func mipDims(w, h, level int) (int, int) {
	w >>= level
	h >>= level
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
