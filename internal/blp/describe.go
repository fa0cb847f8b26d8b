package blp

import "fmt"

// Info is a human-readable rendition of a header.
type Info struct {
	Magic           string `json:"magic"`
	Version         string `json:"version"`
	Compression     string `json:"compression"`
	Alpha           string `json:"alpha"`
	PreferredFormat string `json:"preferred_format"`
	Mipmaps         string `json:"mipmaps"`
	Width           string `json:"width"`
	Height          string `json:"height"`
	DXTType         string `json:"dxt_type,omitempty"`
}

// Describe renders h for display.
func Describe(h *Header) Info {
	var compression string
	switch h.Compression {
	case EncodingPalette:
		compression = "Palettized (RAW1)"
	case EncodingDXT:
		compression = "DXT-compressed"
	case EncodingARGB8888:
		compression = "Uncompressed (RAW3, A8R8G8B8)"
	default:
		compression = fmt.Sprintf("Unknown (%d)", h.Compression)
	}

	var alpha string
	switch h.AlphaSize {
	case 0:
		alpha = "No alpha channel"
	case 1:
		alpha = "1-bit alpha (binary mask)"
	case 4:
		alpha = "4-bit alpha (rare)"
	case 8:
		alpha = "8-bit alpha (full)"
	default:
		alpha = fmt.Sprintf("Unknown (%d)", h.AlphaSize)
	}

	var mips string
	switch h.HasMips {
	case 0:
		mips = "Only main image (no mipmaps)"
	case 1, 2:
		mips = "Multiple mipmaps present"
	default:
		mips = fmt.Sprintf("Unknown (%d)", h.HasMips)
	}

	var preferred string
	switch h.PreferredFormat {
	case PixelFormatDXT1:
		preferred = "Default/unspecified"
	case PixelFormatDXT3:
		preferred = "DXT3 (if DXT)"
	case PixelFormatDXT5:
		preferred = "DXT5 (if DXT)"
	default:
		preferred = fmt.Sprintf("%d", h.PreferredFormat)
	}

	info := Info{
		Magic:           h.Magic,
		Version:         fmt.Sprintf("%d", h.Type),
		Compression:     fmt.Sprintf("%d (%s)", h.Compression, compression),
		Alpha:           fmt.Sprintf("%d (%s)", h.AlphaSize, alpha),
		PreferredFormat: fmt.Sprintf("%d (%s)", h.PreferredFormat, preferred),
		Mipmaps:         mips,
		Width:           fmt.Sprintf("%d px", h.Width),
		Height:          fmt.Sprintf("%d px", h.Height),
	}
	if h.Compression == EncodingDXT {
		info.DXTType = h.DXTFormat().upper()
	}
	return info
}

func (f PixelFormat) upper() string {
	switch f {
	case PixelFormatDXT3:
		return "DXT3"
	case PixelFormatDXT5:
		return "DXT5"
	default:
		return "DXT1"
	}
}
