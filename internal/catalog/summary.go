package catalog

import (
	"fmt"

	"github.com/AnyUserName/blpkit/internal/pngx"
)

// Summary describes what a PNG candidate keeps of the source.
type Summary struct {
	ColorType    string `json:"color_type"`
	BitDepth     int    `json:"bit_depth"`
	MaxColors    string `json:"max_colors"`
	Transparency string `json:"transparency"`
}

// Summarize returns display fields for raster-export candidates. The second
// result is false for candidates without PNG parameters.
func Summarize(c Candidate) (Summary, bool) {
	opts, ok := c.Params.(pngx.Options)
	if !ok {
		return Summary{}, false
	}
	s := Summary{BitDepth: opts.BitDepth}
	switch opts.ColorType {
	case pngx.ColorRGBA:
		s.ColorType, s.MaxColors, s.Transparency = "RGBA (RGB + Alpha)", "16.7M + Alpha", "Full alpha channel"
	case pngx.ColorRGB:
		s.ColorType, s.MaxColors, s.Transparency = "RGB (RGB only)", "16.7M", "None"
	case pngx.ColorGray:
		s.ColorType, s.Transparency = "Grayscale", "None"
		s.MaxColors = "256 shades"
		if opts.BitDepth == 4 {
			s.MaxColors = "16 shades"
		}
	case pngx.ColorPalette:
		s.ColorType, s.Transparency = "Indexed (Palette)", "Palette-based"
		s.MaxColors = "256 colors"
		if opts.BitDepth == 4 {
			s.MaxColors = "16 colors"
		}
	case pngx.ColorGrayAlpha:
		s.ColorType, s.MaxColors, s.Transparency = "Grayscale + Alpha", "256 shades + Alpha", "Grayscale alpha"
	default:
		s.ColorType, s.MaxColors, s.Transparency = fmt.Sprintf("Unknown (%d)", opts.ColorType), "Unknown", "Unknown"
	}
	return s, true
}
