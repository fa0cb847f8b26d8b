// Package catalog defines the fixed encoding choices offered per conversion
// direction.
//
// The catalogs are templates: every accessor returns a fresh copy, so callers
// (notably the recommendation engine) may annotate candidates freely without
// affecting later reads.
package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/pngx"
)

// Direction is the way a conversion goes.
type Direction int

const (
	// ToRaster decodes a BLP texture and exports PNG.
	ToRaster Direction = iota + 1
	// ToCompressed encodes a raster image into a BLP texture.
	ToCompressed
)

func (d Direction) String() string {
	switch d {
	case ToRaster:
		return "blp-to-png"
	case ToCompressed:
		return "png-to-blp"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Params are the codec parameters a candidate carries. They are either
// pngx.Options or blp.EncodeOptions and are opaque to this package.
type Params interface {
	String() string
}

// Candidate is one selectable encoding configuration.
type Candidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Direction   Direction `json:"-"`
	Params      Params    `json:"-"`
	Recommended bool      `json:"recommended"`
	Reason      string    `json:"reason,omitempty"`
}

var rasterExport = []Candidate{
	{
		ID:          "rgba-8",
		Name:        "RGBA (8-bit)",
		Description: "Full color with alpha channel",
		Params:      pngx.Options{ColorType: pngx.ColorRGBA, BitDepth: 8},
	},
	{
		ID:          "rgb-8",
		Name:        "RGB (8-bit)",
		Description: "Full color without alpha",
		Params:      pngx.Options{ColorType: pngx.ColorRGB, BitDepth: 8},
	},
	{
		ID:          "grayscale-8",
		Name:        "Grayscale (8-bit)",
		Description: "Black and white",
		Params:      pngx.Options{ColorType: pngx.ColorGray, BitDepth: 8},
	},
	{
		ID:          "grayscale-4",
		Name:        "Grayscale (4-bit)",
		Description: "16 shades of gray",
		Params:      pngx.Options{ColorType: pngx.ColorGray, BitDepth: 4},
	},
	{
		ID:          "palette-8",
		Name:        "Palette (8-bit)",
		Description: "256 colors with automatic reduction",
		Params:      pngx.Options{ColorType: pngx.ColorPalette, BitDepth: 8},
	},
	{
		ID:          "palette-4",
		Name:        "Palette (4-bit)",
		Description: "16 colors with automatic reduction",
		Params:      pngx.Options{ColorType: pngx.ColorPalette, BitDepth: 4},
	},
	{
		ID:          "grayscale-alpha-8",
		Name:        "Grayscale + Alpha (8-bit)",
		Description: "Grayscale with transparency",
		Params:      pngx.Options{ColorType: pngx.ColorGrayAlpha, BitDepth: 8},
	},
}

func blpParams(enc blp.ColorEncoding, format blp.PixelFormat, alpha uint8) blp.EncodeOptions {
	return blp.EncodeOptions{
		Compression:     enc,
		PreferredFormat: format,
		AlphaSize:       alpha,
		Mipmaps:         true,
		Resize:          blp.ResizePadCenter,
		AutoResize:      true,
	}
}

// The recommended flags here are the static recommendation used when the
// source pixels cannot be inspected.
var compressedExport = []Candidate{
	{
		ID:          "dxt1",
		Name:        "DXT1 (No Alpha)",
		Description: "DXT1 compression without alpha channel. Best for opaque textures.",
		Params:      blpParams(blp.EncodingDXT, blp.PixelFormatDXT1, 0),
		Recommended: true,
		Reason:      "Most common format for opaque textures",
	},
	{
		ID:          "dxt3",
		Name:        "DXT3 (Sharp Alpha)",
		Description: "DXT3 compression with sharp alpha channel. Good for textures with binary transparency.",
		Params:      blpParams(blp.EncodingDXT, blp.PixelFormatDXT3, 4),
		Reason:      "Good for textures with sharp alpha edges",
	},
	{
		ID:          "dxt5",
		Name:        "DXT5 (Smooth Alpha)",
		Description: "DXT5 compression with smooth alpha channel. Best for textures with gradient transparency.",
		Params:      blpParams(blp.EncodingDXT, blp.PixelFormatDXT5, 8),
		Recommended: true,
		Reason:      "Best for textures with smooth alpha gradients",
	},
	{
		ID:          "palette-8",
		Name:        "Palette (8-bit Alpha)",
		Description: "Palettized compression with 8-bit alpha. Good for textures with limited colors.",
		Params:      blpParams(blp.EncodingPalette, blp.PixelFormatDXT1, 8),
		Reason:      "Good for textures with limited color palette",
	},
	{
		ID:          "palette-1",
		Name:        "Palette (1-bit Alpha)",
		Description: "Palettized compression with 1-bit alpha. Good for textures with binary transparency.",
		Params:      blpParams(blp.EncodingPalette, blp.PixelFormatDXT1, 1),
		Reason:      "Good for textures with binary transparency",
	},
	{
		ID:          "uncompressed",
		Name:        "Uncompressed (ARGB8888)",
		Description: "Uncompressed ARGB8888 format. Largest file size but highest quality.",
		Params:      blpParams(blp.EncodingARGB8888, blp.PixelFormatARGB8888, 8),
		Reason:      "Highest quality but largest file size",
	},
}

func clone(src []Candidate, d Direction) []Candidate {
	out := make([]Candidate, len(src))
	copy(out, src)
	for i := range out {
		out[i].Direction = d
	}
	return out
}

// RasterExport returns the BLP→PNG candidates, none recommended.
func RasterExport() []Candidate {
	return clone(rasterExport, ToRaster)
}

// CompressedExport returns the PNG→BLP candidates with their static
// recommendation.
func CompressedExport() []Candidate {
	return clone(compressedExport, ToCompressed)
}

// For returns the catalog of a direction, or nil for an unknown one.
func For(d Direction) []Candidate {
	switch d {
	case ToRaster:
		return RasterExport()
	case ToCompressed:
		return CompressedExport()
	default:
		return nil
	}
}

// Find looks a candidate up by id.
func Find(cands []Candidate, id string) (Candidate, bool) {
	for _, c := range cands {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// Default is the first recommended candidate in list order, falling back
// to the first entry when nothing is recommended.
func Default(cands []Candidate) (Candidate, bool) {
	for _, c := range cands {
		if c.Recommended {
			return c, true
		}
	}
	if len(cands) == 0 {
		return Candidate{}, false
	}
	return cands[0], true
}

// Recommended filters the recommended candidates, preserving order.
func Recommended(cands []Candidate) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if c.Recommended {
			out = append(out, c)
		}
	}
	return out
}

// IDs lists candidate ids in order.
func IDs(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

// OutputName derives the artifact filename from the source filename.
// PNG exports use the first word of the candidate name ("tex.blp" becomes
// "tex.rgba.png"); BLP exports use the candidate id ("tex.png" becomes
// "tex.dxt5.blp").
func OutputName(source string, c Candidate) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	switch c.Direction {
	case ToRaster:
		word := strings.ToLower(strings.Fields(c.Name + " png")[0])
		return stem + "." + word + ".png"
	default:
		return stem + "." + c.ID + ".blp"
	}
}
