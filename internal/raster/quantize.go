package raster

import (
	"image/color"
	"sort"
)

// Palette is an indexed rendition of a raster.
type Palette struct {
	Colors []color.NRGBA
	Index  []uint8 // one entry per pixel
}

// Quantize reduces r to at most maxColors colors (1..256).
//
// Images that already fit are indexed exactly. Otherwise a popularity
// quantizer picks the most frequent 5-bit-per-channel cells and maps every
// pixel to its nearest palette entry. When withAlpha is false the alpha
// channel is ignored and palette entries are opaque.
func Quantize(r *Raster, maxColors int, withAlpha bool) Palette {
	if maxColors < 1 {
		maxColors = 1
	}
	if maxColors > 256 {
		maxColors = 256
	}
	n := r.TotalPixels()
	p := Palette{Index: make([]uint8, n)}

	if exact, ok := exactPalette(r, maxColors, withAlpha); ok {
		lookup := make(map[uint32]uint8, len(exact))
		for i, c := range exact {
			lookup[pack(c, withAlpha)] = uint8(i)
		}
		for i := 0; i < n; i++ {
			p.Index[i] = lookup[pack(pixel(r, i), withAlpha)]
		}
		p.Colors = exact
		return p
	}

	type cell struct {
		key        uint32
		count      int
		r, g, b, a uint64
	}
	cells := map[uint32]*cell{}
	for i := 0; i < n; i++ {
		c := pixel(r, i)
		k := cellKey(c, withAlpha)
		ce := cells[k]
		if ce == nil {
			ce = &cell{key: k}
			cells[k] = ce
		}
		ce.count++
		ce.r += uint64(c.R)
		ce.g += uint64(c.G)
		ce.b += uint64(c.B)
		ce.a += uint64(c.A)
	}

	ranked := make([]*cell, 0, len(cells))
	for _, ce := range cells {
		ranked = append(ranked, ce)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})
	if len(ranked) > maxColors {
		ranked = ranked[:maxColors]
	}

	p.Colors = make([]color.NRGBA, len(ranked))
	for i, ce := range ranked {
		cnt := uint64(ce.count)
		c := color.NRGBA{
			R: uint8(ce.r / cnt),
			G: uint8(ce.g / cnt),
			B: uint8(ce.b / cnt),
			A: 255,
		}
		if withAlpha {
			c.A = uint8(ce.a / cnt)
		}
		p.Colors[i] = c
	}

	p.Index = Remap(r, p.Colors, withAlpha)
	return p
}

// Remap indexes every pixel of r into an existing palette by nearest color.
// Mip levels use it to share the palette chosen for the top level.
func Remap(r *Raster, colors []color.NRGBA, withAlpha bool) []uint8 {
	n := r.TotalPixels()
	out := make([]uint8, n)
	if len(colors) == 0 {
		return out
	}
	memo := map[uint32]uint8{}
	for i := 0; i < n; i++ {
		c := pixel(r, i)
		k := pack(c, withAlpha)
		idx, ok := memo[k]
		if !ok {
			idx = nearest(colors, c, withAlpha)
			memo[k] = idx
		}
		out[i] = idx
	}
	return out
}

func exactPalette(r *Raster, maxColors int, withAlpha bool) ([]color.NRGBA, bool) {
	seen := map[uint32]bool{}
	var out []color.NRGBA
	for i, n := 0, r.TotalPixels(); i < n; i++ {
		c := pixel(r, i)
		if !withAlpha {
			c.A = 255
		}
		k := pack(c, withAlpha)
		if seen[k] {
			continue
		}
		if len(out) == maxColors {
			return nil, false
		}
		seen[k] = true
		out = append(out, c)
	}
	return out, true
}

func pixel(r *Raster, i int) color.NRGBA {
	o := i * 4
	return color.NRGBA{R: r.Pix[o], G: r.Pix[o+1], B: r.Pix[o+2], A: r.Pix[o+3]}
}

func pack(c color.NRGBA, withAlpha bool) uint32 {
	a := uint32(255)
	if withAlpha {
		a = uint32(c.A)
	}
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | a
}

func cellKey(c color.NRGBA, withAlpha bool) uint32 {
	k := uint32(c.R>>3)<<15 | uint32(c.G>>3)<<10 | uint32(c.B>>3)<<5
	if withAlpha {
		k = k<<4 | uint32(c.A>>4)
	}
	return k
}

func nearest(pal []color.NRGBA, c color.NRGBA, withAlpha bool) uint8 {
	best, bestDist := 0, -1
	for i, p := range pal {
		dr := int(p.R) - int(c.R)
		dg := int(p.G) - int(c.G)
		db := int(p.B) - int(c.B)
		d := dr*dr + dg*dg + db*db
		if withAlpha {
			da := int(p.A) - int(c.A)
			d += da * da
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}
