package blp

import (
	"encoding/binary"
	"fmt"

	"github.com/AnyUserName/blpkit/internal/raster"
)

type rgba [4]uint8

func blockSize(f PixelFormat) int {
	if f == PixelFormatDXT1 {
		return 8
	}
	return 16
}

func dxtLen(w, h int, f PixelFormat) int {
	return ((w + 3) / 4) * ((h + 3) / 4) * blockSize(f)
}

func expand565(v uint16) rgba {
	r := uint8(v>>11) & 0x1f
	g := uint8(v>>5) & 0x3f
	b := uint8(v) & 0x1f
	return rgba{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 255}
}

func pack565(c rgba) uint16 {
	return uint16(c[0]>>3)<<11 | uint16(c[1]>>2)<<5 | uint16(c[2]>>3)
}

// colorTable builds the four block colors. threeColor selects the DXT1
// mode whose fourth entry is transparent black.
func colorTable(c0, c1 uint16, threeColor bool) [4]rgba {
	a, b := expand565(c0), expand565(c1)
	var t [4]rgba
	t[0], t[1] = a, b
	for ch := 0; ch < 3; ch++ {
		if threeColor {
			t[2][ch] = uint8((int(a[ch]) + int(b[ch])) / 2)
		} else {
			t[2][ch] = uint8((2*int(a[ch]) + int(b[ch])) / 3)
			t[3][ch] = uint8((int(a[ch]) + 2*int(b[ch])) / 3)
		}
	}
	t[2][3] = 255
	if !threeColor {
		t[3][3] = 255
	}
	return t
}

func alphaTable(a0, a1 uint8) [8]uint8 {
	var t [8]uint8
	t[0], t[1] = a0, a1
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			t[i] = uint8(((8-i)*int(a0) + (i-1)*int(a1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			t[i] = uint8(((6-i)*int(a0) + (i-1)*int(a1)) / 5)
		}
		t[6], t[7] = 0, 255
	}
	return t
}

func decodeDXT(data []byte, w, h int, f PixelFormat, alphaSize uint8) (*raster.Raster, error) {
	if need := dxtLen(w, h, f); len(data) < need {
		return nil, fmt.Errorf("%w: %s %dx%d needs %d bytes, have %d", ErrTruncated, f, w, h, need, len(data))
	}
	out := raster.New(w, h)
	le := binary.LittleEndian
	bs := blockSize(f)
	off := 0

	for by := 0; by < h; by += 4 {
		for bx := 0; bx < w; bx += 4 {
			block := data[off : off+bs]
			off += bs

			var alpha [16]uint8
			for i := range alpha {
				alpha[i] = 255
			}
			color := block
			switch f {
			case PixelFormatDXT3:
				bits := le.Uint64(block[:8])
				for i := 0; i < 16; i++ {
					alpha[i] = uint8(bits>>(4*i)&0xf) * 17
				}
				color = block[8:]
			case PixelFormatDXT5:
				t := alphaTable(block[0], block[1])
				var bits uint64
				for i := 0; i < 6; i++ {
					bits |= uint64(block[2+i]) << (8 * i)
				}
				for i := 0; i < 16; i++ {
					alpha[i] = t[bits>>(3*i)&7]
				}
				color = block[8:]
			}

			c0 := le.Uint16(color[0:2])
			c1 := le.Uint16(color[2:4])
			threeColor := f == PixelFormatDXT1 && c0 <= c1
			table := colorTable(c0, c1, threeColor)
			idx := le.Uint32(color[4:8])

			for i := 0; i < 16; i++ {
				x, y := bx+i%4, by+i/4
				if x >= w || y >= h {
					continue
				}
				c := table[idx>>(2*i)&3]
				a := alpha[i]
				if f == PixelFormatDXT1 {
					a = c[3]
					if alphaSize == 0 {
						a = 255
					}
				}
				out.Set(x, y, c[0], c[1], c[2], a)
			}
		}
	}
	return out, nil
}

func encodeDXT(r *raster.Raster, f PixelFormat, alphaSize uint8) []byte {
	w, h := r.Width, r.Height
	out := make([]byte, 0, dxtLen(w, h, f))
	le := binary.LittleEndian

	for by := 0; by < h; by += 4 {
		for bx := 0; bx < w; bx += 4 {
			var px [16]rgba
			for i := 0; i < 16; i++ {
				x, y := min(bx+i%4, w-1), min(by+i/4, h-1)
				red, green, blue, alpha := r.At(x, y)
				px[i] = rgba{red, green, blue, alpha}
			}

			switch f {
			case PixelFormatDXT3:
				var bits uint64
				for i, p := range px {
					bits |= uint64(p[3]>>4) << (4 * i)
				}
				out = le.AppendUint64(out, bits)
			case PixelFormatDXT5:
				out = append(out, encodeAlphaBlock(&px)...)
			}

			punchThrough := f == PixelFormatDXT1 && alphaSize > 0
			out = append(out, encodeColorBlock(&px, punchThrough)...)
		}
	}
	return out
}

func encodeAlphaBlock(px *[16]rgba) []byte {
	lo, hi := uint8(255), uint8(0)
	for _, p := range px {
		lo = min(lo, p[3])
		hi = max(hi, p[3])
	}
	block := make([]byte, 8)
	block[0], block[1] = hi, lo
	if hi == lo {
		return block
	}
	t := alphaTable(hi, lo)
	var bits uint64
	for i, p := range px {
		best, bestD := 0, 1<<30
		for j, v := range t {
			d := int(v) - int(p[3])
			if d < 0 {
				d = -d
			}
			if d < bestD {
				best, bestD = j, d
			}
		}
		bits |= uint64(best) << (3 * i)
	}
	for i := 0; i < 6; i++ {
		block[2+i] = uint8(bits >> (8 * i))
	}
	return block
}

// encodeColorBlock fits endpoints to the bounding box of the block colors.
// With punchThrough, pixels below half alpha use the transparent entry of
// the three-color mode.
func encodeColorBlock(px *[16]rgba, punchThrough bool) []byte {
	lo := rgba{255, 255, 255, 255}
	hi := rgba{}
	transparent := false
	opaque := 0
	for _, p := range px {
		if punchThrough && p[3] < 128 {
			transparent = true
			continue
		}
		opaque++
		for ch := 0; ch < 3; ch++ {
			lo[ch] = min(lo[ch], p[ch])
			hi[ch] = max(hi[ch], p[ch])
		}
	}
	if opaque == 0 {
		lo, hi = rgba{}, rgba{}
	}

	c0, c1 := pack565(hi), pack565(lo)
	threeColor := transparent
	if threeColor {
		if c0 > c1 {
			c0, c1 = c1, c0
		}
	} else if c0 < c1 {
		c0, c1 = c1, c0
	}
	table := colorTable(c0, c1, threeColor || c0 == c1)

	candidates := 4
	if threeColor || c0 == c1 {
		candidates = 3
	}
	var idx uint32
	for i, p := range px {
		sel := 0
		if transparent && p[3] < 128 {
			sel = 3
		} else {
			bestD := 1 << 30
			for j := 0; j < candidates; j++ {
				d := 0
				for ch := 0; ch < 3; ch++ {
					v := int(table[j][ch]) - int(p[ch])
					d += v * v
				}
				if d < bestD {
					sel, bestD = j, d
				}
			}
		}
		idx |= uint32(sel) << (2 * i)
	}

	block := make([]byte, 8)
	binary.LittleEndian.PutUint16(block[0:2], c0)
	binary.LittleEndian.PutUint16(block[2:4], c1)
	binary.LittleEndian.PutUint32(block[4:8], idx)
	return block
}
