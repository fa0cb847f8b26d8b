package blp

import (
	"fmt"
	"image"
	"image/color"

	"github.com/AnyUserName/blpkit/internal/raster"
	"github.com/disintegration/imaging"
)

// ResizeMode controls how non power-of-two sources are fitted.
type ResizeMode int

const (
	// ResizeForce stretches to the next power of two on each axis.
	ResizeForce ResizeMode = iota
	// ResizePad pads right and bottom with transparent pixels.
	ResizePad
	// ResizePadCenter pads evenly on all sides.
	ResizePadCenter
)

func (m ResizeMode) String() string {
	switch m {
	case ResizeForce:
		return "force"
	case ResizePad:
		return "pad"
	case ResizePadCenter:
		return "pad-center"
	default:
		return fmt.Sprintf("resize(%d)", int(m))
	}
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// fitPowerOfTwo returns r unchanged when both sides already are powers of two.
func fitPowerOfTwo(r *raster.Raster, mode ResizeMode) *raster.Raster {
	if isPowerOfTwo(r.Width) && isPowerOfTwo(r.Height) {
		return r
	}
	w, h := nextPowerOfTwo(r.Width), nextPowerOfTwo(r.Height)
	src := r.Image()

	var dst *image.NRGBA
	switch mode {
	case ResizePad:
		dst = imaging.Paste(imaging.New(w, h, color.NRGBA{}), src, image.Pt(0, 0))
	case ResizePadCenter:
		dst = imaging.PasteCenter(imaging.New(w, h, color.NRGBA{}), src)
	default:
		dst = imaging.Resize(src, w, h, imaging.Lanczos)
	}
	return raster.FromImage(dst)
}

func mipLevels(w, h int) int {
	n := 1
	for (w > 1 || h > 1) && n < MaxMipLevels {
		w, h = max(w/2, 1), max(h/2, 1)
		n++
	}
	return n
}

// mipChain builds every level from the full-size image with a box filter.
func mipChain(base *raster.Raster, generate bool) []*raster.Raster {
	chain := []*raster.Raster{base}
	if !generate {
		return chain
	}
	src := base.Image()
	for level := 1; level < mipLevels(base.Width, base.Height); level++ {
		w, h := mipDims(base.Width, base.Height, level)
		chain = append(chain, raster.FromImage(imaging.Resize(src, w, h, imaging.Box)))
	}
	return chain
}
