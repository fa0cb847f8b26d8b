package raster

// AlphaProfile summarizes how the alpha channel is used.
type AlphaProfile struct {
	// HasAlpha is true when any pixel is not fully opaque.
	HasAlpha bool
	// HasPartialAlpha is true when any alpha lies strictly between 0 and 255.
	HasPartialAlpha bool
	// TranslucentPixels counts pixels with alpha < 255.
	TranslucentPixels int
}

// Binary reports transparency made only of fully opaque and fully
// transparent pixels.
func (p AlphaProfile) Binary() bool {
	return p.HasAlpha && !p.HasPartialAlpha
}

// ScanAlpha walks every alpha byte once.
func (r *Raster) ScanAlpha() AlphaProfile {
	var p AlphaProfile
	for i := 3; i < len(r.Pix); i += 4 {
		a := r.Pix[i]
		if a == 255 {
			continue
		}
		p.HasAlpha = true
		p.TranslucentPixels++
		if a > 0 {
			p.HasPartialAlpha = true
		}
	}
	return p
}

// IsOpaque is a fast check that stops at the first non-opaque pixel.
func (r *Raster) IsOpaque() bool {
	for i := 3; i < len(r.Pix); i += 4 {
		if r.Pix[i] != 255 {
			return false
		}
	}
	return true
}

// Luma returns the ITU-R BT.601 luminance of pixel i (pixel index, not byte).
func (r *Raster) Luma(i int) uint8 {
	o := i * 4
	y := (299*uint32(r.Pix[o]) + 587*uint32(r.Pix[o+1]) + 114*uint32(r.Pix[o+2]) + 500) / 1000
	return uint8(y)
}
