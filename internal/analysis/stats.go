// Package analysis derives pixel statistics from decoded rasters.
//
// Collect performs exactly one linear pass over an RGBA8 buffer and produces
// per-channel histograms and alpha statistics; Metrics compares byte sizes.
// Both are pure and deterministic: the same input always yields a
// bit-identical Result. Analyzer wraps them with artifact decoding, a hard
// timeout and an optional result cache.
package analysis

import (
	"github.com/AnyUserName/blpkit/internal/raster"
)

// Bins is the number of histogram bins per channel.
const Bins = 256

// Histogram holds per-channel value counts.
type Histogram struct {
	R [Bins]int `json:"r" msgpack:"r"`
	G [Bins]int `json:"g" msgpack:"g"`
	B [Bins]int `json:"b" msgpack:"b"`
	A [Bins]int `json:"a" msgpack:"a"`
}

// Grayscale reports whether the three color histograms are identical bin by
// bin. This is a distribution check, not a per-pixel R==G==B check.
func (h *Histogram) Grayscale() bool {
	for i := 0; i < Bins; i++ {
		if h.R[i] != h.G[i] || h.G[i] != h.B[i] {
			return false
		}
	}
	return true
}

// AlphaStatistics summarizes transparency.
type AlphaStatistics struct {
	HasAlpha    bool    `json:"has_alpha" msgpack:"has_alpha"`
	AlphaPixels int     `json:"alpha_pixels" msgpack:"alpha_pixels"` // pixels with alpha < 255
	TotalPixels int     `json:"total_pixels" msgpack:"total_pixels"`
	AvgAlpha    float64 `json:"avg_alpha" msgpack:"avg_alpha"` // mean alpha over all pixels, 0-255
}

// Coverage returns the percentage of pixels that are not fully opaque.
func (s AlphaStatistics) Coverage() float64 {
	if s.TotalPixels <= 0 {
		return 0
	}
	return float64(s.AlphaPixels) / float64(s.TotalPixels) * 100
}

// CompressionMetrics compares an encoded artifact against its source.
type CompressionMetrics struct {
	CompressionRatio float64 `json:"compression_ratio" msgpack:"compression_ratio"` // compressed/original, percent
	SizeSavings      float64 `json:"size_savings" msgpack:"size_savings"`           // (original-compressed)/original, percent
}

// Result aggregates everything one analysis pass produces.
type Result struct {
	Width       int                `json:"width" msgpack:"width"`
	Height      int                `json:"height" msgpack:"height"`
	Histogram   Histogram          `json:"histogram" msgpack:"histogram"`
	Alpha       AlphaStatistics    `json:"alpha" msgpack:"alpha"`
	Compression CompressionMetrics `json:"compression" msgpack:"compression"`
}

// Collect makes a single stride-4 pass over r.
func Collect(r *raster.Raster) (Histogram, AlphaStatistics, error) {
	var h Histogram
	if err := r.Validate(); err != nil {
		return h, AlphaStatistics{}, err
	}

	var alphaSum uint64
	alphaPixels := 0
	pix := r.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		a := pix[i+3]
		h.R[pix[i]]++
		h.G[pix[i+1]]++
		h.B[pix[i+2]]++
		h.A[a]++
		alphaSum += uint64(a)
		if a < 255 {
			alphaPixels++
		}
	}

	total := r.TotalPixels()
	stats := AlphaStatistics{
		HasAlpha:    alphaPixels > 0,
		AlphaPixels: alphaPixels,
		TotalPixels: total,
	}
	if total > 0 {
		stats.AvgAlpha = float64(alphaSum) / float64(total)
	}
	return h, stats, nil
}

// Metrics computes ratio and savings. A non-positive original size yields
// zeros rather than an error.
func Metrics(originalSize, compressedSize int64) CompressionMetrics {
	if originalSize <= 0 {
		return CompressionMetrics{}
	}
	orig := float64(originalSize)
	return CompressionMetrics{
		CompressionRatio: float64(compressedSize) / orig * 100,
		SizeSavings:      float64(originalSize-compressedSize) / orig * 100,
	}
}

// Analyze combines Collect and Metrics for one raster and one size pair.
func Analyze(r *raster.Raster, originalSize, compressedSize int64) (*Result, error) {
	h, alpha, err := Collect(r)
	if err != nil {
		return nil, err
	}
	return &Result{
		Width:       r.Width,
		Height:      r.Height,
		Histogram:   h,
		Alpha:       alpha,
		Compression: Metrics(originalSize, compressedSize),
	}, nil
}
