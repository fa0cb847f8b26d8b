// Package recommend ranks catalog candidates for a concrete image.
//
// The engine never fails: malformed input or an internal panic falls back
// to a static recommendation and is reported through the context logger
// (and an optional OnFallback hook), never through a return value.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/logging"
	"github.com/AnyUserName/blpkit/internal/raster"
)

// ErrMalformed marks input the rules refuse to evaluate.
var ErrMalformed = errors.New("malformed recommendation input")

// SourceInfo is what a container header reveals before any pixel is decoded.
type SourceInfo struct {
	HasAlphaChannel bool
	Width           int
	Height          int
}

// SourceInfoFromHeader extracts SourceInfo from a BLP header.
func SourceInfoFromHeader(h *blp.Header) *SourceInfo {
	if h == nil {
		return nil
	}
	return &SourceInfo{
		HasAlphaChannel: h.HasAlphaChannel(),
		Width:           int(h.Width),
		Height:          int(h.Height),
	}
}

// Option configures one engine call.
type Option func(*settings)

type settings struct {
	onFallback func(error)
}

// OnFallback registers fn to receive the cause whenever the static
// recommendation is used.
func OnFallback(fn func(error)) Option {
	return func(s *settings) { s.onFallback = fn }
}

// Size limits for the small-image rules.
const (
	smallGrayMax  = 32
	smallColorMax = 48
)

// ForRaster annotates BLP→PNG candidates.
//
// With an analysis result the choice is data driven: alpha coverage picks
// RGBA or RGB, and small opaque images additionally get a 4-bit candidate.
// Without one, only the source header's alpha flag is used. With neither,
// the catalog comes back unannotated.
func ForRaster(ctx context.Context, cands []catalog.Candidate, res *analysis.Result, src *SourceInfo, opts ...Option) (out []catalog.Candidate) {
	static := staticRaster(cands, src)
	defer recoverWith(ctx, "raster", static, &out, opts)

	ranked, err := rasterRules(cands, res, src)
	if err != nil {
		return fallback(ctx, "raster", err, static, opts)
	}
	return ranked
}

// ForCompressed annotates PNG→BLP candidates from the source pixels and
// returns them recommended-first, otherwise in catalog order. The fallback
// is the catalog's own static recommendation.
func ForCompressed(ctx context.Context, cands []catalog.Candidate, r *raster.Raster, opts ...Option) (out []catalog.Candidate) {
	static := copyOf(cands)
	defer recoverWith(ctx, "compressed", static, &out, opts)

	ranked, err := compressedRules(cands, r)
	if err != nil {
		return fallback(ctx, "compressed", err, static, opts)
	}
	return ranked
}

// rasterRules and compressedRules are variables so tests can force a panic.
var (
	rasterRules     = applyRasterRules
	compressedRules = applyCompressedRules
)

func recoverWith(ctx context.Context, direction string, static []catalog.Candidate, out *[]catalog.Candidate, opts []Option) {
	if p := recover(); p != nil {
		*out = fallback(ctx, direction, fmt.Errorf("panic: %v", p), static, opts)
	}
}

func fallback(ctx context.Context, direction string, cause error, static []catalog.Candidate, opts []Option) []catalog.Candidate {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	logging.FromContext(ctx).Warn("recommendation failed, using static list", "direction", direction, "err", cause)
	if s.onFallback != nil {
		s.onFallback(cause)
	}
	return static
}

func copyOf(cands []catalog.Candidate) []catalog.Candidate {
	if cands == nil {
		return nil
	}
	out := make([]catalog.Candidate, len(cands))
	copy(out, cands)
	return out
}

func clearAll(cands []catalog.Candidate) []catalog.Candidate {
	out := copyOf(cands)
	for i := range out {
		out[i].Recommended = false
		out[i].Reason = ""
	}
	return out
}

func mark(cands []catalog.Candidate, id, reason string) {
	for i := range cands {
		if cands[i].ID == id {
			cands[i].Recommended = true
			cands[i].Reason = reason
			return
		}
	}
}

// staticRaster applies the header-only rule, or nothing without a header.
func staticRaster(cands []catalog.Candidate, src *SourceInfo) []catalog.Candidate {
	out := clearAll(cands)
	if src == nil {
		return out
	}
	if src.HasAlphaChannel {
		mark(out, "rgba-8", "Source has alpha channel")
	} else {
		mark(out, "rgb-8", "No alpha channel in source")
	}
	return out
}

func applyRasterRules(cands []catalog.Candidate, res *analysis.Result, src *SourceInfo) ([]catalog.Candidate, error) {
	if res == nil {
		if src == nil {
			return copyOf(cands), nil
		}
		return staticRaster(cands, src), nil
	}
	if res.Alpha.TotalPixels < 0 || res.Alpha.AlphaPixels < 0 || res.Alpha.AlphaPixels > res.Alpha.TotalPixels {
		return nil, fmt.Errorf("%w: %d of %d alpha pixels", ErrMalformed, res.Alpha.AlphaPixels, res.Alpha.TotalPixels)
	}

	out := clearAll(cands)
	coverage := res.Alpha.Coverage()
	hasAlpha := coverage > 0
	hasColor := !res.Histogram.Grayscale()

	w, h := res.Width, res.Height
	if src != nil {
		w, h = src.Width, src.Height
	}

	if hasAlpha {
		mark(out, "rgba-8", fmt.Sprintf("Alpha coverage: %.1f%% (preserving transparency)", coverage))
	} else {
		mark(out, "rgb-8", "Alpha coverage: 0.0% (no alpha content, RGB recommended)")
	}

	switch {
	case w <= smallGrayMax && h <= smallGrayMax && !hasAlpha && !hasColor:
		mark(out, "grayscale-4", fmt.Sprintf("Very small grayscale image (%dx%d) - 4-bit grayscale recommended", w, h))
	case w <= smallColorMax && h <= smallColorMax && !hasAlpha && hasColor:
		mark(out, "palette-4", fmt.Sprintf("Small colored image (%dx%d) - palette compression recommended", w, h))
	}
	return out, nil
}

func applyCompressedRules(cands []catalog.Candidate, r *raster.Raster) ([]catalog.Candidate, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	p := r.ScanAlpha()

	out := make([]catalog.Candidate, len(cands))
	for i, c := range cands {
		recommended, reason := false, ""
		if p.HasAlpha {
			switch {
			case c.ID == "dxt5":
				recommended = true
				reason = "Image has transparency - DXT5 recommended for alpha support"
				if p.HasPartialAlpha {
					reason = "Image has smooth alpha gradients - DXT5 provides best quality"
				}
			case c.ID == "dxt3" && !p.HasPartialAlpha:
				recommended = true
				reason = "Image has binary transparency - DXT3 is more efficient"
			case c.ID == "dxt1":
				reason = "DXT1 doesn't support alpha - not suitable for transparent images"
			}
		} else {
			switch c.ID {
			case "dxt1":
				recommended = true
				reason = "Opaque image - DXT1 provides best compression"
			case "dxt5":
				reason = "No alpha needed - DXT1 would be more efficient"
			}
		}
		if reason == "" {
			reason = c.Reason
		}
		c.Recommended = recommended
		c.Reason = reason
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Recommended && !out[j].Recommended
	})
	return out, nil
}
