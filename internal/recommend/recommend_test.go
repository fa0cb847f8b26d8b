package recommend

import (
	"bytes"
	"context"
	"testing"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/logging"
	"github.com/AnyUserName/blpkit/internal/raster"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietCtx() context.Context {
	return logging.WithLogger(context.Background(), logging.Discard())
}

func fill(w, h int, px func(x, y int) [4]uint8) *raster.Raster {
	r := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := px(x, y)
			r.Set(x, y, p[0], p[1], p[2], p[3])
		}
	}
	return r
}

func analyze(t *testing.T, r *raster.Raster) *analysis.Result {
	t.Helper()
	res, err := analysis.Analyze(r, 1000, 500)
	require.NoError(t, err)
	return res
}

func recommendedIDs(cands []catalog.Candidate) []string {
	return catalog.IDs(catalog.Recommended(cands))
}

func TestForRaster_OpaqueColorPicksRGB(t *testing.T) {
	r := fill(64, 64, func(x, y int) [4]uint8 { return [4]uint8{uint8(x), uint8(y), 9, 255} })
	out := ForRaster(quietCtx(), catalog.RasterExport(), analyze(t, r), &SourceInfo{HasAlphaChannel: true, Width: 64, Height: 64})

	assert.Equal(t, []string{"rgb-8"}, recommendedIDs(out))
	c, _ := catalog.Find(out, "rgb-8")
	assert.Equal(t, "Alpha coverage: 0.0% (no alpha content, RGB recommended)", c.Reason)
	d, _ := catalog.Default(out)
	assert.Equal(t, "rgb-8", d.ID)
}

func TestForRaster_AlphaPicksRGBA(t *testing.T) {
	r := fill(10, 10, func(x, y int) [4]uint8 {
		if x == 0 && y < 3 {
			return [4]uint8{1, 2, 3, 100}
		}
		return [4]uint8{1, 2, 3, 255}
	})
	out := ForRaster(quietCtx(), catalog.RasterExport(), analyze(t, r), nil)

	assert.Equal(t, []string{"rgba-8"}, recommendedIDs(out))
	c, _ := catalog.Find(out, "rgba-8")
	assert.Equal(t, "Alpha coverage: 3.0% (preserving transparency)", c.Reason)
}

func TestForRaster_SmallGrayscale(t *testing.T) {
	r := fill(16, 16, func(x, y int) [4]uint8 { v := uint8(x * 16); return [4]uint8{v, v, v, 255} })
	out := ForRaster(quietCtx(), catalog.RasterExport(), analyze(t, r), nil)

	assert.Equal(t, []string{"rgb-8", "grayscale-4"}, recommendedIDs(out))
	c, _ := catalog.Find(out, "grayscale-4")
	assert.Equal(t, "Very small grayscale image (16x16) - 4-bit grayscale recommended", c.Reason)
}

func TestForRaster_SmallColor(t *testing.T) {
	r := fill(40, 48, func(x, y int) [4]uint8 { return [4]uint8{200, uint8(y), 0, 255} })
	out := ForRaster(quietCtx(), catalog.RasterExport(), analyze(t, r), nil)

	assert.Equal(t, []string{"rgb-8", "palette-4"}, recommendedIDs(out))
	c, _ := catalog.Find(out, "palette-4")
	assert.Equal(t, "Small colored image (40x48) - palette compression recommended", c.Reason)
}

func TestForRaster_SourceDimensionsWin(t *testing.T) {
	r := fill(16, 16, func(x, y int) [4]uint8 { return [4]uint8{9, 9, 9, 255} })
	out := ForRaster(quietCtx(), catalog.RasterExport(), analyze(t, r), &SourceInfo{Width: 256, Height: 256})
	assert.Equal(t, []string{"rgb-8"}, recommendedIDs(out))
}

func TestForRaster_HeaderOnly(t *testing.T) {
	out := ForRaster(quietCtx(), catalog.RasterExport(), nil, &SourceInfo{HasAlphaChannel: true})
	assert.Equal(t, []string{"rgba-8"}, recommendedIDs(out))
	c, _ := catalog.Find(out, "rgba-8")
	assert.Equal(t, "Source has alpha channel", c.Reason)

	out = ForRaster(quietCtx(), catalog.RasterExport(), nil, &SourceInfo{})
	assert.Equal(t, []string{"rgb-8"}, recommendedIDs(out))
	c, _ = catalog.Find(out, "rgb-8")
	assert.Equal(t, "No alpha channel in source", c.Reason)
}

func TestForRaster_NothingKnown(t *testing.T) {
	out := ForRaster(quietCtx(), catalog.RasterExport(), nil, nil)
	assert.Equal(t, catalog.RasterExport(), out)
}

func TestForRaster_DoesNotMutateInput(t *testing.T) {
	in := catalog.RasterExport()
	r := fill(4, 4, func(x, y int) [4]uint8 { return [4]uint8{0, 0, 0, 0} })
	_ = ForRaster(quietCtx(), in, analyze(t, r), nil)
	assert.Equal(t, catalog.RasterExport(), in)
}

func TestForRaster_Deterministic(t *testing.T) {
	r := fill(30, 30, func(x, y int) [4]uint8 { return [4]uint8{uint8(x), 0, uint8(y), uint8(x * 8)} })
	res := analyze(t, r)
	a := ForRaster(quietCtx(), catalog.RasterExport(), res, nil)
	b := ForRaster(quietCtx(), catalog.RasterExport(), res, nil)
	assert.Equal(t, a, b)
}

func TestForRaster_MalformedFallsBack(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, log.WarnLevel))
	var cause error

	res := &analysis.Result{Alpha: analysis.AlphaStatistics{AlphaPixels: 5, TotalPixels: 1}}
	out := ForRaster(ctx, catalog.RasterExport(), res, &SourceInfo{HasAlphaChannel: true}, OnFallback(func(err error) { cause = err }))

	assert.Equal(t, []string{"rgba-8"}, recommendedIDs(out))
	assert.ErrorIs(t, cause, ErrMalformed)
	assert.Contains(t, buf.String(), "recommendation failed")
}

func TestForRaster_PanicFallsBack(t *testing.T) {
	orig := rasterRules
	rasterRules = func([]catalog.Candidate, *analysis.Result, *SourceInfo) ([]catalog.Candidate, error) {
		panic("boom")
	}
	defer func() { rasterRules = orig }()

	var cause error
	out := ForRaster(quietCtx(), catalog.RasterExport(), &analysis.Result{}, nil, OnFallback(func(err error) { cause = err }))
	assert.Len(t, out, 7)
	assert.Empty(t, recommendedIDs(out))
	require.Error(t, cause)
	assert.Contains(t, cause.Error(), "boom")
}

func TestForCompressed_Opaque(t *testing.T) {
	r := fill(8, 8, func(x, y int) [4]uint8 { return [4]uint8{1, 2, 3, 255} })
	out := ForCompressed(quietCtx(), catalog.CompressedExport(), r)

	assert.Equal(t, []string{"dxt1"}, recommendedIDs(out))
	assert.Equal(t, "dxt1", out[0].ID)
	assert.Equal(t, []string{"dxt1", "dxt3", "dxt5", "palette-8", "palette-1", "uncompressed"}, catalog.IDs(out))

	dxt5, _ := catalog.Find(out, "dxt5")
	assert.False(t, dxt5.Recommended)
	assert.Equal(t, "No alpha needed - DXT1 would be more efficient", dxt5.Reason)
	dxt1, _ := catalog.Find(out, "dxt1")
	assert.Equal(t, "Opaque image - DXT1 provides best compression", dxt1.Reason)
}

func TestForCompressed_BinaryAlphaPrefersDXT3(t *testing.T) {
	r := fill(8, 8, func(x, y int) [4]uint8 {
		if x < 4 {
			return [4]uint8{1, 2, 3, 0}
		}
		return [4]uint8{1, 2, 3, 255}
	})
	out := ForCompressed(quietCtx(), catalog.CompressedExport(), r)

	assert.Equal(t, []string{"dxt3", "dxt5"}, recommendedIDs(out))
	d, _ := catalog.Default(out)
	assert.Equal(t, "dxt3", d.ID)
	assert.Equal(t, "Image has binary transparency - DXT3 is more efficient", out[0].Reason)
	assert.Equal(t, "Image has transparency - DXT5 recommended for alpha support", out[1].Reason)

	dxt1, _ := catalog.Find(out, "dxt1")
	assert.False(t, dxt1.Recommended)
	assert.Equal(t, "DXT1 doesn't support alpha - not suitable for transparent images", dxt1.Reason)
}

func TestForCompressed_PartialAlphaPrefersDXT5(t *testing.T) {
	r := fill(8, 8, func(x, y int) [4]uint8 { return [4]uint8{1, 2, 3, uint8(x * 30)} })
	out := ForCompressed(quietCtx(), catalog.CompressedExport(), r)

	assert.Equal(t, []string{"dxt5"}, recommendedIDs(out))
	d, _ := catalog.Default(out)
	assert.Equal(t, "dxt5", d.ID)
	assert.Equal(t, "Image has smooth alpha gradients - DXT5 provides best quality", d.Reason)

	dxt3, _ := catalog.Find(out, "dxt3")
	assert.False(t, dxt3.Recommended)
	assert.Equal(t, "Good for textures with sharp alpha edges", dxt3.Reason)
}

func TestForCompressed_StableOrder(t *testing.T) {
	r := fill(2, 2, func(x, y int) [4]uint8 { return [4]uint8{0, 0, 0, 0} })
	out := ForCompressed(quietCtx(), catalog.CompressedExport(), r)
	assert.Equal(t, []string{"dxt3", "dxt5", "dxt1", "palette-8", "palette-1", "uncompressed"}, catalog.IDs(out))
}

func TestForCompressed_MalformedRasterUsesStaticList(t *testing.T) {
	var called bool
	bad := &raster.Raster{Width: 4, Height: 4, Pix: make([]byte, 3)}
	out := ForCompressed(quietCtx(), catalog.CompressedExport(), bad, OnFallback(func(error) { called = true }))

	assert.True(t, called)
	assert.Equal(t, catalog.CompressedExport(), out)
	assert.Equal(t, []string{"dxt1", "dxt5"}, recommendedIDs(out))
}

func TestSourceInfoFromHeader(t *testing.T) {
	assert.Nil(t, SourceInfoFromHeader(nil))
}
