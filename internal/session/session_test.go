package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/codec"
	"github.com/AnyUserName/blpkit/internal/logging"
	"github.com/AnyUserName/blpkit/internal/preview"
	"github.com/AnyUserName/blpkit/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder wraps a codec, records every encode and can hold the first one.
type recorder struct {
	codec.Codec

	mu      sync.Mutex
	encoded []string
	started chan string
	hold    chan struct{}
	fail    map[string]error
}

func newRecorder(c codec.Codec) *recorder {
	return &recorder{Codec: c, started: make(chan string, 16), fail: map[string]error{}}
}

func (p *recorder) Encode(r *raster.Raster, params catalog.Params) ([]byte, error) {
	p.mu.Lock()
	p.encoded = append(p.encoded, params.String())
	n := len(p.encoded)
	err := p.fail[params.String()]
	p.mu.Unlock()

	p.started <- params.String()
	if n == 1 && p.hold != nil {
		<-p.hold
	}
	if err != nil {
		return nil, err
	}
	return p.Codec.Encode(r, params)
}

func (p *recorder) Encodes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.encoded...)
}

func paramsOf(t *testing.T, cands []catalog.Candidate, id string) string {
	t.Helper()
	c, ok := catalog.Find(cands, id)
	require.True(t, ok, id)
	return c.Params.String()
}

func opaqueRaster(w, h int) *raster.Raster {
	r := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.Set(x, y, uint8(x*4), uint8(y*4), 90, 255)
		}
	}
	return r
}

func pngSource(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// blpSource is an opaque texture whose header still declares 8-bit alpha.
func blpSource(t *testing.T) []byte {
	t.Helper()
	data, err := blp.Encode(opaqueRaster(64, 64), blp.EncodeOptions{
		Compression:     blp.EncodingARGB8888,
		PreferredFormat: blp.PixelFormatARGB8888,
		AlphaSize:       8,
	})
	require.NoError(t, err)
	return data
}

func newSession(compressed, rasterCodec codec.Codec, opts ...Option) (*Session, *preview.Registry) {
	previews := preview.NewRegistry(nil)
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(codec.NewRegistryWith(compressed, rasterCodec), previews, opts...), previews
}

func TestLoad_EagerAnalysisUpgradesDefault(t *testing.T) {
	out := newRecorder(codec.ImageCodec{})
	s, previews := newSession(codec.BLPCodec{}, out)

	require.NoError(t, s.Load(context.Background(), "tex.blp", blpSource(t)))

	cands := catalog.RasterExport()
	assert.Equal(t, []string{paramsOf(t, cands, "rgba-8"), paramsOf(t, cands, "rgb-8")}, out.Encodes())

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "rgb-8", snap.Applied)
	assert.Equal(t, "rgba-8", snap.UpgradedFrom)
	assert.Equal(t, 64, snap.Width)
	assert.True(t, snap.SourceAlpha)
	assert.Equal(t, "tex.rgb.png", snap.Converted.Name)
	require.NotNil(t, snap.Analysis)
	assert.Zero(t, snap.Analysis.Alpha.AlphaPixels)
	def, _ := catalog.Default(snap.Candidates)
	assert.Equal(t, "rgb-8", def.ID)
	assert.Equal(t, 2, previews.Live())

	require.NotNil(t, s.Header())
	assert.True(t, s.Header().HasAlphaChannel())
}

func TestLoad_WithoutEagerAnalysisKeepsHeaderDefault(t *testing.T) {
	out := newRecorder(codec.ImageCodec{})
	s, _ := newSession(codec.BLPCodec{}, out, WithEagerAnalysis(false))

	require.NoError(t, s.Load(context.Background(), "tex.blp", blpSource(t)))

	assert.Len(t, out.Encodes(), 1)
	snap := s.Snapshot()
	assert.Equal(t, "rgba-8", snap.Applied)
	assert.Nil(t, snap.Analysis)
	c, _ := catalog.Find(snap.Candidates, "rgba-8")
	assert.Equal(t, "Source has alpha channel", c.Reason)
}

func TestSelect_CoalescesWhileEncoding(t *testing.T) {
	ctx := context.Background()
	comp := newRecorder(codec.BLPCodec{})
	comp.hold = make(chan struct{})
	s, _ := newSession(comp, codec.ImageCodec{})

	src := pngSource(t, 8, 8)
	done := make(chan error, 1)
	go func() { done <- s.Load(ctx, "icon.png", src) }()
	<-comp.started
	assert.Equal(t, EncodingDefault, s.State())

	require.NoError(t, s.Select(ctx, "dxt3"))
	require.NoError(t, s.Select(ctx, "dxt5"))
	close(comp.hold)
	require.NoError(t, <-done)

	cands := catalog.CompressedExport()
	assert.Equal(t, []string{paramsOf(t, cands, "dxt1"), paramsOf(t, cands, "dxt5")}, comp.Encodes())

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "dxt5", snap.Selected)
	assert.Equal(t, "dxt5", snap.Applied)
	assert.Equal(t, "icon.dxt5.blp", snap.Converted.Name)

	data, cand, ok := s.Artifact()
	require.True(t, ok)
	assert.Equal(t, "dxt5", cand.ID)
	assert.True(t, blp.IsBLP(data))
}

func TestSelect_SameCandidateIsNoop(t *testing.T) {
	ctx := context.Background()
	comp := newRecorder(codec.BLPCodec{})
	s, _ := newSession(comp, codec.ImageCodec{})

	require.NoError(t, s.Load(ctx, "icon.png", pngSource(t, 8, 8)))
	require.NoError(t, s.Select(ctx, "dxt1"))
	assert.Len(t, comp.Encodes(), 1)

	require.NoError(t, s.Select(ctx, "palette-8"))
	assert.Len(t, comp.Encodes(), 2)

	err := s.Select(ctx, "bogus")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
}

func TestLoad_StaleLoadIsSuperseded(t *testing.T) {
	ctx := context.Background()
	comp := newRecorder(codec.BLPCodec{})
	comp.hold = make(chan struct{})
	s, previews := newSession(comp, codec.ImageCodec{})

	srcA, srcB := pngSource(t, 8, 8), pngSource(t, 4, 4)
	done := make(chan error, 1)
	go func() { done <- s.Load(ctx, "a.png", srcA) }()
	<-comp.started

	require.NoError(t, s.Load(ctx, "b.png", srcB))
	close(comp.hold)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	snap := s.Snapshot()
	assert.Equal(t, "b.png", snap.Name)
	assert.Equal(t, "b.dxt1.blp", snap.Converted.Name)
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, 2, previews.Live())

	data, _, ok := s.Artifact()
	require.True(t, ok)
	h, err := blp.ReadHeader(data)
	require.NoError(t, err)
	assert.EqualValues(t, 4, h.Width)
}

func TestAnalysis_TimeoutIsNotFatal(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	rasterCodec := codec.Func{
		FormatName: "png",
		DecodeFn: func([]byte) (*raster.Raster, error) {
			<-release
			return nil, errors.New("too late")
		},
		EncodeFn: codec.ImageCodec{}.Encode,
	}
	a := analysis.New(analysis.WithTimeout(20*time.Millisecond), analysis.WithLogger(logging.Discard()))
	s, _ := newSession(codec.BLPCodec{}, rasterCodec, WithAnalyzer(a))

	require.NoError(t, s.Load(context.Background(), "tex.blp", blpSource(t)))

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.NoError(t, snap.Err)
	assert.Equal(t, "rgba-8", snap.Applied)
	assert.Nil(t, snap.Analysis)
	require.Error(t, snap.AnalysisErr)
	assert.ErrorIs(t, snap.AnalysisErr, analysis.ErrTimeout)

	var se *Error
	require.True(t, errors.As(snap.AnalysisErr, &se))
	assert.Equal(t, KindAnalysisTimeout, se.Kind)
	assert.False(t, se.Kind.Fatal())

	// The same artifact is not analyzed again.
	assert.NoError(t, s.RequestAnalysis(context.Background()))
}

func TestAnalysis_DisableDropsLateResult(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	rasterCodec := codec.Func{
		FormatName: "png",
		DecodeFn: func(data []byte) (*raster.Raster, error) {
			started <- struct{}{}
			<-release
			return codec.ImageCodec{}.Decode(data)
		},
		EncodeFn: codec.ImageCodec{}.Encode,
	}
	s, _ := newSession(codec.BLPCodec{}, rasterCodec, WithEagerAnalysis(false))
	require.NoError(t, s.Load(context.Background(), "tex.blp", blpSource(t)))

	done := make(chan error, 1)
	go func() { done <- s.RequestAnalysis(context.Background()) }()
	<-started
	assert.Equal(t, Analyzing, s.State())

	s.DisableAnalysis()
	close(release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Nil(t, snap.Analysis)
	assert.NoError(t, snap.AnalysisErr)
}

func TestAnalysis_CompressedArtifact(t *testing.T) {
	s, _ := newSession(codec.BLPCodec{}, codec.ImageCodec{})
	src := pngSource(t, 8, 8)
	require.NoError(t, s.Load(context.Background(), "icon.png", src))
	assert.Nil(t, s.Snapshot().Analysis, "no eager pass towards BLP")

	require.NoError(t, s.RequestAnalysis(context.Background()))
	snap := s.Snapshot()
	require.NotNil(t, snap.Analysis)
	assert.Equal(t, 8, snap.Analysis.Width)
	assert.Equal(t, len(src), snap.SourceSize)

	// A new selection is analyzed automatically while analysis is on.
	require.NoError(t, s.Select(context.Background(), "uncompressed"))
	snap = s.Snapshot()
	require.NotNil(t, snap.Analysis)
	assert.Less(t, snap.Analysis.Compression.SizeSavings, 0.0)
}

func TestEncodeFailure_RecoversOnSelect(t *testing.T) {
	ctx := context.Background()
	comp := newRecorder(codec.BLPCodec{})
	cands := catalog.CompressedExport()
	comp.fail[paramsOf(t, cands, "dxt1")] = errors.New("encoder exploded")
	s, _ := newSession(comp, codec.ImageCodec{})

	err := s.Load(ctx, "icon.png", pngSource(t, 8, 8))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
	assert.Equal(t, Failed, s.State())
	_, _, ok := s.Artifact()
	assert.False(t, ok)

	require.NoError(t, s.Select(ctx, "dxt5"))
	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.NoError(t, snap.Err)
	assert.Equal(t, "dxt5", snap.Applied)
}

func TestDecodeFailure_IsFatal(t *testing.T) {
	ctx := context.Background()
	s, previews := newSession(codec.BLPCodec{}, codec.ImageCodec{})

	err := s.Load(ctx, "junk.bin", []byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, Failed, s.State())
	assert.ErrorIs(t, s.Select(ctx, "dxt1"), ErrNotReady)
	assert.Zero(t, previews.Live())

	truncated := blpSource(t)[:200]
	err = s.Load(ctx, "short.blp", truncated)
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, blp.ErrTruncated)
}

func TestClose_ReleasesPreviews(t *testing.T) {
	s, previews := newSession(codec.BLPCodec{}, codec.ImageCodec{})
	require.NoError(t, s.Load(context.Background(), "icon.png", pngSource(t, 8, 8)))
	assert.Equal(t, 2, previews.Live())

	require.NoError(t, s.Close())
	assert.Zero(t, previews.Live())
	assert.Equal(t, Idle, s.State())
	_, _, ok := s.Artifact()
	assert.False(t, ok)
}

func TestNew_UniqueIDs(t *testing.T) {
	a := New(nil, nil, WithLogger(logging.Discard()))
	b := New(nil, nil, WithLogger(logging.Discard()))
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, "encoding-default", EncodingDefault.String())
}

// flakyStore fails every Put once broken is set.
type flakyStore struct {
	*preview.MemoryStore
	broken atomic.Bool
}

func (s *flakyStore) Put(id string, data []byte) (string, error) {
	if s.broken.Load() {
		return "", errors.New("disk full")
	}
	return s.MemoryStore.Put(id, data)
}

func TestEncode_PreviewFailureReleasesStaleHandle(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: preview.NewMemoryStore()}
	previews := preview.NewRegistry(store)
	s := New(codec.NewRegistryWith(codec.BLPCodec{}, codec.ImageCodec{}), previews, WithLogger(logging.Discard()))

	require.NoError(t, s.Load(ctx, "icon.png", pngSource(t, 8, 8)))
	_, ok := previews.Current(preview.RoleConverted)
	require.True(t, ok)

	store.broken.Store(true)
	require.NoError(t, s.Select(ctx, "uncompressed"))

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "uncompressed", snap.Applied)
	assert.Empty(t, snap.Converted.ID)
	_, ok = previews.Current(preview.RoleConverted)
	assert.False(t, ok, "the dxt1 preview must not outlive its artifact")
	assert.Equal(t, 1, store.Len())

	// The artifact is still analyzable without a preview handle.
	require.NoError(t, s.RequestAnalysis(ctx))
	snap = s.Snapshot()
	require.NotNil(t, snap.Analysis)
	assert.Equal(t, 8, snap.Analysis.Width)
}

func TestAnalysis_SecondRequestWhileAnalyzingIsNoop(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	rasterCodec := codec.Func{
		FormatName: "png",
		DecodeFn: func(data []byte) (*raster.Raster, error) {
			calls.Add(1)
			started <- struct{}{}
			<-release
			return codec.ImageCodec{}.Decode(data)
		},
		EncodeFn: codec.ImageCodec{}.Encode,
	}
	s, _ := newSession(codec.BLPCodec{}, rasterCodec, WithEagerAnalysis(false))
	require.NoError(t, s.Load(context.Background(), "tex.blp", blpSource(t)))

	first := make(chan error, 1)
	go func() { first <- s.RequestAnalysis(context.Background()) }()
	<-started
	require.Equal(t, Analyzing, s.State())

	second := make(chan error, 1)
	go func() { second <- s.RequestAnalysis(context.Background()) }()
	select {
	case err := <-second:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second request waited for the running analysis")
	}
	assert.Equal(t, Analyzing, s.State())

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), calls.Load())

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	require.NotNil(t, snap.Analysis)
}

func TestAnalysis_CancelIsNotRasterFailure(t *testing.T) {
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	rasterCodec := codec.Func{
		FormatName: "png",
		DecodeFn: func(data []byte) (*raster.Raster, error) {
			started <- struct{}{}
			<-release
			return codec.ImageCodec{}.Decode(data)
		},
		EncodeFn: codec.ImageCodec{}.Encode,
	}
	s, _ := newSession(codec.BLPCodec{}, rasterCodec, WithEagerAnalysis(false))
	require.NoError(t, s.Load(context.Background(), "tex.blp", blpSource(t)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RequestAnalysis(ctx) }()
	<-started
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, analysis.ErrRasterUnavailable)
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindCanceled, se.Kind)

	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.NoError(t, snap.AnalysisErr)
	assert.Nil(t, snap.Analysis)

	// The artifact was not marked analyzed, so a new request runs.
	close(release)
	require.NoError(t, s.RequestAnalysis(context.Background()))
	assert.NotNil(t, s.Snapshot().Analysis)
}

func TestSelect_CanceledContextIsNotEncodeFailure(t *testing.T) {
	comp := newRecorder(codec.BLPCodec{})
	s, _ := newSession(comp, codec.ImageCodec{})
	require.NoError(t, s.Load(context.Background(), "icon.png", pngSource(t, 8, 8)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Select(ctx, "dxt5")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrEncode)
	assert.Equal(t, Failed, s.State())
	assert.Len(t, comp.Encodes(), 1, "no encode after cancellation")

	require.NoError(t, s.Select(context.Background(), "dxt5"))
	snap := s.Snapshot()
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "dxt5", snap.Applied)
}
