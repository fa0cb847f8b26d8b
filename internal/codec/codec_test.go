package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/pngx"
	"github.com/AnyUserName/blpkit/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectDirection(t *testing.T) {
	d, err := DetectDirection(pngBytes(t, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, catalog.ToCompressed, d)

	d, err = DetectDirection([]byte("BLP2 rest of file"))
	require.NoError(t, err)
	assert.Equal(t, catalog.ToRaster, d)

	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, image.NewGray(image.Rect(0, 0, 4, 4)), nil))
	d, err = DetectDirection(jpg.Bytes())
	require.NoError(t, err)
	assert.Equal(t, catalog.ToCompressed, d)

	_, err = DetectDirection([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestImageToBLPAndBack(t *testing.T) {
	reg := NewRegistry()
	toBLP, ok := reg.Get(catalog.ToCompressed)
	require.True(t, ok)

	src, err := toBLP.Source.Decode(pngBytes(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 4, src.Width)

	uncompressed, _ := catalog.Find(catalog.CompressedExport(), "uncompressed")
	data, err := toBLP.Target.Encode(src, uncompressed.Params)
	require.NoError(t, err)
	assert.True(t, blp.IsBLP(data))

	dec, ok := reg.ArtifactDecoder(catalog.ToCompressed)
	require.True(t, ok)
	back, err := RasterDecoder{dec}.DecodeRaster(data)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, back.Pix)

	toPNG, _ := reg.Get(catalog.ToRaster)
	rgba, _ := catalog.Find(catalog.RasterExport(), "rgba-8")
	out, err := toPNG.Target.Encode(back, rgba.Params)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
}

func TestParamsMismatch(t *testing.T) {
	r := raster.New(1, 1)
	_, err := BLPCodec{}.Encode(r, pngx.Options{ColorType: pngx.ColorRGBA, BitDepth: 8})
	assert.ErrorIs(t, err, ErrParams)
	_, err = ImageCodec{}.Encode(r, blp.EncodeOptions{})
	assert.ErrorIs(t, err, ErrParams)
}

func TestImageCodec_DecodeGarbage(t *testing.T) {
	_, err := ImageCodec{}.Decode([]byte("nope"))
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	f := Func{FormatName: "fake"}
	_, err := f.Decode(nil)
	assert.Error(t, err)
	_, err = f.Encode(nil, nil)
	assert.Error(t, err)

	f.DecodeFn = func([]byte) (*raster.Raster, error) { return raster.New(2, 2), nil }
	r, err := f.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Width)
}

func TestRegistry_String(t *testing.T) {
	assert.Equal(t, "codecs: blp-to-png (blp→png), png-to-blp (png→blp)", NewRegistry().String())
	assert.Equal(t, "no codecs available", (&Registry{}).String())
}
