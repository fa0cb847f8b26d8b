// Package codec adapts the texture and image codecs to one byte-in,
// raster-out contract.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/pngx"
	"github.com/AnyUserName/blpkit/internal/raster"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrParams is returned when a codec receives parameters of another codec.
	ErrParams = errors.New("codec: parameters do not match codec")
	// ErrUnknownFormat is returned when no codec recognizes the input.
	ErrUnknownFormat = errors.New("codec: unrecognized input format")
)

// Codec converts between encoded bytes and rasters.
type Codec interface {
	// Name returns the format name ("blp", "png").
	Name() string

	// Decode turns encoded bytes into pixels.
	Decode(data []byte) (*raster.Raster, error)

	// Encode writes pixels with the given candidate parameters.
	Encode(r *raster.Raster, params catalog.Params) ([]byte, error)
}

// RasterDecoder adapts a Codec to analysis.RasterDecoder.
type RasterDecoder struct{ Codec }

// DecodeRaster implements analysis.RasterDecoder.
func (d RasterDecoder) DecodeRaster(data []byte) (*raster.Raster, error) {
	return d.Decode(data)
}

// BLPCodec reads and writes BLP2 textures.
type BLPCodec struct{}

func (BLPCodec) Name() string { return "blp" }

func (BLPCodec) Decode(data []byte) (*raster.Raster, error) {
	return blp.Decode(data)
}

func (BLPCodec) Encode(r *raster.Raster, params catalog.Params) ([]byte, error) {
	opts, ok := params.(blp.EncodeOptions)
	if !ok {
		return nil, fmt.Errorf("%w: blp got %T", ErrParams, params)
	}
	return blp.Encode(r, opts)
}

// ImageCodec decodes any registered image format (PNG, JPEG, GIF, BMP,
// TIFF, WebP) and encodes PNG.
type ImageCodec struct{}

func (ImageCodec) Name() string { return "png" }

func (ImageCodec) Decode(data []byte) (*raster.Raster, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return raster.FromImage(img), nil
}

func (ImageCodec) Encode(r *raster.Raster, params catalog.Params) ([]byte, error) {
	opts, ok := params.(pngx.Options)
	if !ok {
		return nil, fmt.Errorf("%w: png got %T", ErrParams, params)
	}
	return pngx.Encode(r, opts)
}

// Func builds a Codec from functions. Nil functions fail.
type Func struct {
	FormatName string
	DecodeFn   func(data []byte) (*raster.Raster, error)
	EncodeFn   func(r *raster.Raster, params catalog.Params) ([]byte, error)
}

func (f Func) Name() string { return f.FormatName }

func (f Func) Decode(data []byte) (*raster.Raster, error) {
	if f.DecodeFn == nil {
		return nil, fmt.Errorf("%s: decode not supported", f.FormatName)
	}
	return f.DecodeFn(data)
}

func (f Func) Encode(r *raster.Raster, params catalog.Params) ([]byte, error) {
	if f.EncodeFn == nil {
		return nil, fmt.Errorf("%s: encode not supported", f.FormatName)
	}
	return f.EncodeFn(r, params)
}

var (
	_ Codec = BLPCodec{}
	_ Codec = ImageCodec{}
	_ Codec = Func{}
)
