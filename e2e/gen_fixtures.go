//go:build ignore

// gen_fixtures creates small sources for the convert smoke test: images
// that exercise every compressed-export rule and BLP textures that exercise
// every raster-export rule.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/raster"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	for _, sub := range []string{"images", "textures"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			fail(err)
		}
	}

	// Opaque photo → dxt1.
	writeJPEG(filepath.Join(dir, "images", "banner.jpg"), gradient(400, 225, nil))
	// Binary mask → dxt3.
	writePNG(filepath.Join(dir, "images", "mask.png"), gradient(96, 96, func(x, y int) uint8 {
		if (x/16+y/16)%2 == 0 {
			return 0
		}
		return 255
	}))
	// Soft edge → dxt5.
	writePNG(filepath.Join(dir, "images", "glow.png"), gradient(128, 64, func(x, _ int) uint8 {
		return uint8(x * 255 / 128)
	}))

	// Alpha texture → rgba-8.
	writeBLP(filepath.Join(dir, "textures", "armor.blp"), gradient(128, 128, func(x, y int) uint8 {
		return uint8((x + y) % 256)
	}), blp.EncodeOptions{Compression: blp.EncodingDXT, PreferredFormat: blp.PixelFormatDXT5, AlphaSize: 8, Mipmaps: true})
	// Opaque palette texture that still declares alpha → rgb-8 after analysis.
	writeBLP(filepath.Join(dir, "textures", "stone.blp"), gradient(64, 64, nil),
		blp.EncodeOptions{Compression: blp.EncodingPalette, PreferredFormat: blp.PixelFormatDXT1, AlphaSize: 8})
	// Tiny grayscale texture → grayscale-4.
	writeBLP(filepath.Join(dir, "textures", "dot.blp"), grayDot(16),
		blp.EncodeOptions{Compression: blp.EncodingARGB8888, PreferredFormat: blp.PixelFormatARGB8888})

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 6 fixtures in %s\n", dir)
}

func gradient(w, h int, alpha func(x, y int) uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := uint8(255)
			if alpha != nil {
				a = alpha(x, y)
			}
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w),
				G: uint8(y * 255 / h),
				B: 128,
				A: a,
			})
		}
	}
	return img
}

func grayDot(n int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			v := uint8(255 - (x+y)*8)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		fail(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fail(err)
	}
}

func writeJPEG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		fail(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		fail(err)
	}
}

func writeBLP(path string, img *image.NRGBA, opts blp.EncodeOptions) {
	data, err := blp.Encode(raster.FromImage(img), opts)
	if err != nil {
		fail(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
