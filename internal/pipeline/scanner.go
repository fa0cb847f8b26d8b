package pipeline

import (
	"os"
	"path/filepath"
	"strings"
)

// Source represents a discovered input file.
type Source struct {
	// AbsPath is the path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the input root, with forward
	// slashes. It keys the asset in the report.
	RelPath string
	// Format is the source format (blp, png, jpeg, webp, gif, bmp, tiff).
	Format string
	// Size is the file size in bytes.
	Size int64
}

// sourceExtensions lists recognized input extensions: BLP textures plus
// every raster format the image codec decodes.
var sourceExtensions = map[string]bool{
	".blp":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// IsSource reports whether path has a convertible extension.
func IsSource(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// Scan returns the sources under root. A file root yields that one file.
func Scan(root string) ([]Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []Source{newSource(root, filepath.Base(root), info.Size())}, nil
	}

	var sources []Source
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Skip hidden directories.
			if strings.HasPrefix(info.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSource(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sources = append(sources, newSource(path, relPath, info.Size()))
		return nil
	})
	return sources, err
}

func newSource(path, relPath string, size int64) Source {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "jpg":
		format = "jpeg"
	case "tif":
		format = "tiff"
	}
	return Source{
		AbsPath: path,
		RelPath: filepath.ToSlash(relPath),
		Format:  format,
		Size:    size,
	}
}
