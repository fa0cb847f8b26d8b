package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/hasher"
	"github.com/AnyUserName/blpkit/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <out_dir_or_report>",
	Short: "Validate a blpkit report and check every output on disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	reportPath, err := resolveReport(args[0])
	if err != nil {
		return err
	}
	m, err := manifest.ReadJSON(reportPath)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	errs := validateReport(m, filepath.Dir(reportPath))
	if len(errs) == 0 {
		printSuccess("Report is valid")
		printSuccess("%d outputs present with matching size and hash", m.Stats.TotalAssets)
		return nil
	}

	printError("Report has %d error(s):", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

// resolveReport accepts a report file or the directory holding one.
func resolveReport(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return filepath.Join(path, manifest.FileName), nil
	}
	return path, nil
}

func validateReport(m *manifest.Manifest, baseDir string) []string {
	var errs []string
	seenPaths := map[string]string{}

	for key, a := range m.Assets {
		if a.Source.Width <= 0 || a.Source.Height <= 0 {
			errs = append(errs, fmt.Sprintf("asset %q: invalid source dimensions %dx%d",
				key, a.Source.Width, a.Source.Height))
		}

		var dir catalog.Direction
		switch a.Direction {
		case catalog.ToRaster.String():
			dir = catalog.ToRaster
		case catalog.ToCompressed.String():
			dir = catalog.ToCompressed
		default:
			errs = append(errs, fmt.Sprintf("asset %q: unknown direction %q", key, a.Direction))
		}
		if dir != 0 {
			if _, ok := catalog.Find(catalog.For(dir), a.Output.Candidate); !ok {
				errs = append(errs, fmt.Sprintf("asset %q: candidate %q not in %s catalog", key, a.Output.Candidate, dir))
			}
		}

		o := a.Output
		if o.Hash == "" {
			errs = append(errs, fmt.Sprintf("asset %q: missing hash", key))
		}
		if o.Path == "" {
			errs = append(errs, fmt.Sprintf("asset %q: missing output path", key))
			continue
		}
		if other, dup := seenPaths[o.Path]; dup {
			errs = append(errs, fmt.Sprintf("asset %q: output %q also written by %q", key, o.Path, other))
		}
		seenPaths[o.Path] = key

		errs = append(errs, checkOutput(key, filepath.Join(baseDir, filepath.FromSlash(o.Path)), o)...)
	}

	if m.Stats.TotalAssets != len(m.Assets) {
		errs = append(errs, fmt.Sprintf("stats.total_assets mismatch: %d != %d", m.Stats.TotalAssets, len(m.Assets)))
	}
	if m.Stats.Failed != len(m.Failures) {
		errs = append(errs, fmt.Sprintf("stats.failed mismatch: %d != %d", m.Stats.Failed, len(m.Failures)))
	}
	return errs
}

func checkOutput(key, fullPath string, o manifest.Output) []string {
	f, err := os.Open(fullPath)
	if err != nil {
		return []string{fmt.Sprintf("asset %q: file not found: %s", key, o.Path)}
	}
	defer f.Close()

	var errs []string
	if info, err := f.Stat(); err == nil && info.Size() != o.Size {
		errs = append(errs, fmt.Sprintf("asset %q: size mismatch: report=%d, disk=%d", key, o.Size, info.Size()))
	}
	if o.Hash != "" {
		sum, err := hasher.ContentHashReader(f, len(o.Hash))
		if err != nil {
			errs = append(errs, fmt.Sprintf("asset %q: read %s: %v", key, o.Path, err))
		} else if sum != o.Hash {
			errs = append(errs, fmt.Sprintf("asset %q: hash mismatch for %s", key, o.Path))
		}
	}
	return errs
}
