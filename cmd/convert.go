package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AnyUserName/blpkit/internal/logging"
	"github.com/AnyUserName/blpkit/internal/manifest"
	"github.com/AnyUserName/blpkit/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	convertOutDir  string
	convertFormat  string
	convertWorkers int
	convertAnalyze bool
	convertNoEager bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <file_or_dir>",
	Short: "Convert BLP to PNG and images to BLP, writing a report",
	Long: `Converts one file or every supported file under a directory.

BLP textures become PNG; PNG, JPEG, GIF, BMP, TIFF and WebP images become
BLP2. The recommended format for each file is used unless --format names a
candidate id (see "blpkit formats").

Output filenames: <name>.<format>.png for textures and <name>.<id>.blp for
images. A report (blpkit.report.json) is written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutDir, "out", "o", "", "output directory (default: config output.dir or ./blpkit_out)")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "force a candidate id instead of the recommended one")
	convertCmd.Flags().IntVarP(&convertWorkers, "workers", "w", 0, "parallel workers (0 = config or NumCPU)")
	convertCmd.Flags().BoolVar(&convertAnalyze, "analyze", false, "attach an analysis of every output to the report")
	convertCmd.Flags().BoolVar(&convertNoEager, "no-eager", false, "skip the analysis that refines BLP→PNG defaults")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	progress := logging.NewProgress(logger)

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	out := convertOutDir
	if out == "" {
		out = cfg.Output.Dir
	}
	if out == "" {
		out = "./blpkit_out"
	}
	absOutput, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	workers := convertWorkers
	if workers == 0 {
		workers = cfg.Workers
	}

	logger.Debug("convert", "input", absInput, "output", absOutput, "format", convertFormat)

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	analyzer, closeCache, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	p := pipeline.New(pipeline.Config{
		Input:      absInput,
		OutputDir:  absOutput,
		Workers:    workers,
		Format:     convertFormat,
		Eager:      cfg.Analysis.Eager && !convertNoEager,
		Analyze:    convertAnalyze,
		PreviewDir: cfg.Preview.Dir,
	}, analyzer, logger)

	start := time.Now()
	m, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	reportPath := filepath.Join(absOutput, manifest.FileName)
	if err := manifest.WriteJSON(m, reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printConvertReport(m, time.Since(start))
	progress.Done(fmt.Sprintf("Converted %d files", m.Stats.TotalAssets))
	return nil
}

func printConvertReport(m *manifest.Manifest, elapsed time.Duration) {
	printTitle("blpkit convert complete")

	s := m.Stats
	printKV("Converted", s.TotalAssets)
	if s.Failed > 0 {
		printKV("Failed", s.Failed)
	}
	if s.Upgraded > 0 {
		printKV("Refined", fmt.Sprintf("%d (analysis changed the default)", s.Upgraded))
	}
	printKV("Input size", formatBytes(s.TotalInputBytes))
	printKV("Output size", formatBytes(s.TotalOutputBytes))
	printKV("Time", elapsed.Round(time.Millisecond))
	fmt.Println()

	keys := make([]string, 0, len(m.Assets))
	for k := range m.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a := m.Assets[k]
		printSuccess("%-40s → %s %s", truncKey(k, 40), a.Output.Path, styleDim.Render("("+formatBytes(a.Output.Size)+")"))
		for _, w := range a.Warnings {
			printWarning("%s", w)
		}
	}

	failed := make([]string, 0, len(m.Failures))
	for k := range m.Failures {
		failed = append(failed, k)
	}
	sort.Strings(failed)
	for _, k := range failed {
		printError("%s: %s", k, m.Failures[k])
	}
	fmt.Println()
	printKV("Report", manifest.FileName)
	fmt.Println()
}
