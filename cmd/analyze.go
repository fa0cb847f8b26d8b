package cmd

import (
	"fmt"
	"os"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	analyzeFormat  string
	analyzeJSON    bool
	analyzeBuckets bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Convert a file in memory and analyze the result",
	Long: `Converts the file with its recommended format (or --format) without
writing it, then reports alpha coverage, average alpha, compression ratio
against the source and 64-bucket histograms per channel.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "candidate id to analyze instead of the recommended one")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the analysis as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeBuckets, "buckets", false, "list non-empty histogram buckets")
	rootCmd.AddCommand(analyzeCmd)
}

type analysisReport struct {
	File      string                       `json:"file"`
	Candidate string                       `json:"candidate"`
	Result    *analysis.Result             `json:"result"`
	Buckets   map[string][]analysis.Bucket `json:"buckets"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	analyzer, closeCache, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	s, err := openSession(ctx, args[0], analyzer, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if analyzeFormat != "" {
		if err := s.Select(ctx, analyzeFormat); err != nil {
			return err
		}
	}
	if err := s.RequestAnalysis(ctx); err != nil {
		return fmt.Errorf("analyze %s: %w", args[0], err)
	}

	snap := s.Snapshot()
	res := snap.Analysis
	if res == nil {
		return fmt.Errorf("analyze %s: no result", args[0])
	}
	buckets := map[string][]analysis.Bucket{
		"red":   analysis.ColorBuckets(&res.Histogram.R),
		"green": analysis.ColorBuckets(&res.Histogram.G),
		"blue":  analysis.ColorBuckets(&res.Histogram.B),
		"alpha": analysis.AlphaBuckets(&res.Histogram.A),
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysisReport{File: args[0], Candidate: snap.Applied, Result: res, Buckets: buckets})
	}

	printTitle("Analysis: " + snap.Name)
	printKV("Direction", snap.Direction)
	printKV("Format", snap.Applied)
	printKV("Dimensions", fmt.Sprintf("%dx%d", res.Width, res.Height))
	printKV("Source size", formatBytes(int64(snap.SourceSize)))
	printKV("Output size", formatBytes(int64(snap.Converted.Size)))
	fmt.Println()
	printKV("Alpha coverage", fmt.Sprintf("%.1f%%", res.Alpha.Coverage()))
	printKV("Average alpha", fmt.Sprintf("%.1f", res.Alpha.AvgAlpha))
	printKV("Compression", fmt.Sprintf("%.1f%%", res.Compression.CompressionRatio))
	printKV("Savings", formatSavings(res.Compression.SizeSavings))
	if res.Histogram.Grayscale() {
		printKV("Colors", "grayscale")
	}
	fmt.Println()

	for _, ch := range []string{"red", "green", "blue", "alpha"} {
		printHistogram(ch, buckets[ch])
	}
	fmt.Println()
	return nil
}

func printHistogram(channel string, buckets []analysis.Bucket) {
	heights := make([]float64, len(buckets))
	for i, b := range buckets {
		heights[i] = b.Height
	}
	printKV(channel, sparkline(heights))
	if !analyzeBuckets {
		return
	}
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		fmt.Printf("  %s %s\n",
			styleLabel.Render(fmt.Sprintf("  %.1f-%.1f", b.Start, b.End)),
			styleDim.Render(fmt.Sprintf("%d px (%.0f%%)", b.Count, b.Height)))
	}
}
