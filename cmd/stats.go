package cmd

import (
	"fmt"
	"sort"

	"github.com/AnyUserName/blpkit/internal/manifest"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_report>",
	Short: "Display statistics for a converted output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path, err := resolveReport(args[0])
	if err != nil {
		return err
	}
	m, err := manifest.ReadJSON(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	printStats(m)
	return nil
}

func printStats(m *manifest.Manifest) {
	printTitle("blpkit report")
	printKV("Report version", m.Version)
	printKV("Generated", m.GeneratedAt)
	if ri := m.RunInfo; ri != nil {
		printKV("Workers", ri.Workers)
		printKV("Eager analysis", ri.EagerAnalysis)
		printKV("Analysis timeout", ri.AnalysisTimeout)
		if ri.ForcedFormat != "" {
			printKV("Forced format", ri.ForcedFormat)
		}
	}
	fmt.Println()

	s := m.Stats
	printKV("Converted", s.TotalAssets)
	printKV("Failed", s.Failed)
	printKV("Input size", formatBytes(s.TotalInputBytes))
	printKV("Output size", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		printKV("Ratio", fmt.Sprintf("%.1f%% of source", float64(s.TotalOutputBytes)/float64(s.TotalInputBytes)*100))
	}
	fmt.Println()

	// Per-candidate breakdown.
	type bucket struct {
		count int
		bytes int64
	}
	byCandidate := map[string]bucket{}
	for _, a := range m.Assets {
		id := a.Direction + " " + a.Output.Candidate
		b := byCandidate[id]
		b.count++
		b.bytes += a.Output.Size
		byCandidate[id] = b
	}
	ids := make([]string, 0, len(byCandidate))
	for id := range byCandidate {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Println("  Format breakdown:")
	for _, id := range ids {
		b := byCandidate[id]
		fmt.Printf("    %-28s %4d files  %s\n", id, b.count, formatBytes(b.bytes))
	}
	fmt.Println()

	// Heaviest outputs.
	type item struct {
		key     string
		in, out int64
	}
	var items []item
	for key, a := range m.Assets {
		items = append(items, item{key, a.Source.Size, a.Output.Size})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].out > items[j].out })
	if n := min(len(items), 10); n > 0 {
		fmt.Printf("  Top %d heaviest (source → output):\n", n)
		for _, it := range items[:n] {
			fmt.Printf("    %-40s %8s → %8s\n", truncKey(it.key, 40), formatBytes(it.in), formatBytes(it.out))
		}
		fmt.Println()
	}

	var warnings []string
	for key, a := range m.Assets {
		for _, w := range a.Warnings {
			warnings = append(warnings, fmt.Sprintf("%s: %s", key, w))
		}
	}
	sort.Strings(warnings)
	if len(warnings) > 0 {
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			printWarning("%s", w)
		}
		fmt.Println()
	}
}
