package cmd

import (
	"fmt"
	"os"

	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	recommendJSON    bool
	recommendNoEager bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <file>",
	Short: "Rank the output formats for a file",
	Long: `Shows every candidate output format for the file, the recommended ones
marked with the reason. For BLP textures the ranking is refined by
analyzing a trial conversion unless --no-eager is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "print candidates as JSON")
	recommendCmd.Flags().BoolVar(&recommendNoEager, "no-eager", false, "rank from the header only")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	analyzer, closeCache, err := newAnalyzer(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	s, err := openSession(ctx, args[0], analyzer, cfg.Analysis.Eager && !recommendNoEager)
	if err != nil {
		return err
	}
	defer s.Close()

	snap := s.Snapshot()
	if recommendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Candidates)
	}

	printTitle("Formats for " + snap.Name)
	printKV("Direction", snap.Direction)
	if def, ok := catalog.Default(snap.Candidates); ok {
		printKV("Default", def.ID)
	}
	if snap.RecommendationErr != nil {
		printWarning("static recommendation: %v", snap.RecommendationErr)
	}
	fmt.Println()

	for _, c := range snap.Candidates {
		mark := " "
		if c.Recommended {
			mark = styleSuccess.Render(iconStar)
		}
		fmt.Printf("  %s %-18s %s\n", mark, c.ID, c.Name)
		if c.Reason != "" {
			fmt.Printf("      %s\n", styleDim.Render(c.Reason))
		}
		if sum, ok := catalog.Summarize(c); ok {
			fmt.Printf("      %s\n", styleDim.Render(fmt.Sprintf("%s, %d-bit, %s colors, transparency: %s",
				sum.ColorType, sum.BitDepth, sum.MaxColors, sum.Transparency)))
		}
	}
	fmt.Println()
	return nil
}
