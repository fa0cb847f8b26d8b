package cmd

import (
	"fmt"

	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/codec"
	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the candidate output formats per direction",
	Args:  cobra.NoArgs,
	Run:   runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(_ *cobra.Command, _ []string) {
	printTitle("Output formats")
	fmt.Printf("  %s\n\n", styleDim.Render(codec.NewRegistry().String()))

	for _, d := range []catalog.Direction{catalog.ToRaster, catalog.ToCompressed} {
		fmt.Printf("  %s\n", styleTitle.Render(d.String()))
		for _, c := range catalog.For(d) {
			fmt.Printf("    %-14s %-26s %s\n", c.ID, c.Name, styleDim.Render(c.Params.String()))
			fmt.Printf("    %-14s %s\n", "", styleDim.Render(c.Description))
		}
		fmt.Println()
	}
}
