package cmd

import (
	"fmt"
	"os"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <file.blp>",
	Short: "Describe a BLP header",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print the header description as JSON")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	h, err := blp.ReadHeader(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	info := blp.Describe(h)

	if infoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	printTitle("BLP header: " + args[0])
	printKV("Magic", info.Magic)
	printKV("Version", info.Version)
	printKV("Compression", info.Compression)
	if info.DXTType != "" {
		printKV("DXT type", info.DXTType)
	}
	printKV("Alpha", info.Alpha)
	printKV("Preferred format", info.PreferredFormat)
	printKV("Mipmaps", info.Mipmaps)
	printKV("Width", info.Width)
	printKV("Height", info.Height)
	if n := h.MipCount(); n > 0 {
		printKV("Mip levels", n)
	}
	fmt.Println()
	return nil
}
