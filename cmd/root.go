package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/cache"
	"github.com/AnyUserName/blpkit/internal/config"
	"github.com/AnyUserName/blpkit/internal/logging"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	verbose    bool
	configPath string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "blpkit",
	Short: "Convert BLP textures to PNG and images to BLP",
	Long: `blpkit converts Blizzard BLP2 textures to PNG and PNG/JPEG/GIF/BMP/TIFF/WebP
images to BLP2.

Every file is inspected first: its alpha channel and colors decide which
output format is recommended, and the recommended format is used unless
--format picks another one. An optional analysis pass reports alpha coverage,
compression ratio and per-channel histograms of the converted output.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./blpkit.yaml if present)")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"blpkit %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// setup loads the configuration and attaches the logger to the command
// context.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = log.DebugLevel
	}
	cfg = c

	logger := logging.New(os.Stderr, level)
	log.SetDefault(logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, logger))
	return nil
}

// newAnalyzer builds the analyzer described by the configuration. The
// returned close func releases its cache.
func newAnalyzer(ctx context.Context) (*analysis.Analyzer, func(), error) {
	logger := logging.FromContext(ctx)
	var c cache.Cache = cache.NewNullCache()
	if cfg.Cache.Dir != "" {
		fc, err := cache.NewFileCache(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open analysis cache: %w", err)
		}
		c = fc
		logger.Debug("analysis cache", "dir", cfg.Cache.Dir, "ttl", cfg.Cache.TTL)
	}
	a := analysis.New(
		analysis.WithTimeout(cfg.Analysis.Timeout),
		analysis.WithCache(c, cfg.Cache.TTL),
		analysis.WithLogger(logger),
	)
	return a, func() { _ = c.Close() }, nil
}
