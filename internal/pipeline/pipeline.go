// Package pipeline converts a file or a directory tree, one conversion
// session per source file, on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/codec"
	"github.com/AnyUserName/blpkit/internal/manifest"
	"github.com/charmbracelet/log"
)

// Config holds all parameters for a conversion run.
type Config struct {
	Input     string // file or directory
	OutputDir string
	Workers   int
	// Format forces a candidate id instead of the recommended default.
	// Sources whose catalog lacks the id fail.
	Format string
	// Eager enables the post-encode analysis that may upgrade a BLP→PNG
	// default.
	Eager bool
	// Analyze attaches an analysis of every output to the report.
	Analyze bool
	// PreviewDir, when set, exposes live previews as files.
	PreviewDir string
}

// Pipeline orchestrates conversions.
type Pipeline struct {
	cfg      Config
	codecs   *codec.Registry
	analyzer *analysis.Analyzer
	logger   *log.Logger
}

// New creates a configured pipeline. A nil analyzer uses the defaults.
func New(cfg Config, analyzer *analysis.Analyzer, logger *log.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if analyzer == nil {
		analyzer = analysis.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		codecs:   codec.NewRegistry(),
		analyzer: analyzer,
		logger:   logger,
	}
}

// Run converts every source and returns the report. Partial failures are
// recorded in the report; Run fails only when every source failed.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	p.logger.Debug(p.codecs.String())

	sources, err := Scan(p.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no convertible files found in %s", p.cfg.Input)
	}
	p.logger.Info("found sources", "count", len(sources), "workers", p.cfg.Workers)

	results := make([]processResult, len(sources))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			p.logger.Debug("processing", "source", s.RelPath)
			results[idx] = p.process(ctx, s)
			if r := results[idx]; r.err == nil {
				p.logger.Info("converted", "source", s.RelPath, "output", r.asset.Output.Path, "candidate", r.asset.Selected)
			}
		}(i, src)
	}
	wg.Wait()

	m := manifest.New("")
	m.RunInfo = &manifest.RunInfo{
		Workers:         p.cfg.Workers,
		EagerAnalysis:   p.cfg.Eager,
		AnalysisTimeout: p.analyzer.Timeout().String(),
		ForcedFormat:    p.cfg.Format,
	}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			p.logger.Error("conversion failed", "source", r.key, "err", r.err)
			m.AddFailure(r.key, r.err)
			continue
		}
		m.Assets[r.key] = r.asset
		if r.upgraded {
			m.Stats.Upgraded++
		}
	}
	if failed > 0 {
		if failed == len(sources) {
			return nil, fmt.Errorf("all %d files failed to convert", failed)
		}
		p.logger.Warn("some files had errors", "failed", failed, "total", len(sources))
	}

	m.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	m.ComputeStats()
	return m, nil
}
