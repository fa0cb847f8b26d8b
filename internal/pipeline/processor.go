package pipeline

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/hasher"
	"github.com/AnyUserName/blpkit/internal/manifest"
	"github.com/AnyUserName/blpkit/internal/preview"
	"github.com/AnyUserName/blpkit/internal/session"
)

// processResult holds the result of converting a single source.
type processResult struct {
	key      string
	asset    manifest.Asset
	upgraded bool
	err      error
}

func (p *Pipeline) previews(src Source) (*preview.Registry, error) {
	if p.cfg.PreviewDir == "" {
		return preview.NewRegistry(nil), nil
	}
	store, err := preview.NewDirStore(filepath.Join(p.cfg.PreviewDir, hasher.ContentHash([]byte(src.RelPath), 8)))
	if err != nil {
		return nil, err
	}
	return preview.NewRegistry(store), nil
}

// process runs one session for src: load, optional forced selection,
// optional analysis, then writes the artifact.
func (p *Pipeline) process(ctx context.Context, src Source) processResult {
	result := processResult{key: src.RelPath}

	data, err := os.ReadFile(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("read %s: %w", src.RelPath, err)
		return result
	}

	previews, err := p.previews(src)
	if err != nil {
		result.err = err
		return result
	}
	s := session.New(p.codecs, previews,
		session.WithAnalyzer(p.analyzer),
		session.WithEagerAnalysis(p.cfg.Eager),
		session.WithLogger(p.logger.With("source", src.RelPath)),
	)
	defer s.Close()

	if err := s.Load(ctx, src.RelPath, data); err != nil {
		result.err = err
		return result
	}
	if p.cfg.Format != "" {
		if err := s.Select(ctx, p.cfg.Format); err != nil {
			result.err = err
			return result
		}
	}
	if p.cfg.Analyze {
		// Failures are surfaced as warnings from the snapshot.
		_ = s.RequestAnalysis(ctx)
	}

	out, cand, ok := s.Artifact()
	if !ok {
		result.err = fmt.Errorf("%s: no artifact", src.RelPath)
		return result
	}
	snap := s.Snapshot()

	relOut := path.Join(path.Dir(src.RelPath), catalog.OutputName(path.Base(src.RelPath), cand))
	outPath := filepath.Join(p.cfg.OutputDir, filepath.FromSlash(relOut))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.err = fmt.Errorf("create output dir: %w", err)
		return result
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		result.err = fmt.Errorf("write %s: %w", relOut, err)
		return result
	}

	result.upgraded = snap.UpgradedFrom != ""
	result.asset = buildAsset(src, snap, s.Header(), cand, out, relOut)
	return result
}

func buildAsset(src Source, snap session.Snapshot, h *blp.Header, cand catalog.Candidate, out []byte, relOut string) manifest.Asset {
	a := manifest.Asset{
		Source: manifest.SourceInfo{
			Format:          src.Format,
			Width:           snap.Width,
			Height:          snap.Height,
			Size:            int64(snap.SourceSize),
			HasAlphaChannel: snap.SourceAlpha,
		},
		Direction: snap.Direction.String(),
		Selected:  snap.Selected,
		Output: manifest.Output{
			Candidate: cand.ID,
			Format:    outputFormat(snap.Direction),
			Size:      int64(len(out)),
			Hash:      hasher.ContentHash(out, 16),
			Path:      relOut,
		},
	}
	if cand.Params != nil {
		a.Output.Params = cand.Params.String()
	}
	if h != nil {
		a.Source.Format = "blp"
		a.Source.Header = headerFields(blp.Describe(h))
	}
	for _, c := range snap.Candidates {
		a.Candidates = append(a.Candidates, manifest.CandidateInfo{
			ID:          c.ID,
			Name:        c.Name,
			Recommended: c.Recommended,
			Reason:      c.Reason,
		})
	}
	if res := snap.Analysis; res != nil {
		a.Analysis = &manifest.AnalysisInfo{
			AlphaCoverage:    res.Alpha.Coverage(),
			AvgAlpha:         res.Alpha.AvgAlpha,
			CompressionRatio: res.Compression.CompressionRatio,
			SizeSavings:      res.Compression.SizeSavings,
			Grayscale:        res.Histogram.Grayscale(),
		}
	}
	for _, err := range []error{snap.AnalysisErr, snap.RecommendationErr} {
		if err != nil {
			a.Warnings = append(a.Warnings, err.Error())
		}
	}
	return a
}

func outputFormat(d catalog.Direction) string {
	if d == catalog.ToRaster {
		return "png"
	}
	return "blp"
}

func headerFields(info blp.Info) map[string]string {
	m := map[string]string{
		"version":          info.Version,
		"compression":      info.Compression,
		"alpha":            info.Alpha,
		"preferred_format": info.PreferredFormat,
		"mipmaps":          info.Mipmaps,
	}
	if info.DXTType != "" {
		m["dxt_type"] = info.DXTType
	}
	return m
}
