package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/codec"
	"github.com/AnyUserName/blpkit/internal/logging"
	"github.com/AnyUserName/blpkit/internal/preview"
	"github.com/AnyUserName/blpkit/internal/session"
)

// openSession loads path into a fresh session. The caller closes it.
func openSession(ctx context.Context, path string, analyzer *analysis.Analyzer, eager bool) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var store preview.Store
	if cfg.Preview.Dir != "" {
		ds, err := preview.NewDirStore(cfg.Preview.Dir)
		if err != nil {
			return nil, err
		}
		store = ds
	}
	s := session.New(codec.NewRegistry(), preview.NewRegistry(store),
		session.WithAnalyzer(analyzer),
		session.WithEagerAnalysis(eager),
		session.WithLogger(logging.FromContext(ctx)),
	)
	if err := s.Load(ctx, filepath.Base(path), data); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
