package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/AnyUserName/blpkit/internal/cache"
	"github.com/AnyUserName/blpkit/internal/hasher"
	"github.com/AnyUserName/blpkit/internal/raster"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTimeout bounds one analysis run.
const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout is returned when the analysis did not finish in time.
	ErrTimeout = errors.New("analysis timed out")
	// ErrRasterUnavailable is returned when the artifact could not be decoded.
	ErrRasterUnavailable = errors.New("raster unavailable")
)

// RasterDecoder turns an encoded artifact back into pixels.
type RasterDecoder interface {
	DecodeRaster(data []byte) (*raster.Raster, error)
}

// DecoderFunc adapts a function to RasterDecoder.
type DecoderFunc func(data []byte) (*raster.Raster, error)

// DecodeRaster calls f.
func (f DecoderFunc) DecodeRaster(data []byte) (*raster.Raster, error) { return f(data) }

// Analyzer runs decode+analyze under a deadline, optionally memoizing
// results in a cache keyed by artifact content and original size.
type Analyzer struct {
	timeout time.Duration
	cache   cache.Cache
	ttl     time.Duration
	logger  *log.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCache stores results in c for ttl (zero never expires).
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(a *Analyzer) {
		a.cache = c
		a.ttl = ttl
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		timeout: DefaultTimeout,
		cache:   cache.NewNullCache(),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Timeout returns the configured deadline.
func (a *Analyzer) Timeout() time.Duration { return a.timeout }

type outcome struct {
	res *Result
	err error
}

// Run decodes artifact with dec and analyzes it. The compressed size is
// len(artifact). If the work does not finish within the timeout, Run
// returns ErrTimeout and the late result is discarded.
func (a *Analyzer) Run(ctx context.Context, dec RasterDecoder, artifact []byte, originalSize int64) (*Result, error) {
	key := hasher.Key("analysis", artifact, originalSize)
	if res, ok := a.lookup(ctx, key); ok {
		return res, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		r, err := dec.DecodeRaster(artifact)
		if err != nil {
			done <- outcome{err: fmt.Errorf("%w: %v", ErrRasterUnavailable, err)}
			return
		}
		if r == nil {
			done <- outcome{err: ErrRasterUnavailable}
			return
		}
		res, err := Analyze(r, originalSize, int64(len(artifact)))
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, a.timeout)
		}
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		a.store(ctx, key, out.res)
		return out.res, nil
	}
}

func (a *Analyzer) lookup(ctx context.Context, key string) (*Result, bool) {
	data, hit, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Debug("analysis cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	var res Result
	if err := msgpack.Unmarshal(data, &res); err != nil {
		a.logger.Debug("analysis cache entry invalid", "key", key, "err", err)
		return nil, false
	}
	a.logger.Debug("analysis cache hit", "key", key)
	return &res, true
}

func (a *Analyzer) store(ctx context.Context, key string, res *Result) {
	data, err := msgpack.Marshal(res)
	if err != nil {
		a.logger.Debug("analysis cache encode failed", "err", err)
		return
	}
	if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
		a.logger.Debug("analysis cache write failed", "key", key, "err", err)
	}
}
