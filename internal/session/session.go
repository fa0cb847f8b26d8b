// Package session sequences decode, encode and analysis for one asset.
//
// A Session moves Idle → Loading → Decoding → EncodingDefault → Ready and
// reads as Analyzing while an analysis runs on the ready artifact. Decode
// and encode failures move it to the error state, as does a context
// canceled before an encode; analysis and recommendation failures are
// recorded but leave the state alone.
//
// Every Load and Close bumps a generation counter. Work started under an
// older generation is discarded when it completes, and encode results are
// additionally stamped with the candidate they were produced for, so only
// the newest selection is ever applied (last request wins). At most one
// encode and one analysis run per session at any time; selections made
// while an encode is in flight are coalesced into one follow-up encode.
//
// Codec and analysis calls run without the session lock held, so Select,
// RequestAnalysis, DisableAnalysis and Snapshot may be called from other
// goroutines while Load or a previous Select is still working.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AnyUserName/blpkit/internal/analysis"
	"github.com/AnyUserName/blpkit/internal/blp"
	"github.com/AnyUserName/blpkit/internal/catalog"
	"github.com/AnyUserName/blpkit/internal/codec"
	"github.com/AnyUserName/blpkit/internal/preview"
	"github.com/AnyUserName/blpkit/internal/raster"
	"github.com/AnyUserName/blpkit/internal/recommend"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// State is the externally visible session state.
type State int

const (
	Idle State = iota
	Loading
	Decoding
	EncodingDefault
	Ready
	Analyzing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Decoding:
		return "decoding"
	case EncodingDefault:
		return "encoding-default"
	case Ready:
		return "ready"
	case Analyzing:
		return "analyzing"
	case Failed:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures a Session.
type Option func(*Session)

// WithAnalyzer sets the analyzer; the default uses analysis.DefaultTimeout
// and no cache.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(s *Session) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithEagerAnalysis toggles the analysis pass that runs right after the
// first encode of a BLP source and may upgrade the default candidate.
func WithEagerAnalysis(on bool) Option {
	return func(s *Session) { s.eager = on }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session holds the live state of one source asset.
type Session struct {
	id       string
	codecs   *codec.Registry
	previews *preview.Registry
	analyzer *analysis.Analyzer
	eager    bool
	logger   *log.Logger

	mu    sync.Mutex
	gen   uint64
	state State
	err   *Error

	name      string
	source    []byte
	direction catalog.Direction
	header    *blp.Header
	pixels    *raster.Raster
	pair      codec.Pair

	candidates   []catalog.Candidate
	selected     string
	userSelected bool
	upgradedFrom string
	encoding     bool
	encodedID    string
	artifact     []byte
	artifactSeq  uint64
	handle       preview.Handle

	analysisWanted bool
	analyzing      bool
	analysisSeq    uint64
	analyzedSeq    uint64
	analysis       *analysis.Result
	analysisErr    *Error
	recErr         *Error
}

// New creates an idle session.
func New(codecs *codec.Registry, previews *preview.Registry, opts ...Option) *Session {
	if codecs == nil {
		codecs = codec.NewRegistry()
	}
	if previews == nil {
		previews = preview.NewRegistry(nil)
	}
	s := &Session{
		id:       uuid.NewString(),
		codecs:   codecs,
		previews: previews,
		analyzer: analysis.New(),
		eager:    true,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id[:8])
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the current state. Ready reads as Analyzing while an
// analysis is in flight.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if s.state == Ready && s.analyzing {
		return Analyzing
	}
	return s.state
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	s.logger.Debug("state", "generation", s.gen, "state", st, "candidate", s.selected)
}

// resetLocked drops everything derived from the previous asset.
func (s *Session) resetLocked() {
	s.err = nil
	s.name, s.source = "", nil
	s.direction, s.header, s.pixels = 0, nil, nil
	s.pair = codec.Pair{}
	s.candidates, s.selected, s.userSelected = nil, "", false
	s.upgradedFrom = ""
	s.encoding, s.encodedID, s.artifact = false, "", nil
	s.handle = preview.Handle{}
	s.analyzing, s.analyzedSeq = false, 0
	s.analysis, s.analysisErr, s.recErr = nil, nil, nil
	s.analysisSeq++
	s.previews.Release(preview.RoleSource)
	s.previews.Release(preview.RoleConverted)
}

// fail records a fatal error for gen, unless gen was superseded.
func (s *Session) fail(gen uint64, kind Kind, op string, cause error) error {
	e := &Error{Kind: kind, Op: op, Cause: cause}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrSuperseded
	}
	s.err = e
	s.setStateLocked(Failed)
	s.logger.Error("conversion failed", "generation", gen, "err", e)
	return e
}

func (s *Session) recommendationHook(gen uint64) recommend.Option {
	return recommend.OnFallback(func(err error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.gen {
			s.recErr = &Error{Kind: KindRecommendation, Op: "recommend", Cause: err}
		}
	})
}

// Load accepts a new source asset, replacing the current one. It decodes
// the source, ranks the candidates, encodes the default candidate and,
// for BLP sources with eager analysis on, analyzes the result and
// re-encodes once if the analysis recommends a different candidate.
//
// Load returns ErrSuperseded if another Load or Close happened meanwhile.
func (s *Session) Load(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.resetLocked()
	s.name, s.source = name, data
	s.setStateLocked(Loading)
	s.mu.Unlock()

	dir, err := codec.DetectDirection(data)
	if err != nil {
		return s.fail(gen, KindDecode, "detect "+name, err)
	}
	pair, ok := s.codecs.Get(dir)
	if !ok {
		return s.fail(gen, KindDecode, "detect "+name, fmt.Errorf("no codec for %s", dir))
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.direction, s.pair = dir, pair
	s.setStateLocked(Decoding)
	s.mu.Unlock()

	var header *blp.Header
	if dir == catalog.ToRaster {
		if header, err = blp.ReadHeader(data); err != nil {
			return s.fail(gen, KindDecode, "decode "+name, err)
		}
	}
	pixels, err := pair.Source.Decode(data)
	if err != nil {
		return s.fail(gen, KindDecode, "decode "+name, err)
	}

	var cands []catalog.Candidate
	if dir == catalog.ToRaster {
		cands = recommend.ForRaster(ctx, catalog.RasterExport(), nil, recommend.SourceInfoFromHeader(header), s.recommendationHook(gen))
	} else {
		cands = recommend.ForCompressed(ctx, catalog.CompressedExport(), pixels, s.recommendationHook(gen))
	}
	def, ok := catalog.Default(cands)
	if !ok {
		return s.fail(gen, KindEncode, "select default", fmt.Errorf("empty %s catalog", dir))
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.header, s.pixels, s.candidates = header, pixels, cands
	s.selected = def.ID
	s.encoding = true
	if _, err := s.previews.Publish(preview.RoleSource, name, data); err != nil {
		s.logger.Warn("source preview unavailable", "err", err)
	}
	s.setStateLocked(EncodingDefault)
	s.mu.Unlock()

	if err := s.encodeLoop(ctx, gen); err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.setStateLocked(Ready)
	s.mu.Unlock()

	if dir == catalog.ToRaster && s.eager {
		if err := s.eagerUpgrade(ctx, gen); err != nil {
			return err
		}
	}
	s.autoAnalyze(ctx)
	return nil
}

// Select changes the candidate to encode. Selecting the id that is
// already applied or pending is a no-op. If an encode is in flight the
// selection is recorded and picked up by that encode's loop, and Select
// returns immediately.
//
// After an encode failure, Select is the way to retry; after a decode
// failure only Load recovers.
func (s *Session) Select(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.candidates == nil {
		s.mu.Unlock()
		return ErrNotReady
	}
	if _, ok := catalog.Find(s.candidates, id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownCandidate, id)
	}
	if s.state == Failed && s.err != nil && !s.err.Kind.retryable() {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.userSelected = true
	retry := s.state == Failed
	if id == s.selected && !retry && (s.encoding || s.encodedID == id) {
		s.mu.Unlock()
		return nil
	}
	s.selected = id
	if s.encoding {
		s.mu.Unlock()
		return nil
	}
	s.encoding = true
	gen := s.gen
	s.mu.Unlock()

	if err := s.encodeLoop(ctx, gen); err != nil {
		return err
	}
	s.autoAnalyze(ctx)
	return nil
}

// encodeLoop encodes until the applied artifact matches the newest
// selection. The caller must have set s.encoding; the loop clears it.
func (s *Session) encodeLoop(ctx context.Context, gen uint64) error {
	for {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return ErrSuperseded
		}
		want := s.selected
		if want == s.encodedID && s.artifact != nil {
			s.encoding = false
			if s.state == Failed {
				s.err = nil
				s.setStateLocked(Ready)
			}
			s.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			s.encoding = false
			s.mu.Unlock()
			return s.fail(gen, KindCanceled, "encode "+want, err)
		}
		cand, _ := catalog.Find(s.candidates, want)
		pixels, target, name := s.pixels, s.pair.Target, s.name
		s.mu.Unlock()

		data, err := target.Encode(pixels, cand.Params)

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return ErrSuperseded
		}
		if s.selected != want {
			s.logger.Debug("dropping stale encode", "generation", gen, "candidate", want)
			s.mu.Unlock()
			continue
		}
		if err != nil {
			s.encoding = false
			s.mu.Unlock()
			return s.fail(gen, KindEncode, "encode "+want, err)
		}

		h, perr := s.previews.Publish(preview.RoleConverted, catalog.OutputName(name, cand), data)
		if perr != nil {
			// The old preview no longer matches the artifact.
			s.previews.Release(preview.RoleConverted)
			s.logger.Warn("converted preview unavailable", "err", perr)
		}
		s.artifactSeq++
		s.artifact, s.encodedID, s.handle = data, want, h
		if s.state == Failed {
			s.err = nil
			s.setStateLocked(Ready)
		}
		s.logger.Debug("encoded", "generation", gen, "candidate", want, "bytes", len(data))
		s.mu.Unlock()
	}
}

// eagerUpgrade analyzes the default artifact and switches to the
// candidate the analysis recommends, unless the user already chose one.
func (s *Session) eagerUpgrade(ctx context.Context, gen uint64) error {
	res, _, err := s.analyzeOnce(ctx, gen)
	if err == ErrSuperseded {
		return err
	}
	if res == nil {
		return nil
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	cands, header := s.candidates, s.header
	s.mu.Unlock()

	ranked := recommend.ForRaster(ctx, cands, res, recommend.SourceInfoFromHeader(header), s.recommendationHook(gen))
	best, ok := catalog.Default(ranked)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.candidates = ranked
	if !ok || s.userSelected || best.ID == s.selected {
		s.mu.Unlock()
		return nil
	}
	s.logger.Debug("upgrading default", "generation", gen, "from", s.selected, "candidate", best.ID)
	s.upgradedFrom = s.selected
	s.selected = best.ID
	if s.encoding {
		s.mu.Unlock()
		return nil
	}
	s.encoding = true
	s.mu.Unlock()

	return s.encodeLoop(ctx, gen)
}

// RequestAnalysis turns analysis on and analyzes the current artifact if
// it has not been analyzed yet. It is a no-op while an analysis runs or
// when the artifact is unchanged since the last one. Analysis failures are
// returned but never change the session state.
func (s *Session) RequestAnalysis(ctx context.Context) error {
	s.mu.Lock()
	s.analysisWanted = true
	s.mu.Unlock()
	return s.analyzeLoop(ctx)
}

// DisableAnalysis turns analysis off and discards the stored result. An
// analysis still in flight finishes but its result is ignored.
func (s *Session) DisableAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisWanted = false
	s.analysis, s.analysisErr = nil, nil
	s.analyzedSeq = 0
	s.analysisSeq++
}

func (s *Session) autoAnalyze(ctx context.Context) {
	s.mu.Lock()
	wanted := s.analysisWanted
	s.mu.Unlock()
	if wanted {
		_ = s.analyzeLoop(ctx)
	}
}

// analyzeLoop re-runs while analysis stays wanted and the artifact keeps
// changing underneath it.
func (s *Session) analyzeLoop(ctx context.Context) error {
	var last error
	for {
		s.mu.Lock()
		gen := s.gen
		wanted := s.analysisWanted
		s.mu.Unlock()
		if !wanted {
			return last
		}
		_, ran, err := s.analyzeOnce(ctx, gen)
		if !ran {
			return last
		}
		last = err
		if err == ErrSuperseded || errors.Is(err, context.Canceled) {
			return err
		}
	}
}

// analyzeOnce analyzes the current artifact if it has not been analyzed.
// ran is false when nothing needed doing. A non-nil result is returned
// only when it was stored.
func (s *Session) analyzeOnce(ctx context.Context, gen uint64) (res *analysis.Result, ran bool, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil, false, ErrSuperseded
	}
	if s.analyzing || s.artifact == nil || s.analyzedSeq == s.artifactSeq {
		s.mu.Unlock()
		return nil, false, nil
	}
	seq, key := s.analysisSeq, s.artifactSeq
	artifact, original := s.artifact, int64(len(s.source))
	dec := codec.RasterDecoder{Codec: s.pair.Target}
	s.analyzing = true
	s.logger.Debug("state", "generation", gen, "state", Analyzing, "candidate", s.encodedID)
	s.mu.Unlock()

	out, runErr := s.analyzer.Run(ctx, dec, artifact, original)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, true, ErrSuperseded
	}
	s.analyzing = false
	if seq != s.analysisSeq {
		s.logger.Debug("dropping unwanted analysis", "generation", gen)
		return nil, true, nil
	}
	if errors.Is(runErr, context.Canceled) {
		// Left unanalyzed so a later request runs again.
		return nil, true, &Error{Kind: KindCanceled, Op: "analyze", Cause: runErr}
	}
	s.analyzedSeq = key
	if runErr != nil {
		e := &Error{Kind: analysisKind(runErr), Op: "analyze", Cause: runErr}
		s.analysis, s.analysisErr = nil, e
		s.logger.Warn("analysis unavailable", "generation", gen, "err", runErr)
		return nil, true, e
	}
	s.analysis, s.analysisErr = out, nil
	return out, true, nil
}

// Close tears the session down and releases its previews. Work still in
// flight is discarded when it completes.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.resetLocked()
	s.analysisWanted = false
	s.setStateLocked(Idle)
	return nil
}

// Snapshot is a consistent copy of what the session currently shows.
type Snapshot struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	State      State               `json:"-"`
	Direction  catalog.Direction   `json:"-"`
	Candidates []catalog.Candidate `json:"candidates"`
	Selected   string              `json:"selected"`
	Applied    string              `json:"applied"`
	Source     preview.Handle      `json:"source"`
	Converted  preview.Handle      `json:"converted"`
	SourceSize int                 `json:"sourceSize"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Analysis   *analysis.Result    `json:"analysis,omitempty"`

	// SourceAlpha is the BLP header's alpha declaration, or whether a
	// raster source has any non-opaque pixel.
	SourceAlpha bool `json:"sourceAlpha"`

	// UpgradedFrom names the default replaced by the eager analysis.
	UpgradedFrom string `json:"upgradedFrom,omitempty"`

	// Err is the fatal error behind State Failed.
	Err error `json:"-"`

	// AnalysisErr and RecommendationErr never change State.
	AnalysisErr       error `json:"-"`
	RecommendationErr error `json:"-"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		Name:       s.name,
		State:      s.stateLocked(),
		Direction:  s.direction,
		Candidates: append([]catalog.Candidate(nil), s.candidates...),
		Selected:   s.selected,
		Applied:    s.encodedID,
		Converted:  s.handle,
		SourceSize: len(s.source),
		Analysis:   s.analysis,

		UpgradedFrom: s.upgradedFrom,
	}
	if s.pixels != nil {
		snap.Width, snap.Height = s.pixels.Width, s.pixels.Height
	}
	switch {
	case s.header != nil:
		snap.SourceAlpha = s.header.HasAlphaChannel()
	case s.pixels != nil:
		snap.SourceAlpha = !s.pixels.IsOpaque()
	}
	snap.Source, _ = s.previews.Current(preview.RoleSource)
	if s.err != nil {
		snap.Err = s.err
	}
	if s.analysisErr != nil {
		snap.AnalysisErr = s.analysisErr
	}
	if s.recErr != nil {
		snap.RecommendationErr = s.recErr
	}
	return snap
}

// Artifact returns the encoded bytes and the candidate they were
// encoded with. ok is false until the first encode completes.
func (s *Session) Artifact() (data []byte, cand catalog.Candidate, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact == nil {
		return nil, catalog.Candidate{}, false
	}
	cand, _ = catalog.Find(s.candidates, s.encodedID)
	return s.artifact, cand, true
}

// Header returns the parsed BLP header of a BLP source, or nil.
func (s *Session) Header() *blp.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}
