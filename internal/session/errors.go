package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnyUserName/blpkit/internal/analysis"
)

var (
	ErrDecode         = errors.New("decode failure")
	ErrEncode         = errors.New("encode failure")
	ErrRecommendation = errors.New("recommendation failure")

	// ErrSuperseded is returned by a call whose asset was replaced or closed
	// while it was running. Its results were discarded.
	ErrSuperseded = errors.New("session: superseded by a newer asset")
	// ErrNotReady is returned when selecting before candidates exist.
	ErrNotReady = errors.New("session: no asset loaded")
	// ErrUnknownCandidate is returned for ids outside the current catalog.
	ErrUnknownCandidate = errors.New("session: unknown candidate")
)

// Kind classifies session failures.
type Kind int

const (
	KindDecode Kind = iota + 1
	KindRasterUnavailable
	KindAnalysisTimeout
	KindEncode
	KindRecommendation
	// KindCanceled means the caller's context ended the work. It is not a
	// codec or analysis failure.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode failure"
	case KindRasterUnavailable:
		return "raster context unavailable"
	case KindAnalysisTimeout:
		return "analysis timeout"
	case KindEncode:
		return "encode failure"
	case KindRecommendation:
		return "recommendation failure"
	case KindCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindRasterUnavailable:
		return analysis.ErrRasterUnavailable
	case KindAnalysisTimeout:
		return analysis.ErrTimeout
	case KindEncode:
		return ErrEncode
	case KindRecommendation:
		return ErrRecommendation
	case KindCanceled:
		return context.Canceled
	default:
		return nil
	}
}

// Fatal reports whether the kind ends the conversion. Analysis and
// recommendation failures only degrade it.
func (k Kind) Fatal() bool {
	return k == KindDecode || k == KindEncode
}

// retryable reports whether Select may clear a failure of this kind.
func (k Kind) retryable() bool {
	return k == KindEncode || k == KindCanceled
}

// Error is a classified session failure.
type Error struct {
	Kind  Kind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func analysisKind(err error) Kind {
	switch {
	case errors.Is(err, analysis.ErrTimeout):
		return KindAnalysisTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindRasterUnavailable
}
