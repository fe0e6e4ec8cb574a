// Package sortfilter orders and filters the discovered candidate list into
// the final frame sequence.
//
// Name ordering is locale-naive but numeric-aware and case-insensitive, so
// "frame2" sorts before "frame10". Creation ordering compares resolved
// capture timestamps; candidates without one sort to the end rather than
// landing silently in the middle. Filtering matches metadata constraints at
// any depth of a file's property tree.
package sortfilter

import (
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"stillmotion/internal/discover"
	"stillmotion/internal/logging"
	"stillmotion/internal/media/imagefile"
	"stillmotion/internal/media/metadata"
)

// Key selects the sort ordering.
type Key string

const (
	// KeyName orders by the final path component, numeric-aware.
	KeyName Key = "name"
	// KeyCreation orders by resolved capture timestamp.
	KeyCreation Key = "creation"
)

// Options configures a selection pass.
type Options struct {
	Key     Key
	Reverse bool
	Filter  metadata.FilterSpec
	// Limit truncates the sorted, filtered sequence to its first N
	// entries; zero means unlimited.
	Limit int
}

// Selection is the ordered, filtered frame sequence plus bookkeeping.
type Selection struct {
	Candidates  []discover.Candidate
	FilteredOut int
}

// Engine applies sorting and filtering.
type Engine struct {
	logger *slog.Logger
	probe  func(path string) (*metadata.Tree, error)
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithProber replaces the metadata probe used for filter evaluation.
func WithProber(probe func(path string) (*metadata.Tree, error)) Option {
	return func(e *Engine) { e.probe = probe }
}

// New constructs an Engine.
func New(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{logger: logger, probe: imagefile.Probe}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select filters candidates against opts.Filter, sorts the survivors, and
// applies the frame limit. The input slice is not modified.
func (e *Engine) Select(candidates []discover.Candidate, index discover.TimestampIndex, opts Options) Selection {
	selection := Selection{}

	kept := make([]discover.Candidate, 0, len(candidates))
	if len(opts.Filter) > 0 {
		for _, candidate := range candidates {
			tree, err := e.probe(candidate.Path)
			if err != nil {
				e.logger.Warn("filter: metadata probe failed, excluding",
					logging.Path(candidate.Path), logging.Error(err))
				selection.FilteredOut++
				continue
			}
			if !tree.Match(opts.Filter) {
				selection.FilteredOut++
				continue
			}
			kept = append(kept, candidate)
		}
	} else {
		kept = append(kept, candidates...)
	}

	switch opts.Key {
	case KeyCreation:
		e.sortByCreation(kept, index, opts.Reverse)
	default:
		sortByName(kept, opts.Reverse)
	}

	if opts.Limit > 0 && len(kept) > opts.Limit {
		kept = kept[:opts.Limit]
	}
	selection.Candidates = kept
	return selection
}

func sortByName(candidates []discover.Candidate, reverse bool) {
	collator := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(candidates, func(i, j int) bool {
		cmp := collator.CompareString(filepath.Base(candidates[i].Path), filepath.Base(candidates[j].Path))
		if reverse {
			return cmp > 0
		}
		return cmp < 0
	})
}

func (e *Engine) sortByCreation(candidates []discover.Candidate, index discover.TimestampIndex, reverse bool) {
	for _, candidate := range candidates {
		if _, ok := index[candidate.Path]; !ok {
			e.logger.Warn("no capture timestamp; sorting to the end", logging.Path(candidate.Path))
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, iok := index[candidates[i].Path]
		tj, jok := index[candidates[j].Path]
		var less bool
		switch {
		case iok && jok:
			if ti.Equal(tj) {
				return false
			}
			less = ti.Before(tj)
		case iok:
			less = true // timestamped frames precede unresolved ones
		case jok:
			less = false
		default:
			return false
		}
		if reverse {
			return !less
		}
		return less
	})
}
