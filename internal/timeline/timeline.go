// Package timeline computes the output frame rate, expected duration, and
// per-frame presentation timestamps for an assembly.
//
// Two mutually exclusive modes exist. With a speed factor, presentation
// times scale the real capture interval by 1/speed. Without one, frames are
// placed at a constant interval derived from the frame rate. Presentation
// times are time.Duration values; the nanosecond timescale keeps successive
// frames distinguishable at any practical frame rate.
package timeline

import (
	"errors"
	"log/slog"
	"time"

	"stillmotion/internal/discover"
	"stillmotion/internal/logging"
)

// DefaultFrameRate applies when neither an explicit rate nor a speed factor
// determines one.
const DefaultFrameRate = 30.0

// Options configures synthesis.
type Options struct {
	// FrameCount is the length of the final, filtered sequence.
	FrameCount int
	// Bounds carries the earliest/latest capture timestamps from
	// discovery (all timestamped candidates, not just accepted ones).
	Bounds discover.Bounds
	// ExplicitRate fixes the output frame rate; zero derives it.
	ExplicitRate float64
	// Speed enables real-time-scaled mode when positive: a factor of 2
	// halves the presented duration of the captured interval.
	Speed float64
}

// Synthesizer holds the resolved temporal model for one assembly.
type Synthesizer struct {
	logger    *slog.Logger
	frameRate float64
	duration  time.Duration
	speed     float64
	earliest  time.Time
	speedMode bool
}

// New resolves the effective frame rate and expected duration.
func New(logger *slog.Logger, opts Options) (*Synthesizer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.FrameCount <= 0 {
		return nil, errors.New("timeline: no frames to place")
	}

	s := &Synthesizer{logger: logger}

	if opts.Speed > 0 {
		if !opts.Bounds.Set() {
			return nil, errors.New("timeline: speed factor requires capture timestamps")
		}
		s.speedMode = true
		s.speed = opts.Speed
		s.earliest = opts.Bounds.Earliest()

		scaled := time.Duration(float64(opts.Bounds.Span()) / opts.Speed)
		s.duration = scaled
		if opts.ExplicitRate > 0 {
			s.frameRate = opts.ExplicitRate
		} else if scaled > 0 {
			s.frameRate = float64(opts.FrameCount) / scaled.Seconds()
		} else {
			// Every frame carries the same capture time; fall back to
			// index spacing at the default rate.
			logger.Warn("capture interval is empty; using default frame rate")
			s.frameRate = DefaultFrameRate
			s.duration = time.Duration(float64(opts.FrameCount) / s.frameRate * float64(time.Second))
		}
		return s, nil
	}

	s.frameRate = opts.ExplicitRate
	if s.frameRate <= 0 {
		s.frameRate = DefaultFrameRate
	}
	s.duration = time.Duration(float64(opts.FrameCount) / s.frameRate * float64(time.Second))
	return s, nil
}

// FrameRate returns the effective output frame rate.
func (s *Synthesizer) FrameRate() float64 { return s.frameRate }

// Duration returns the expected output duration.
func (s *Synthesizer) Duration() time.Duration { return s.duration }

// SpeedMode reports whether presentation times derive from capture times.
func (s *Synthesizer) SpeedMode() bool { return s.speedMode }

// PTS computes the presentation timestamp for the frame at position index
// (0-based within the final sequence) with the given capture time. In speed
// mode a missing capture time is an inconsistency: it should have been
// filtered earlier, so it is logged and the frame falls back to index
// spacing.
func (s *Synthesizer) PTS(index int, captured time.Time, hasCapture bool) time.Duration {
	if s.speedMode {
		if hasCapture {
			return time.Duration(float64(captured.Sub(s.earliest)) / s.speed)
		}
		s.logger.Warn("frame reached timeline without a capture timestamp", logging.Frame(index))
	}
	return time.Duration(float64(index) / s.frameRate * float64(time.Second))
}
