// Package assemble drives the time-lapse pipeline end to end: discovery,
// timestamp resolution, sort/filter selection, timeline synthesis, and the
// encode loop, producing a summary of every input frame's disposition.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stillmotion/internal/config"
	"stillmotion/internal/discover"
	"stillmotion/internal/encode"
	"stillmotion/internal/encode/mjpegkit"
	"stillmotion/internal/logging"
	"stillmotion/internal/media/metadata"
	"stillmotion/internal/sortfilter"
	"stillmotion/internal/timeline"
	"stillmotion/internal/tscache"
)

// Request describes one assembly run. Zero values fall back to config
// defaults where noted.
type Request struct {
	Sources     []string
	Destination string

	Codec     string  // default from config
	Container string  // default from config
	FrameRate float64 // explicit output rate; zero derives it
	Height    int     // target output height; zero keeps source geometry
	Quality   int     // default from config
	SortKey   string  // "name" or "creation"; default from config
	Reverse   bool
	Speed     float64 // positive enables real-time-scaled mode
	Limit     int     // truncate the final sequence; zero is unlimited
	Filters   metadata.FilterSpec
	Options   encode.OptionMap // unit-bearing compression options
	Overwrite bool
}

// Summary is the run's terminal accounting.
type Summary struct {
	Counters    encode.PipelineCounters
	FrameRate   float64
	Duration    time.Duration
	Destination string
	OutputBytes int64
}

// Run executes one assembly. The returned error wraps ErrUsage, ErrInput, or
// ErrEncode; a nil error means at least one frame was encoded.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, req Request) (*Summary, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldRunID, uuid.NewString()))

	req.applyDefaults(cfg)
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := checkDestination(req.Destination, req.Overwrite); err != nil {
		return nil, err
	}

	lock := flock.New(req.Destination + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: lock destination: %v", ErrInput, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: another assembly is writing %s", ErrInput, req.Destination)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	scanOpts := []discover.Option{}
	if cfg.Cache.Enabled {
		store, err := tscache.Open(cfg.CachePath())
		if err != nil {
			logger.Warn("timestamp cache unavailable", logging.Error(err))
		} else {
			defer store.Close()
			scanOpts = append(scanOpts, discover.WithCache(store))
		}
	}

	needTimestamps := req.Speed > 0 || req.SortKey == string(sortfilter.KeyCreation)
	scanner := discover.New(logger, scanOpts...)
	found, err := scanner.Scan(ctx, req.Sources, needTimestamps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	logger.Info("discovery complete",
		logging.Int("candidates", len(found.Candidates)),
		logging.Int("unreadable", found.Unreadable),
		logging.Int("missing_timestamps", found.MissingTimestamps))

	if len(found.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no image files found under the given sources", ErrInput)
	}

	counters := encode.PipelineCounters{
		Discovered:        len(found.Candidates) + found.Unreadable,
		TimestampFailures: found.MissingTimestamps,
		DecodeFailures:    found.Unreadable,
	}

	selector := sortfilter.New(logger)
	selection := selector.Select(found.Candidates, found.Timestamps, sortfilter.Options{
		Key:     sortfilter.Key(req.SortKey),
		Reverse: req.Reverse,
		Filter:  req.Filters,
		Limit:   req.Limit,
	})
	counters.FilteredOut = selection.FilteredOut
	if len(selection.Candidates) == 0 {
		return nil, fmt.Errorf("%w: every candidate was filtered out", ErrInput)
	}

	synth, err := timeline.New(logger, timeline.Options{
		FrameCount:   len(selection.Candidates),
		Bounds:       found.Bounds,
		ExplicitRate: req.FrameRate,
		Speed:        req.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	logger.Info("timeline resolved",
		logging.Float64("fps", synth.FrameRate()),
		logging.Duration("expected_duration", synth.Duration()),
		logging.Bool("speed_mode", synth.SpeedMode()))

	frames := make([]encode.Frame, len(selection.Candidates))
	for i, candidate := range selection.Candidates {
		captured, has := found.Timestamps[candidate.Path]
		frames[i] = encode.Frame{
			Path:  candidate.Path,
			Token: encode.FrameToken(candidate.Ordinal),
			PTS:   synth.PTS(i, captured, has),
		}
	}

	options := req.Options.Clone()
	if req.Quality > 0 {
		options.Set("quality", encode.IntOption(int64(req.Quality)))
	}

	orch := encode.NewOrchestrator(logger, mjpegkit.NewEngine(), mjpegkit.NewOpener(), encode.RunConfig{
		Options:      options,
		TargetHeight: req.Height,
		UnsafeHeight: cfg.Encoder.UnsafeHeight,
		Destination:  req.Destination,
		FrameRate:    synth.FrameRate(),
	})
	if err := orch.Run(ctx, frames, &counters); err != nil {
		_ = os.Remove(req.Destination)
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	summary := &Summary{
		Counters:    counters,
		FrameRate:   synth.FrameRate(),
		Duration:    synth.Duration(),
		Destination: req.Destination,
	}
	if info, err := os.Stat(req.Destination); err == nil {
		summary.OutputBytes = info.Size()
	}
	logger.Info("assembly complete",
		logging.Int("encoded", counters.Encoded),
		logging.Int("filtered_out", counters.FilteredOut),
		logging.Int("decode_failures", counters.DecodeFailures))
	return summary, nil
}

func (r *Request) applyDefaults(cfg *config.Config) {
	if r.Codec == "" {
		r.Codec = cfg.Assembly.Codec
	}
	if r.Container == "" {
		r.Container = cfg.Assembly.Container
	}
	if r.Quality == 0 {
		r.Quality = cfg.Assembly.Quality
	}
	if r.SortKey == "" {
		r.SortKey = cfg.Assembly.SortKey
	}
	// In speed mode the rate derives from the capture interval unless the
	// caller pinned one explicitly; the config default must not pin it.
	if r.FrameRate == 0 && r.Speed == 0 {
		r.FrameRate = cfg.Assembly.FrameRate
	}
	if cfg.Output.OverwriteExisting {
		r.Overwrite = true
	}
}

func (r *Request) validate() error {
	if len(r.Sources) == 0 {
		return fmt.Errorf("%w: at least one source path is required", ErrUsage)
	}
	if r.Destination == "" {
		return fmt.Errorf("%w: a destination path is required", ErrUsage)
	}
	if r.Codec != mjpegkit.CodecName {
		return fmt.Errorf("%w: unsupported codec %q", ErrUsage, r.Codec)
	}
	if r.Container != mjpegkit.ContainerName {
		return fmt.Errorf("%w: unsupported container %q", ErrUsage, r.Container)
	}
	if r.Quality < 1 || r.Quality > 100 {
		return fmt.Errorf("%w: quality %d out of range 1-100", ErrUsage, r.Quality)
	}
	switch sortfilter.Key(r.SortKey) {
	case sortfilter.KeyName, sortfilter.KeyCreation:
	default:
		return fmt.Errorf("%w: unsupported sort key %q", ErrUsage, r.SortKey)
	}
	if r.Speed < 0 {
		return fmt.Errorf("%w: speed factor must be positive", ErrUsage)
	}
	if r.FrameRate < 0 {
		return fmt.Errorf("%w: frame rate must be positive", ErrUsage)
	}
	if r.Height < 0 {
		return fmt.Errorf("%w: height must be positive", ErrUsage)
	}
	return nil
}

func checkDestination(destination string, overwrite bool) error {
	if _, err := os.Stat(destination); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: destination %s already exists", ErrInput, destination)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat destination: %v", ErrInput, err)
	}

	dir := filepath.Dir(destination)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: destination directory %s: %v", ErrInput, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInput, dir)
	}
	return nil
}
