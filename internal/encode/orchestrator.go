// Package encode drives the frame-by-frame encode of the final sequence.
//
// The orchestrator is a small state machine: it opens the compression
// session and container writer from the first frame's decoded geometry,
// submits frames strictly in sequence order with exactly one in flight, and
// finalizes the container synchronously. Compression and container errors
// are fatal; a skipped frame would desynchronize presentation timing for
// everything after it. Decode failures on later frames are counted and
// skipped, but the first frame must decode because session setup needs its
// geometry.
package encode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"stillmotion/internal/logging"
	"stillmotion/internal/media/imagefile"
)

// State names the orchestrator's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateAwaitingFirstFrame
	StateSessionActive
	StateFinalizing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstFrame:
		return "awaiting-first-frame"
	case StateSessionActive:
		return "session-active"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Frame is one entry of the final sequence handed to the orchestrator.
type Frame struct {
	Path  string
	Token FrameToken
	PTS   time.Duration
}

// PipelineCounters aggregates per-run dispositions. Discovered,
// TimestampFailures, and FilteredOut are filled in by the driver before the
// encode loop; DecodeFailures and Encoded are mutated here.
type PipelineCounters struct {
	Discovered        int
	TimestampFailures int
	FilteredOut       int
	DecodeFailures    int
	Encoded           int
}

// RunConfig fixes the orchestrator's inputs for one assembly.
type RunConfig struct {
	// Decode is the image decoder collaborator; nil uses imagefile.Decode.
	Decode func(path string) (*image.NRGBA, error)
	// Options is the caller-built compression configuration.
	Options OptionMap
	// TargetHeight scales output frames to this height, preserving the
	// first frame's aspect ratio; zero keeps source geometry.
	TargetHeight int
	// UnsafeHeight is the warn-only ceiling for the output height.
	UnsafeHeight int
	// Destination is the container path.
	Destination string
	// FrameRate is the effective output frame rate to report.
	FrameRate float64
}

// Orchestrator owns the encode loop for one run. Not safe for concurrent
// use; a single driving goroutine mutates all state.
type Orchestrator struct {
	logger *slog.Logger
	engine Engine
	opener Opener
	cfg    RunConfig

	state  State
	warned map[string]struct{}

	session Session
	writer  Writer
	width   int
	height  int
	refW    int
	refH    int
}

// NewOrchestrator constructs an orchestrator in StateIdle.
func NewOrchestrator(logger *slog.Logger, engine Engine, opener Opener, cfg RunConfig) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Decode == nil {
		cfg.Decode = imagefile.Decode
	}
	if cfg.Options == nil {
		cfg.Options = OptionMap{}
	}
	return &Orchestrator{
		logger: logger,
		engine: engine,
		opener: opener,
		cfg:    cfg,
		state:  StateIdle,
		warned: make(map[string]struct{}),
	}
}

// State returns the current lifecycle position.
func (o *Orchestrator) State() State { return o.state }

func (o *Orchestrator) warnOnce(kind, message string, attrs ...logging.Attr) {
	if _, seen := o.warned[kind]; seen {
		return
	}
	o.warned[kind] = struct{}{}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	o.logger.Warn(message, args...)
}

func (o *Orchestrator) fail(err error) error {
	o.state = StateFailed
	return err
}

// Run encodes frames in order, mutating counters as it goes. The returned
// error is fatal-pipeline: the container is incomplete or absent.
func (o *Orchestrator) Run(ctx context.Context, frames []Frame, counters *PipelineCounters) error {
	if o.state != StateIdle {
		return fmt.Errorf("orchestrator already used (state %s)", o.state)
	}
	if len(frames) == 0 {
		return o.fail(errors.New("no frames to encode"))
	}
	o.state = StateAwaitingFirstFrame

	for i, frame := range frames {
		img, err := o.cfg.Decode(frame.Path)
		if err != nil {
			if i == 0 {
				counters.DecodeFailures++
				return o.fail(fmt.Errorf("decode first frame %s: %w", frame.Path, err))
			}
			counters.DecodeFailures++
			o.logger.Warn("skipping undecodable frame",
				logging.Path(frame.Path), logging.Frame(int(frame.Token)), logging.Error(err))
			continue
		}

		if o.state == StateAwaitingFirstFrame {
			if err := o.openSession(ctx, img); err != nil {
				return o.fail(fmt.Errorf("start encode session: %w", err))
			}
		}

		if err := o.submit(frame, img); err != nil {
			o.closeSession(ctx)
			return o.fail(err)
		}
		counters.Encoded++
	}

	o.state = StateFinalizing
	if o.session != nil {
		if err := o.session.Close(); err != nil {
			o.logger.Warn("closing compression session", logging.Error(err))
		}
	}
	if o.writer != nil {
		if err := o.writer.Finalize(ctx); err != nil {
			return o.fail(fmt.Errorf("finalize container: %w", err))
		}
	}

	if counters.Encoded == 0 {
		return o.fail(errors.New("no frames could be decoded"))
	}
	o.state = StateCompleted
	return nil
}

// openSession fixes the reference geometry from the first decoded frame and
// brings up the compression session and container writer.
func (o *Orchestrator) openSession(ctx context.Context, first *image.NRGBA) error {
	o.refW = first.Bounds().Dx()
	o.refH = first.Bounds().Dy()

	o.width, o.height = o.refW, o.refH
	if o.cfg.TargetHeight > 0 {
		o.height = o.cfg.TargetHeight
		o.width = imagefile.ScaledWidth(o.refW, o.refH, o.cfg.TargetHeight)
	}
	if o.cfg.UnsafeHeight > 0 && o.height > o.cfg.UnsafeHeight {
		o.warnOnce("unsafe-height",
			"output height exceeds the safe ceiling for some decoders",
			logging.Int("height", o.height), logging.Int("ceiling", o.cfg.UnsafeHeight))
	}

	options := o.mergeOptions()

	session, err := o.engine.Configure(ctx, o.width, o.height, options)
	if err != nil {
		return fmt.Errorf("configure %s: %w", o.engine.Name(), err)
	}
	writer, err := o.opener.Open(o.cfg.Destination, o.cfg.FrameRate, o.width, o.height)
	if err != nil {
		_ = session.Close()
		return fmt.Errorf("open container: %w", err)
	}

	o.session = session
	o.writer = writer
	o.state = StateSessionActive
	o.logger.Info("encode session started",
		logging.String("codec", o.engine.Name()),
		logging.Int("width", o.width),
		logging.Int("height", o.height),
		logging.Float64("fps", o.cfg.FrameRate))
	return nil
}

// mergeOptions drops options the engine rejects and fills in its defaults
// for anything left unset.
func (o *Orchestrator) mergeOptions() OptionMap {
	merged := OptionMap{}
	for name, value := range o.cfg.Options {
		if !o.engine.Supports(name) {
			o.logger.Warn("dropping unsupported compression option",
				logging.String("option", name), logging.String("value", value.String()))
			continue
		}
		merged[name] = value
	}
	for name, value := range o.engine.Defaults() {
		if _, ok := merged[name]; !ok {
			merged[name] = value
		}
	}
	return merged
}

// submit sends one frame and blocks until its completion arrives, keeping a
// single frame in flight so samples reach the container in order.
func (o *Orchestrator) submit(frame Frame, img *image.NRGBA) error {
	if img.Bounds().Dx() != o.refW || img.Bounds().Dy() != o.refH {
		o.logger.Warn("frame geometry differs from first frame; output may deform",
			logging.Path(frame.Path),
			logging.Int("width", img.Bounds().Dx()),
			logging.Int("height", img.Bounds().Dy()))
	}
	if img.Bounds().Dx() != o.width || img.Bounds().Dy() != o.height {
		resized, err := imagefile.Fit(img, o.width, o.height)
		if err != nil {
			return fmt.Errorf("resize frame %d: %w", frame.Token, err)
		}
		img = resized
	}

	if err := o.session.Submit(img, frame.PTS, frame.Token); err != nil {
		return fmt.Errorf("submit frame %d: %w", frame.Token, err)
	}

	completion, ok := <-o.session.Completions()
	if !ok {
		return fmt.Errorf("compression session closed before frame %d completed", frame.Token)
	}
	if completion.Token != frame.Token {
		return fmt.Errorf("completion token %d does not match submitted frame %d", completion.Token, frame.Token)
	}
	if completion.Err != nil {
		return fmt.Errorf("compress frame %d: %w", frame.Token, completion.Err)
	}
	if err := o.writer.Append(completion.Sample); err != nil {
		return fmt.Errorf("append frame %d to container: %w", frame.Token, err)
	}
	return nil
}

func (o *Orchestrator) closeSession(ctx context.Context) {
	if o.session != nil {
		_ = o.session.Close()
	}
	if o.writer != nil {
		_ = o.writer.Finalize(ctx)
	}
}
