package encode

import (
	"context"
	"image"
	"time"
)

// FrameToken correlates an asynchronous compression completion with the
// frame that produced it. It is the frame's 1-based ordinal in the original
// candidate order.
type FrameToken int

// Sample is one compressed frame ready for the container.
type Sample struct {
	Data  []byte
	PTS   time.Duration
	Token FrameToken
}

// Completion is delivered by the compression engine once a submitted frame
// has been processed.
type Completion struct {
	Token  FrameToken
	Sample Sample
	Err    error
}

// Session accepts raw frames for compression. As used here it is
// single-frame-in-flight: the orchestrator awaits each frame's completion
// before submitting the next.
type Session interface {
	Submit(frame *image.NRGBA, pts time.Duration, token FrameToken) error
	Completions() <-chan Completion
	Close() error
}

// Engine constructs compression sessions for one codec.
type Engine interface {
	// Name is the codec identifier, e.g. "mjpeg".
	Name() string
	// Supports reports whether the engine accepts the named option.
	Supports(option string) bool
	// Defaults lists options the engine fills in when unspecified.
	Defaults() OptionMap
	// Configure builds a session for the fixed frame geometry.
	Configure(ctx context.Context, width, height int, options OptionMap) (Session, error)
}

// Writer appends compressed samples to the output container in submission
// order and finalizes the file.
type Writer interface {
	Append(sample Sample) error
	Finalize(ctx context.Context) error
}

// Opener creates the container writer once frame geometry is known.
type Opener interface {
	Open(destination string, frameRate float64, width, height int) (Writer, error)
}
