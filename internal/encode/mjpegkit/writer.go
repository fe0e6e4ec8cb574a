package mjpegkit

import (
	"context"
	"fmt"
	"math"

	"github.com/icza/mjpeg"

	"stillmotion/internal/encode"
)

// ContainerName identifies the AVI writer in configuration.
const ContainerName = "avi"

// Opener creates AVI container writers.
type Opener struct{}

// NewOpener returns the AVI opener.
func NewOpener() *Opener { return &Opener{} }

// Open implements encode.Opener. AVI carries an integer frame rate, so the
// effective rate is rounded; sub-1 fps rates clamp to 1.
func (*Opener) Open(destination string, frameRate float64, width, height int) (encode.Writer, error) {
	rate := int32(math.Round(frameRate))
	if rate < 1 {
		rate = 1
	}
	avi, err := mjpeg.New(destination, int32(width), int32(height), rate)
	if err != nil {
		return nil, fmt.Errorf("open avi %s: %w", destination, err)
	}
	return &writer{avi: avi}, nil
}

type writer struct {
	avi     mjpeg.AviWriter
	lastPTS int64
	frames  int
}

// Append implements encode.Writer. Samples must arrive in non-decreasing
// presentation order; the orchestrator's submission discipline guarantees
// it, and a violation here means a bug upstream.
func (w *writer) Append(sample encode.Sample) error {
	if w.frames > 0 && sample.PTS.Nanoseconds() < w.lastPTS {
		return fmt.Errorf("avi: sample %d arrived out of presentation order", sample.Token)
	}
	if err := w.avi.AddFrame(sample.Data); err != nil {
		return fmt.Errorf("avi: add frame %d: %w", sample.Token, err)
	}
	w.lastPTS = sample.PTS.Nanoseconds()
	w.frames++
	return nil
}

// Finalize implements encode.Writer, blocking until the index is written.
func (w *writer) Finalize(context.Context) error {
	if err := w.avi.Close(); err != nil {
		return fmt.Errorf("avi: finalize: %w", err)
	}
	return nil
}
