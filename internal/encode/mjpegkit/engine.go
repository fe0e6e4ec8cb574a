// Package mjpegkit implements the compression-engine and container-writer
// ports with an in-process Motion-JPEG pipeline: frames are JPEG-compressed
// and muxed into an AVI file.
package mjpegkit

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"stillmotion/internal/encode"
)

// CodecName identifies this engine in configuration.
const CodecName = "mjpeg"

const defaultQuality = 85

// Engine builds MJPEG compression sessions.
type Engine struct{}

// NewEngine returns the MJPEG engine.
func NewEngine() *Engine { return &Engine{} }

// Name implements encode.Engine.
func (*Engine) Name() string { return CodecName }

// Supports implements encode.Engine. MJPEG has a single tunable.
func (*Engine) Supports(option string) bool {
	return option == "quality"
}

// Defaults implements encode.Engine.
func (*Engine) Defaults() encode.OptionMap {
	return encode.OptionMap{"quality": encode.IntOption(defaultQuality)}
}

// Configure implements encode.Engine.
func (*Engine) Configure(_ context.Context, width, height int, options encode.OptionMap) (encode.Session, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("mjpeg: invalid frame geometry %dx%d", width, height)
	}
	quality := defaultQuality
	if value, ok := options["quality"]; ok {
		quality = int(value.Int())
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("mjpeg: quality %d out of range 1-100", quality)
	}
	return &session{
		quality:     quality,
		completions: make(chan encode.Completion, 1),
	}, nil
}

// session compresses one frame at a time. Submissions run on their own
// goroutine and report through the completion channel, whose depth of one
// matches the orchestrator's single-in-flight discipline.
type session struct {
	quality     int
	completions chan encode.Completion
	mu          sync.Mutex
	closed      bool
}

func (s *session) Submit(frame *image.NRGBA, pts time.Duration, token encode.FrameToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("mjpeg: session closed")
	}
	go func() {
		var buf bytes.Buffer
		err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(s.quality))
		completion := encode.Completion{Token: token, Err: err}
		if err == nil {
			completion.Sample = encode.Sample{Data: buf.Bytes(), PTS: pts, Token: token}
		}
		s.completions <- completion
	}()
	return nil
}

func (s *session) Completions() <-chan encode.Completion {
	return s.completions
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
