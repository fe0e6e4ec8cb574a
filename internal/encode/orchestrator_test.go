package encode_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"stillmotion/internal/encode"
	"stillmotion/internal/logging"
)

type fakeSession struct {
	completions chan encode.Completion
	failToken   encode.FrameToken
	closed      bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{completions: make(chan encode.Completion, 1)}
}

func (s *fakeSession) Submit(_ *image.NRGBA, pts time.Duration, token encode.FrameToken) error {
	completion := encode.Completion{Token: token}
	if token == s.failToken && s.failToken != 0 {
		completion.Err = errors.New("codec rejected frame")
	} else {
		completion.Sample = encode.Sample{Data: []byte{byte(token)}, PTS: pts, Token: token}
	}
	s.completions <- completion
	return nil
}

func (s *fakeSession) Completions() <-chan encode.Completion { return s.completions }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeEngine struct {
	session   *fakeSession
	supported map[string]bool
	defaults  encode.OptionMap
	gotOpts   encode.OptionMap
	gotW      int
	gotH      int
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Supports(option string) bool { return e.supported[option] }

func (e *fakeEngine) Defaults() encode.OptionMap {
	if e.defaults == nil {
		return encode.OptionMap{}
	}
	return e.defaults
}

func (e *fakeEngine) Configure(_ context.Context, width, height int, options encode.OptionMap) (encode.Session, error) {
	e.gotW, e.gotH, e.gotOpts = width, height, options
	return e.session, nil
}

type fakeWriter struct {
	samples    []encode.Sample
	appendErr  error
	finalized  bool
	finalerror error
}

func (w *fakeWriter) Append(sample encode.Sample) error {
	if w.appendErr != nil {
		return w.appendErr
	}
	w.samples = append(w.samples, sample)
	return nil
}

func (w *fakeWriter) Finalize(context.Context) error {
	w.finalized = true
	return w.finalerror
}

type fakeOpener struct {
	writer *fakeWriter
	gotFPS float64
}

func (o *fakeOpener) Open(_ string, frameRate float64, _, _ int) (encode.Writer, error) {
	o.gotFPS = frameRate
	return o.writer, nil
}

func solidFrame(w, h int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func frames(n int) []encode.Frame {
	out := make([]encode.Frame, n)
	for i := range out {
		out[i] = encode.Frame{
			Path:  fmt.Sprintf("/in/frame%d.jpg", i+1),
			Token: encode.FrameToken(i + 1),
			PTS:   time.Duration(i) * 40 * time.Millisecond,
		}
	}
	return out
}

func TestRunEncodesAllFramesInOrder(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	writer := &fakeWriter{}
	opener := &fakeOpener{writer: writer}

	orch := encode.NewOrchestrator(logging.NewNop(), engine, opener, encode.RunConfig{
		Decode:    func(string) (*image.NRGBA, error) { return solidFrame(16, 9), nil },
		FrameRate: 25,
	})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(3), &counters); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if orch.State() != encode.StateCompleted {
		t.Fatalf("state: %v", orch.State())
	}
	if counters.Encoded != 3 || counters.DecodeFailures != 0 {
		t.Fatalf("counters: %+v", counters)
	}
	if len(writer.samples) != 3 {
		t.Fatalf("samples: %d", len(writer.samples))
	}
	for i, sample := range writer.samples {
		if sample.Token != encode.FrameToken(i+1) {
			t.Fatalf("out-of-order sample at %d: token %d", i, sample.Token)
		}
		if i > 0 && sample.PTS <= writer.samples[i-1].PTS {
			t.Fatalf("non-increasing pts at %d", i)
		}
	}
	if !writer.finalized {
		t.Fatal("container was not finalized")
	}
	if opener.gotFPS != 25 {
		t.Fatalf("frame rate not forwarded: %v", opener.gotFPS)
	}
}

func TestRunSkipsUndecodableFrames(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	writer := &fakeWriter{}

	decode := func(path string) (*image.NRGBA, error) {
		if path == "/in/frame2.jpg" {
			return nil, errors.New("truncated file")
		}
		return solidFrame(16, 9), nil
	}

	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: writer}, encode.RunConfig{Decode: decode})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(3), &counters); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.Encoded != 2 || counters.DecodeFailures != 1 {
		t.Fatalf("counters: %+v", counters)
	}
}

func TestRunFirstFrameUndecodableIsFatal(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	writer := &fakeWriter{}

	decode := func(path string) (*image.NRGBA, error) {
		if path == "/in/frame1.jpg" {
			return nil, errors.New("bad header")
		}
		return solidFrame(20, 10), nil
	}

	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: writer}, encode.RunConfig{Decode: decode})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(2), &counters); err == nil {
		t.Fatal("expected fatal error: session geometry comes from the first frame")
	}
	if orch.State() != encode.StateFailed {
		t.Fatalf("state: %v", orch.State())
	}
	if counters.DecodeFailures != 1 || counters.Encoded != 0 {
		t.Fatalf("counters: %+v", counters)
	}
	if engine.gotW != 0 {
		t.Fatal("session must not be configured after a first-frame decode failure")
	}
}

func TestRunEmptySequenceFails(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: &fakeWriter{}}, encode.RunConfig{})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), nil, &counters); err == nil {
		t.Fatal("expected failure for empty sequence")
	}
	if orch.State() != encode.StateFailed {
		t.Fatalf("state: %v", orch.State())
	}
}

func TestRunCompressionErrorIsFatal(t *testing.T) {
	session := newFakeSession()
	session.failToken = 2
	engine := &fakeEngine{session: session}
	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: &fakeWriter{}}, encode.RunConfig{
		Decode: func(string) (*image.NRGBA, error) { return solidFrame(8, 8), nil },
	})

	var counters encode.PipelineCounters
	err := orch.Run(context.Background(), frames(3), &counters)
	if err == nil {
		t.Fatal("expected fatal compression error")
	}
	if counters.Encoded != 1 {
		t.Fatalf("counters: %+v", counters)
	}
	if orch.State() != encode.StateFailed {
		t.Fatalf("state: %v", orch.State())
	}
}

func TestRunAppendErrorIsFatal(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	writer := &fakeWriter{appendErr: errors.New("disk full")}
	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: writer}, encode.RunConfig{
		Decode: func(string) (*image.NRGBA, error) { return solidFrame(8, 8), nil },
	})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(2), &counters); err == nil {
		t.Fatal("expected fatal append error")
	}
}

func TestRunFinalizeErrorIsFatal(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	writer := &fakeWriter{finalerror: errors.New("moov write failed")}
	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: writer}, encode.RunConfig{
		Decode: func(string) (*image.NRGBA, error) { return solidFrame(8, 8), nil },
	})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(1), &counters); err == nil {
		t.Fatal("expected fatal finalize error")
	}
}

func TestRunScalesToTargetHeight(t *testing.T) {
	engine := &fakeEngine{session: newFakeSession()}
	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: &fakeWriter{}}, encode.RunConfig{
		Decode:       func(string) (*image.NRGBA, error) { return solidFrame(1920, 1080), nil },
		TargetHeight: 540,
	})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(1), &counters); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.gotW != 960 || engine.gotH != 540 {
		t.Fatalf("unexpected session geometry: %dx%d", engine.gotW, engine.gotH)
	}
}

func TestRunDropsUnsupportedOptionsAndMergesDefaults(t *testing.T) {
	engine := &fakeEngine{
		session:   newFakeSession(),
		supported: map[string]bool{"quality": true},
		defaults:  encode.OptionMap{"quality": encode.IntOption(85)},
	}
	options := encode.OptionMap{}
	options.Set("gop", encode.IntOption(12))

	orch := encode.NewOrchestrator(logging.NewNop(), engine, &fakeOpener{writer: &fakeWriter{}}, encode.RunConfig{
		Decode:  func(string) (*image.NRGBA, error) { return solidFrame(8, 8), nil },
		Options: options,
	})

	var counters encode.PipelineCounters
	if err := orch.Run(context.Background(), frames(1), &counters); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := engine.gotOpts["gop"]; ok {
		t.Fatal("unsupported option reached the engine")
	}
	if got, ok := engine.gotOpts["quality"]; !ok || got.Int() != 85 {
		t.Fatalf("default quality not merged: %+v", engine.gotOpts)
	}
}
