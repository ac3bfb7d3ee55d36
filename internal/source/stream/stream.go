// Package stream decodes a live video URI with GStreamer and delivers RGBA
// frames at the calibration resolution.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
	"github.com/tinyzimmer/go-gst/gst/video"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
	"github.com/GriffinCanCode/autovod/internal/source"
)

// Config selects the input and the output frame size.
type Config struct {
	URI    string // anything uridecodebin accepts: file://, rtsp://, rtmp://, http://
	Width  int
	Height int
}

// Caps returns the appsink caps for cfg.
func (c Config) Caps() string {
	return fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", c.Width, c.Height)
}

// Source runs uridecodebin → videoconvert → videoscale → capsfilter → appsink.
// Frames are emitted from the GStreamer streaming thread and borrow the mapped
// buffer for the duration of the emit call.
type Source struct {
	cfg Config

	frames  atomic.Uint64
	skipped atomic.Uint64
}

// New creates a stream source.
func New(cfg Config) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) Name() string { return "gst" }

// Frames returns how many frames were delivered.
func (s *Source) Frames() uint64 { return s.frames.Load() }

type pipeline struct {
	pipe    *gst.Pipeline
	decode  *gst.Element
	convert *gst.Element
	sink    *app.Sink
}

func (s *Source) build() (*pipeline, error) {
	gst.Init(nil)

	pipe, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	elems := make(map[string]*gst.Element, 4)
	for _, name := range []string{"uridecodebin", "videoconvert", "videoscale", "capsfilter"} {
		e, err := gst.NewElement(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		elems[name] = e
	}
	elems["uridecodebin"].SetProperty("uri", s.cfg.URI)
	elems["capsfilter"].SetProperty("caps", gst.NewCapsFromString(s.cfg.Caps()))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	if err := pipe.AddMany(elems["uridecodebin"], elems["videoconvert"], elems["videoscale"], elems["capsfilter"], sink.Element); err != nil {
		return nil, fmt.Errorf("add elements: %w", err)
	}
	// uridecodebin pads appear at runtime, linked in onPadAdded
	if err := gst.ElementLinkMany(elems["videoconvert"], elems["videoscale"], elems["capsfilter"], sink.Element); err != nil {
		return nil, fmt.Errorf("link elements: %w", err)
	}
	return &pipeline{pipe: pipe, decode: elems["uridecodebin"], convert: elems["videoconvert"], sink: sink}, nil
}

func onPadAdded(srcPad *gst.Pad, convert *gst.Element) {
	sinkPad := convert.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("stream: videoconvert has no sink pad")
		return
	}
	// audio pads fail to link, which is expected
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Debug("stream: pad not linked", "pad", srcPad.GetName(), "ret", ret)
		return
	}
	slog.Debug("stream: pad linked", "pad", srcPad.GetName())
}

func (s *Source) onSample(sink *app.Sink, emit source.Emit) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	l, err := sampleLayout(sample.GetCaps())
	if err != nil {
		if s.skipped.Add(1) == 1 {
			slog.Warn("stream: unusable sample caps, skipping", "error", err)
		}
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	defer buffer.Unmap()

	f, err := wrapSample(mapInfo.Bytes(), l)
	if err != nil {
		if s.skipped.Add(1) == 1 {
			slog.Warn("stream: unexpected buffer layout, skipping", "error", err)
		}
		return gst.FlowOK
	}
	s.frames.Add(1)
	emit(time.Now(), f)
	return gst.FlowOK
}

// layout is the row geometry of a negotiated RGBA sample.
type layout struct {
	width, height, stride int
}

// sampleLayout reads frame geometry from the negotiated caps. RGBA is a single
// packed plane, so the video info size divided by the height is the row stride.
func sampleLayout(caps *gst.Caps) (layout, error) {
	if caps == nil {
		return layout{}, fmt.Errorf("sample has no caps")
	}
	info := video.NewInfo().FromCaps(caps)
	if info.Format() != video.FormatRGBA {
		return layout{}, fmt.Errorf("sample format %s, want RGBA", info.Format())
	}
	w, h := info.Width(), info.Height()
	if w <= 0 || h <= 0 {
		return layout{}, fmt.Errorf("sample size %dx%d", w, h)
	}
	return layout{width: w, height: h, stride: int(info.Size()) / h}, nil
}

// wrapSample borrows a mapped RGBA buffer laid out as l. Bytes past the last
// row are ignored.
func wrapSample(data []byte, l layout) (*frame.PixelFrame, error) {
	if l.height <= 0 || len(data) == 0 {
		return nil, fmt.Errorf("empty sample")
	}
	return frame.Wrap(l.width, l.height, l.stride, data)
}

// Run plays the pipeline until ctx is done, end of stream, or a pipeline error.
// Pipeline errors carry CodeSourceFailed so callers can restart the source.
func (s *Source) Run(ctx context.Context, emit source.Emit) error {
	p, err := s.build()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeSourceFailed, "build pipeline").WithMetadata("uri", s.cfg.URI)
	}
	defer p.pipe.SetState(gst.StateNull)

	p.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return s.onSample(sink, emit)
		},
	})
	if _, err := p.decode.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		onPadAdded(pad, p.convert)
	}); err != nil {
		return apperrors.Wrap(err, apperrors.CodeSourceFailed, "connect pad-added")
	}

	if err := p.pipe.SetState(gst.StatePlaying); err != nil {
		return apperrors.Wrap(err, apperrors.CodeSourceFailed, "start pipeline").WithMetadata("uri", s.cfg.URI)
	}
	slog.Info("stream: pipeline started", "uri", s.cfg.URI, "caps", s.cfg.Caps())

	bus := p.pipe.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("stream: end of stream", "uri", s.cfg.URI, "frames", s.frames.Load())
			return nil
		case gst.MessageError:
			gerr := msg.ParseError()
			slog.Error("stream: pipeline error", "error", gerr.Error(), "debug", gerr.DebugString())
			return apperrors.Wrap(gerr, apperrors.CodeSourceFailed, "pipeline error").WithMetadata("uri", s.cfg.URI)
		}
	}
}
