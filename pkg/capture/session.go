// Package capture acquires the camera stream and the rendering surface the
// tracking loop draws into.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/wait"
)

// DimensionPollInterval is how often the sink is checked for its negotiated
// size.
const DimensionPollInterval = 50 * time.Millisecond

// Context is the capture state shared with the tracking loop. Drawing is
// created once; a non-nil Drawing means a previous start already sized the
// surface.
type Context struct {
	Sink    *VideoSink
	Surface *Canvas
	Drawing *Drawing
}

// Session owns the capture context and the device it reads from.
type Session struct {
	device      camera.Device
	constraints func() camera.Constraints
	dimensions  wait.Policy
	logger      *slog.Logger

	// starts serializes Start. mu only guards ctx, so Context never waits
	// on a camera that is still negotiating its size.
	starts sync.Mutex
	mu     sync.Mutex
	ctx    Context
}

// Option configures a Session.
type Option func(*Session)

// WithConstraints sets the constraint source. It is read on every start so
// changes apply on the next resume.
func WithConstraints(fn func() camera.Constraints) Option {
	return func(s *Session) { s.constraints = fn }
}

// WithDimensionPolicy overrides the poll used while waiting for the
// negotiated size.
func WithDimensionPolicy(p wait.Policy) Option {
	return func(s *Session) { s.dimensions = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates a session reading from device.
func NewSession(device camera.Device, opts ...Option) *Session {
	s := &Session{
		device:      device,
		constraints: camera.DefaultConstraints,
		dimensions:  wait.Every(DimensionPollInterval),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Component("capture")
	}
	s.ctx.Sink = NewVideoSink(s.logger)
	s.ctx.Surface = NewCanvas(0, 0)
	return s
}

// Start requests the camera, binds it to the sink and starts playback. On
// the first start it waits for the negotiated size, sizes the surface to it
// and creates the drawing context, returning first=true. Later starts only
// rebind the stream and return first=false.
func (s *Session) Start(ctx context.Context) (first bool, err error) {
	c := s.constraints()
	s.logger.Info("requesting camera", "width", c.Width, "height", c.Height, "fps", c.FrameRate)

	stream, err := s.device.Open(ctx, c)
	if err != nil {
		return false, fault.New(fault.CameraAcquisitionFailure, "capture.start", err)
	}

	s.starts.Lock()
	defer s.starts.Unlock()

	sink, surface := s.ctx.Sink, s.ctx.Surface
	sink.Bind(stream)
	if err := sink.Play(); err != nil {
		sink.Release()
		return false, fault.New(fault.CameraAcquisitionFailure, "capture.start", err)
	}

	if s.Started() {
		s.logger.Info("camera resumed")
		return false, nil
	}

	var w, h int
	attempts, err := wait.Until(ctx, s.dimensions, func() bool {
		w, h = sink.Dimensions()
		return w > 0 && h > 0
	})
	if err != nil {
		sink.Release()
		return false, fault.New(fault.CameraAcquisitionFailure, "capture.start",
			fmt.Errorf("waiting for stream dimensions: %w", err))
	}

	s.mu.Lock()
	surface.SetSize(w, h)
	s.ctx.Drawing = NewDrawing(surface)
	s.mu.Unlock()

	s.logger.Info("camera started", "width", w, "height", h, "dimension_checks", attempts)
	return true, nil
}

// Stop releases the camera stream. The surface and drawing context are
// kept so the next Start is a resume.
func (s *Session) Stop() {
	s.ctx.Sink.Release()
	s.logger.Info("camera stopped")
}

// Context returns a snapshot of the capture context.
func (s *Session) Context() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Started reports whether the drawing context exists.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx.Drawing != nil
}
