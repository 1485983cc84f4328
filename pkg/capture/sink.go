package capture

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/camera"
)

// Sink errors.
var (
	ErrNoStream       = errors.New("capture: no stream bound")
	ErrAlreadyPlaying = errors.New("capture: already playing")
)

// maxReadErrors is how many consecutive read failures stop playback.
const maxReadErrors = 30

// readRetryDelay is the pause after a failed read.
const readRetryDelay = 10 * time.Millisecond

// VideoSink holds a bound camera stream and keeps its most recent frame.
type VideoSink struct {
	logger *slog.Logger

	mu      sync.Mutex
	stream  camera.Stream
	frame   image.Image
	done    chan struct{}
	playing bool

	frames atomic.Int64
}

// NewVideoSink creates an empty sink.
func NewVideoSink(logger *slog.Logger) *VideoSink {
	if logger == nil {
		logger = log.Component("capture")
	}
	return &VideoSink{logger: logger}
}

// Bind attaches a stream. A previously bound stream is released first.
func (s *VideoSink) Bind(stream camera.Stream) {
	s.Release()

	s.mu.Lock()
	s.stream = stream
	s.frame = nil
	s.mu.Unlock()
}

// Play starts pulling frames from the bound stream in the background.
func (s *VideoSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrNoStream
	}
	if s.playing {
		return ErrAlreadyPlaying
	}

	s.playing = true
	s.done = make(chan struct{})
	go s.readLoop(s.stream, s.done)
	return nil
}

func (s *VideoSink) readLoop(stream camera.Stream, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		img, err := stream.Read()
		if err != nil {
			if errors.Is(err, camera.ErrStreamClosed) {
				return
			}
			failures++
			if failures >= maxReadErrors {
				s.logger.Warn("camera stream stopped producing frames", "error", err)
				return
			}
			time.Sleep(readRetryDelay)
			continue
		}
		failures = 0

		s.mu.Lock()
		s.frame = img
		s.mu.Unlock()
		s.frames.Add(1)
	}
}

// Dimensions returns the stream's negotiated size, or 0x0 while unknown.
func (s *VideoSink) Dimensions() (width, height int) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return 0, 0
	}
	return stream.Size()
}

// Frame returns the latest decoded frame, or nil before the first one.
func (s *VideoSink) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Frames returns the number of frames received since creation.
func (s *VideoSink) Frames() int64 {
	return s.frames.Load()
}

// Playing reports whether the sink is pulling frames.
func (s *VideoSink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Release closes the bound stream and waits for playback to stop.
func (s *VideoSink) Release() {
	s.mu.Lock()
	stream := s.stream
	done := s.done
	s.stream = nil
	s.done = nil
	s.playing = false
	s.mu.Unlock()

	if stream == nil {
		return
	}
	if err := stream.Close(); err != nil {
		s.logger.Debug("close camera stream", "error", err)
	}
	if done != nil {
		<-done
	}
}
