// Package host connects the pipeline to the machine it runs on: the local
// webcam through OpenCV and the capability environment.
package host

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/camera"
)

// errNoFrame is returned when the driver hands back an empty frame.
var errNoFrame = errors.New("host: camera returned no frame")

// Webcam opens local capture devices with OpenCV.
type Webcam struct {
	logger *slog.Logger
}

// NewWebcam creates a webcam device opener.
func NewWebcam(logger *slog.Logger) *Webcam {
	if logger == nil {
		logger = log.Component("webcam")
	}
	return &Webcam{logger: logger}
}

// Open opens the device index in c and requests its size and frame rate.
// The driver may negotiate a different size; Size reports what it chose.
func (w *Webcam) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(c.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", camera.ErrNoDevice, c.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d could not be opened", camera.ErrNoDevice, c.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.FrameRate))

	s := &webcamStream{vc: vc, mat: gocv.NewMat()}
	s.width.Store(int64(vc.Get(gocv.VideoCaptureFrameWidth)))
	s.height.Store(int64(vc.Get(gocv.VideoCaptureFrameHeight)))

	w.logger.Info("webcam opened",
		"device", c.Device,
		"requested", fmt.Sprintf("%dx%d@%d", c.Width, c.Height, c.FrameRate),
		"negotiated", fmt.Sprintf("%dx%d@%.0f", s.width.Load(), s.height.Load(), vc.Get(gocv.VideoCaptureFPS)))
	return s, nil
}

// webcamStream serializes reads and close on one VideoCapture. OpenCV
// captures are not safe for concurrent use.
type webcamStream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool

	width  atomic.Int64
	height atomic.Int64
}

// Read grabs and decodes the next frame.
func (s *webcamStream) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, camera.ErrStreamClosed
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, errNoFrame
	}

	s.width.Store(int64(s.mat.Cols()))
	s.height.Store(int64(s.mat.Rows()))

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("host: convert frame: %w", err)
	}
	return img, nil
}

// Size returns the negotiated size, or 0x0 while the driver has not
// reported one yet.
func (s *webcamStream) Size() (int, int) {
	return int(s.width.Load()), int(s.height.Load())
}

// Close releases the capture. It waits for an in-flight Read.
func (s *webcamStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	return s.vc.Close()
}

var _ camera.Device = (*Webcam)(nil)
