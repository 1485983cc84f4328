package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"
)

// MockDevice is a Device for tests. It serves solid frames at the
// negotiated size.
type MockDevice struct {
	// OpenErr, when set, is returned from every Open.
	OpenErr error

	// Width and Height override the negotiated size. Zero means use the
	// requested size.
	Width, Height int

	// SizeAfter is the number of Size calls that report 0x0 before the
	// real dimensions appear.
	SizeAfter int

	// Fill is the frame colour.
	Fill color.RGBA

	mu      sync.Mutex
	opens   []Constraints
	streams []*MockStream
}

// Open records the request and returns a new MockStream.
func (d *MockDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens = append(d.opens, c)
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := c.Width, c.Height
	if d.Width > 0 && d.Height > 0 {
		w, h = d.Width, d.Height
	}
	s := &MockStream{w: w, h: h, hidden: int32(d.SizeAfter), fill: d.Fill}
	if c.FrameRate > 0 {
		s.interval = time.Second / time.Duration(c.FrameRate)
	}
	d.streams = append(d.streams, s)
	return s, nil
}

// Opens returns the constraints passed to each Open call.
func (d *MockDevice) Opens() []Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Constraints(nil), d.opens...)
}

// OpenCount returns the number of Open calls.
func (d *MockDevice) OpenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.opens)
}

// Streams returns every stream handed out so far.
func (d *MockDevice) Streams() []*MockStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockStream(nil), d.streams...)
}

// MockStream is a Stream producing solid frames.
type MockStream struct {
	w, h     int
	hidden   int32
	interval time.Duration
	fill     color.RGBA
	reads    atomic.Int64
	closed   atomic.Bool
}

// Read returns a solid frame at the requested frame rate until the stream
// is closed.
func (s *MockStream) Read() (image.Image, error) {
	if s.interval > 0 {
		time.Sleep(s.interval)
	}
	if s.closed.Load() {
		return nil, ErrStreamClosed
	}
	s.reads.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = s.fill.R
		img.Pix[i+1] = s.fill.G
		img.Pix[i+2] = s.fill.B
		img.Pix[i+3] = 255
	}
	return img, nil
}

// Size reports 0x0 for the first SizeAfter calls.
func (s *MockStream) Size() (int, int) {
	if atomic.AddInt32(&s.hidden, -1) >= 0 {
		return 0, 0
	}
	return s.w, s.h
}

// Close marks the stream closed.
func (s *MockStream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *MockStream) Closed() bool { return s.closed.Load() }

// Reads returns the number of frames read.
func (s *MockStream) Reads() int64 { return s.reads.Load() }
