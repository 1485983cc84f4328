package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/wait"
)

func TestSession_FirstStartSizesSurface(t *testing.T) {
	dev := &camera.MockDevice{Width: 320, Height: 240, SizeAfter: 3}
	s := NewSession(dev, WithLogger(log.Discard()))
	defer s.Stop()

	start := time.Now()
	first, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, first)

	// Three 0x0 checks before the size appears
	assert.GreaterOrEqual(t, time.Since(start), 3*DimensionPollInterval)

	c := s.Context()
	require.NotNil(t, c.Drawing)
	w, h := c.Surface.Size()
	assert.Equal(t, 320, w, "surface uses negotiated width, not requested")
	assert.Equal(t, 240, h)

	opens := dev.Opens()
	require.Len(t, opens, 1)
	assert.Equal(t, camera.DefaultConstraints(), opens[0])
}

func TestSession_Resume(t *testing.T) {
	dev := &camera.MockDevice{}
	s := NewSession(dev, WithLogger(log.Discard()))
	defer s.Stop()

	first, err := s.Start(context.Background())
	require.NoError(t, err)
	require.True(t, first)
	drawing := s.Context().Drawing

	s.Stop()
	assert.True(t, dev.Streams()[0].Closed(), "stop releases the stream")
	assert.True(t, s.Started(), "stop keeps the drawing context")

	first, err = s.Start(context.Background())
	require.NoError(t, err)
	assert.False(t, first, "second start is a resume")
	assert.Same(t, drawing, s.Context().Drawing)
	assert.Equal(t, 2, dev.OpenCount())
}

func TestSession_CameraDenied(t *testing.T) {
	dev := &camera.MockDevice{OpenErr: camera.ErrPermissionDenied}
	s := NewSession(dev, WithLogger(log.Discard()))

	first, err := s.Start(context.Background())
	assert.False(t, first)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.CameraAcquisitionFailure))
	assert.ErrorIs(t, err, camera.ErrPermissionDenied)
	assert.Equal(t, fault.MsgCamera, fault.Message(err))
	assert.Nil(t, s.Context().Drawing)
	assert.Equal(t, 1, dev.OpenCount(), "no retry")
}

func TestSession_DimensionsNeverArrive(t *testing.T) {
	dev := &camera.MockDevice{SizeAfter: 1000}
	s := NewSession(dev,
		WithLogger(log.Discard()),
		WithDimensionPolicy(wait.Every(time.Millisecond).WithMaxAttempts(5)),
	)

	_, err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.CameraAcquisitionFailure))
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.True(t, dev.Streams()[0].Closed())
}

func TestSession_ContextDuringDimensionWait(t *testing.T) {
	dev := &camera.MockDevice{SizeAfter: 1 << 30}
	s := NewSession(dev,
		WithLogger(log.Discard()),
		WithDimensionPolicy(wait.Every(time.Millisecond)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := s.Start(ctx)
		errc <- err
	}()

	require.Eventually(t, func() bool { return dev.OpenCount() == 1 }, time.Second, time.Millisecond)

	got := make(chan Context, 1)
	go func() { got <- s.Context() }()
	select {
	case c := <-got:
		assert.Nil(t, c.Drawing, "surface is not sized yet")
	case <-time.After(time.Second):
		t.Fatal("Context() blocked while waiting for stream dimensions")
	}
	assert.False(t, s.Started())

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestSession_ConstraintsReadPerStart(t *testing.T) {
	dev := &camera.MockDevice{}
	c := camera.LowConstraints()
	s := NewSession(dev,
		WithLogger(log.Discard()),
		WithConstraints(func() camera.Constraints { return c }),
	)
	defer s.Stop()

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	s.Stop()

	c = camera.HD720Constraints()
	_, err = s.Start(context.Background())
	require.NoError(t, err)

	opens := dev.Opens()
	require.Len(t, opens, 2)
	assert.Equal(t, 320, opens[0].Width)
	assert.Equal(t, 1280, opens[1].Width)
}

func TestVideoSink(t *testing.T) {
	sink := NewVideoSink(log.Discard())
	assert.ErrorIs(t, sink.Play(), ErrNoStream)

	dev := &camera.MockDevice{Fill: color.RGBA{R: 200}}
	stream, err := dev.Open(context.Background(), camera.SmoothConstraints())
	require.NoError(t, err)

	sink.Bind(stream)
	require.NoError(t, sink.Play())
	assert.ErrorIs(t, sink.Play(), ErrAlreadyPlaying)

	require.Eventually(t, func() bool { return sink.Frame() != nil }, 2*time.Second, 5*time.Millisecond)
	r, _, _, _ := sink.Frame().At(0, 0).RGBA()
	assert.Equal(t, uint32(200), r>>8)

	sink.Release()
	assert.False(t, sink.Playing())
	w, h := sink.Dimensions()
	assert.Zero(t, w+h)
}

// failingStream errors on every read.
type failingStream struct{ reads int }

func (f *failingStream) Read() (image.Image, error) {
	f.reads++
	return nil, errors.New("no frame")
}
func (f *failingStream) Size() (int, int) { return 1, 1 }
func (f *failingStream) Close() error     { return nil }

func TestVideoSink_StopsAfterRepeatedFailures(t *testing.T) {
	sink := NewVideoSink(log.Discard())
	fs := &failingStream{}
	sink.Bind(fs)
	require.NoError(t, sink.Play())

	sink.mu.Lock()
	done := sink.done
	sink.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not give up")
	}
	assert.Equal(t, maxReadErrors, fs.reads)
	sink.Release()
}

func TestDrawing_Mirrored(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	// Left column red, everything else black
	for y := 0; y < 2; y++ {
		src.Set(0, y, color.RGBA{R: 255, A: 255})
		for x := 1; x < 4; x++ {
			src.Set(x, y, color.RGBA{A: 255})
		}
	}

	c := NewCanvas(4, 2)
	d := NewDrawing(c)
	require.NoError(t, d.DrawMirrored(src))

	img := d.Image()
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(3, 0), "left column lands on the right")
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(0, 0))

	pix := d.ImageData()
	assert.Len(t, pix, 4*2*4)
	assert.Equal(t, byte(255), pix[3*4], "red channel of (3,0)")
}

func TestDrawing_Scaled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{G: 255, A: 255})
	src.Set(0, 1, color.RGBA{G: 255, A: 255})

	c := NewCanvas(8, 8)
	d := NewDrawing(c)
	require.NoError(t, d.DrawMirrored(src))

	img := d.Image()
	assert.Equal(t, uint8(255), img.RGBAAt(7, 7).G)
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).G)
}

func TestDrawing_NilAndEmpty(t *testing.T) {
	d := NewDrawing(NewCanvas(2, 2))
	assert.NoError(t, d.DrawMirrored(nil))

	empty := NewDrawing(NewCanvas(0, 0))
	assert.ErrorIs(t, empty.DrawMirrored(image.NewRGBA(image.Rect(0, 0, 1, 1))), ErrEmptySurface)
}

func TestCanvas_Accelerated(t *testing.T) {
	c := NewCanvas(1, 1)
	assert.True(t, c.Accelerated())
	require.NoError(t, c.Close())
	assert.False(t, c.Accelerated())
}
