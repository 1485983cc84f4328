package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/artifact"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/engine"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
	"github.com/teslashibe/go-facecursor/pkg/wait"
)

// notifications counts fatal presentations.
type notifications struct {
	mu   sync.Mutex
	errs []error
}

func (n *notifications) Notify(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

func (n *notifications) All() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error(nil), n.errs...)
}

// fixture wires a pipeline to mocks and an artifact server.
type fixture struct {
	env      *capability.MockEnvironment
	device   *camera.MockDevice
	eng      *engine.Mock
	injects  int
	requests atomic.Int32
	notes    *notifications
	cursor   *cursor.Cursor
	server   *httptest.Server
	status   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		env:    &capability.MockEnvironment{Camera: true, Accelerated: true, Variant: true},
		device: &camera.MockDevice{Width: 64, Height: 48},
		eng:    engine.NewMock(),
		notes:  &notifications{},
		cursor: cursor.New(cursor.Size{W: 128, H: 96}),
		status: http.StatusOK,
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		w.Write([]byte("model-bytes"))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) pipeline(opts ...func(*Config, *Deps)) *Pipeline {
	cfg := DefaultConfig(f.server.URL + "/")
	cfg.ReadyPolicy = wait.Every(5 * time.Millisecond)
	cfg.LicenseKey = "test-license"

	deps := Deps{
		Environment: f.env,
		Loader:      artifact.NewLoader(artifact.WithLogger(log.Discard())),
		Injector:    engine.MockInjector(f.eng, &f.injects),
		Camera:      f.device,
		Cursor:      f.cursor,
		Notifier:    f.notes,
		Constraints: camera.SmoothConstraints,
		Logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	return New(cfg, deps)
}

func TestPipeline_UnsupportedNeverLoadsOrOpensCamera(t *testing.T) {
	f := newFixture(t)
	f.env.Camera = false
	p := f.pipeline()

	err := p.Start(context.Background())

	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.UnsupportedEnvironment))
	assert.Zero(t, f.requests.Load(), "loader must not fetch")
	assert.Zero(t, f.device.OpenCount(), "camera must not be opened")
	assert.Zero(t, f.injects)
	assert.Len(t, f.notes.All(), 1)
	assert.Equal(t, StageFailed, p.Status().Stage)
}

func TestPipeline_SurfaceFailureIsUnsupported(t *testing.T) {
	f := newFixture(t)
	f.env.SurfaceErr = errors.New("no context")
	p := f.pipeline()

	err := p.Start(context.Background())

	assert.True(t, fault.Is(err, fault.UnsupportedEnvironment))
	assert.Zero(t, f.requests.Load())
	assert.Len(t, f.notes.All(), 1)
}

func TestPipeline_NotFoundSkipsBootstrap(t *testing.T) {
	f := newFixture(t)
	f.status = http.StatusNotFound
	p := f.pipeline()

	err := p.Start(context.Background())

	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.ArtifactLoadFailure))
	var se *artifact.StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.IsNotFound())

	assert.Zero(t, f.injects, "engine must not be injected")
	assert.Zero(t, f.eng.CallCount("Load"))
	assert.Zero(t, f.device.OpenCount())

	notes := f.notes.All()
	require.Len(t, notes, 1)
	assert.Same(t, err, notes[0])
}

func TestPipeline_FailureIsNotifiedOnce(t *testing.T) {
	f := newFixture(t)
	f.status = http.StatusInternalServerError
	p := f.pipeline()

	first := p.Start(context.Background())
	second := p.Start(context.Background())

	require.Error(t, first)
	assert.ErrorIs(t, second, ErrFailed)
	assert.Len(t, f.notes.All(), 1)
	assert.Equal(t, int32(1), f.requests.Load())
	assert.Equal(t, first, p.Err())
}

func TestPipeline_CameraFailure(t *testing.T) {
	f := newFixture(t)
	f.device.OpenErr = camera.ErrPermissionDenied
	p := f.pipeline()

	err := p.Start(context.Background())

	assert.True(t, fault.Is(err, fault.CameraAcquisitionFailure))
	assert.ErrorIs(t, err, camera.ErrPermissionDenied)
	assert.Equal(t, 1, f.injects, "engine is activated before the camera")
	assert.Zero(t, f.eng.CallCount("Init"))
	assert.Len(t, f.notes.All(), 1)
}

func TestPipeline_EngineNotReady(t *testing.T) {
	f := newFixture(t)
	f.eng.ReadyFunc = func() bool { return false }
	p := f.pipeline(func(c *Config, _ *Deps) {
		c.ReadyPolicy = wait.Every(time.Millisecond).WithMaxAttempts(3)
	})

	err := p.Start(context.Background())

	assert.True(t, fault.Is(err, fault.EngineNotReady))
	assert.ErrorIs(t, err, wait.ErrTimeout)
	assert.Len(t, f.notes.All(), 1)
	assert.False(t, p.Status().CameraOpen, "camera released after failure")
}

func TestPipeline_BackgroundLoadFailure(t *testing.T) {
	f := newFixture(t)
	f.eng.ReadyFunc = func() bool { return false }
	f.eng.LoadErrFunc = func() error { return errors.New("model rejected") }
	p := f.pipeline()

	err := p.Start(context.Background())

	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.ArtifactLoadFailure))
	assert.Len(t, f.notes.All(), 1)
	st := p.Status()
	assert.Equal(t, StageFailed, st.Stage)
	assert.False(t, st.CameraOpen, "camera is released")
	assert.Zero(t, f.eng.CallCount("Init"))
}

func TestPipeline_CancelledStartIsNotNotified(t *testing.T) {
	f := newFixture(t)
	f.eng.ReadyFunc = func() bool { return false }
	p := f.pipeline()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := p.Start(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.notes.All())
	assert.Nil(t, p.Err())
}

func TestPipeline_StartTracksAndMovesCursor(t *testing.T) {
	f := newFixture(t)
	f.eng.FacesFunc = func() []engine.FaceRecord {
		return []engine.FaceRecord{{TranslationX: 10, TranslationY: 5, Confidence: 0.9}}
	}

	var frames atomic.Int32
	obs := tracking.ObserverFunc(func(tracking.Frame) { frames.Add(1) })
	p := f.pipeline(func(_ *Config, d *Deps) { d.Observers = []tracking.Observer{obs} })

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.True(t, p.IsTracking())
	assert.ErrorIs(t, p.Start(context.Background()), ErrRunning)

	require.Eventually(t, func() bool { return frames.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.NotEqual(t, cursor.Hidden, f.cursor.State())

	loads := f.eng.Loads()
	require.Len(t, loads, 1)
	assert.Equal(t, []byte("model-bytes"), loads[0].Binary)
	assert.Equal(t, f.server.URL+"/engine_accel/x.onnx", loads[0].LocateFile("x.onnx"))
	assert.Equal(t, 1, f.eng.CallCount("Init"))

	st := p.Status()
	assert.Equal(t, p.ID(), st.ID)
	assert.Equal(t, StageTracking, st.Stage)
	assert.Equal(t, "accelerated", st.Variant)
	require.NotNil(t, st.Support)
	assert.True(t, st.Support.Supported)
	require.NotNil(t, st.Stats)
	assert.Positive(t, st.Stats.Frames)
	assert.Empty(t, f.notes.All())
}

func TestPipeline_FallbackVariant(t *testing.T) {
	f := newFixture(t)
	f.env.Variant = false
	p := f.pipeline()

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Equal(t, "fallback", p.Status().Variant)
	loads := f.eng.Loads()
	require.Len(t, loads, 1)
	assert.Equal(t, f.server.URL+"/engine_fallback/m", loads[0].LocateFile("m"))
}

func TestPipeline_StopThenResume(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()

	require.NoError(t, p.Start(context.Background()))
	p.Stop()

	assert.False(t, p.IsTracking())
	assert.Equal(t, StageStopped, p.Status().Stage)
	require.Len(t, f.device.Streams(), 1)
	assert.True(t, f.device.Streams()[0].Closed())

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.True(t, p.IsTracking())
	assert.Equal(t, 2, f.device.OpenCount(), "resume reacquires the camera")
	assert.Equal(t, int32(1), f.requests.Load(), "resume does not refetch")
	assert.Equal(t, 1, f.injects)
	assert.Equal(t, 1, f.eng.CallCount("Load"))
	assert.Equal(t, 1, f.eng.CallCount("Init"), "resume skips engine init")
}

func TestPipeline_CancelStopsTracking(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))

	cancel()
	p.Wait()

	assert.False(t, p.IsTracking())
	assert.Empty(t, f.notes.All())
	st := p.Status()
	assert.Equal(t, StageStopped, st.Stage)
	assert.False(t, st.CameraOpen, "ending the context releases the camera")
	assert.True(t, f.device.Streams()[0].Closed())

	require.NoError(t, p.Start(context.Background()), "a later start resumes")
	defer p.Stop()
	assert.True(t, p.IsTracking())
	assert.Equal(t, 2, f.device.OpenCount())
	assert.Equal(t, 1, f.eng.CallCount("Init"))
}

func TestPipeline_StatusDuringDimensionWait(t *testing.T) {
	f := newFixture(t)
	f.device.SizeAfter = 1 << 30
	p := f.pipeline()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Start(ctx) }()

	require.Eventually(t, func() bool { return f.device.OpenCount() == 1 }, time.Second, time.Millisecond)

	got := make(chan Status, 1)
	go func() { got <- p.Status() }()
	select {
	case st := <-got:
		assert.Equal(t, StageAcquiring, st.Stage)
		assert.False(t, st.Tracking)
	case <-time.After(time.Second):
		t.Fatal("Status() blocked while the camera negotiates its size")
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.Empty(t, f.notes.All())
}

func TestPipeline_TuningBeforeAndDuringTracking(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline()

	p.SetTuningParams(tracking.TuningParams{FrameRate: 30, Smoothing: 2})
	assert.Equal(t, tracking.TuningParams{FrameRate: 30, Smoothing: 1}, p.GetTuningParams())

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	assert.Equal(t, 30, p.GetTuningParams().FrameRate, "pending tuning applies on start")

	p.SetTuningParams(tracking.TuningParams{FrameRate: 0, Smoothing: 0.25})
	got := p.GetTuningParams()
	assert.Equal(t, 30, got.FrameRate)
	assert.InDelta(t, 0.25, got.Smoothing, 1e-9)
}

func TestPipeline_PublishesStatus(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var stages []Stage
	p := f.pipeline(func(_ *Config, d *Deps) {
		d.OnStatus = func(s Status) {
			mu.Lock()
			stages = append(stages, s.Stage)
			mu.Unlock()
		}
	})

	require.NoError(t, p.Start(context.Background()))
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Stage{
		StageProbing, StageLoading, StageBootstrapping, StageAcquiring,
		StageWaitingReady, StageTracking, StageStopped,
	}, stages)
}

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageIdle, "idle"},
		{StageWaitingReady, "waiting_ready"},
		{StageFailed, "failed"},
		{Stage(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}
