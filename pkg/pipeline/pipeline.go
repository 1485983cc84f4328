// Package pipeline sequences capability probing, engine bootstrap, camera
// capture and the tracking loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/artifact"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/capture"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/engine"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
	"github.com/teslashibe/go-facecursor/pkg/wait"
)

// Pipeline errors.
var (
	// ErrRunning is returned by Start while tracking is active.
	ErrRunning = errors.New("pipeline: already tracking")

	// ErrFailed wraps the first fatal error on every later Start.
	ErrFailed = errors.New("pipeline: failed earlier")

	// errUnsupported is the cause of an unsupported-environment fault.
	errUnsupported = errors.New("no camera or no accelerated rendering surface")
)

// Config holds the pipeline settings.
type Config struct {
	Artifact    artifact.Config
	LicenseKey  string
	ReadyPolicy wait.Policy // Engine readiness poll; unbounded unless limited
	Tracking    tracking.Config
}

// DefaultConfig returns the standard pipeline for artifacts under baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		Artifact:    artifact.DefaultConfig(baseURL),
		ReadyPolicy: wait.Every(engine.ReadyPollInterval),
		Tracking:    tracking.DefaultConfig(),
	}
}

// Deps are the collaborators a pipeline drives.
type Deps struct {
	Environment capability.Environment
	Loader      *artifact.Loader
	Injector    engine.Injector
	Camera      camera.Device
	Cursor      *cursor.Cursor
	Notifier    fault.Notifier

	// Optional
	Constraints func() camera.Constraints // Read on every start
	Observers   []tracking.Observer
	Clock       tracking.Clock
	OnStatus    func(Status)
	Logger      *slog.Logger
}

// Pipeline is one face cursor instance. It owns everything it starts.
type Pipeline struct {
	id     uuid.UUID
	cfg    Config
	deps   Deps
	logger *slog.Logger

	boot    *engine.Bootstrapper
	session *capture.Session

	mu       sync.Mutex
	stage    Stage
	support  *capability.SupportState
	variant  string
	loop     *tracking.Loop
	cancel   context.CancelFunc
	done     chan struct{}
	failure  error
	tuning   tracking.TuningParams
	starting bool

	tracking atomic.Bool
}

// New creates a pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	id := uuid.New()
	logger := deps.Logger
	if logger == nil {
		logger = log.Component("pipeline")
	}
	logger = logger.With("pipeline", id.String())

	if deps.Loader == nil {
		deps.Loader = artifact.NewLoader(artifact.WithLogger(logger))
	}
	if deps.Notifier == nil {
		deps.Notifier = fault.NotifierFunc(func(error) {})
	}
	if deps.Cursor == nil {
		deps.Cursor = cursor.New(cursor.Size{W: 1280, H: 720})
	}

	opts := []capture.Option{capture.WithLogger(logger)}
	if deps.Constraints != nil {
		opts = append(opts, capture.WithConstraints(deps.Constraints))
	}

	return &Pipeline{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		boot:    engine.NewBootstrapper(deps.Injector, logger),
		session: capture.NewSession(deps.Camera, opts...),
		stage:   StageIdle,
		tuning: tracking.TuningParams{
			FrameRate: cfg.Tracking.FrameRate,
			Smoothing: cfg.Tracking.Smoothing,
		},
	}
}

// ID returns the pipeline's unique id.
func (p *Pipeline) ID() string {
	return p.id.String()
}

// IsTracking reports whether the tracking loop is running.
func (p *Pipeline) IsTracking() bool {
	return p.tracking.Load()
}

// Start brings the pipeline up and starts tracking in the background. The
// first call probes, loads, bootstraps and acquires the camera; after Stop,
// a later call only reacquires the camera and resumes tracking. ctx bounds
// both the startup and the tracking that follows.
//
// A fatal error is presented through the notifier exactly once and
// returned. Cancellation is returned without notifying.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.failure != nil {
		err := p.failure
		p.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrFailed, err)
	}
	if p.cancel != nil || p.starting {
		p.mu.Unlock()
		return ErrRunning
	}
	p.starting = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.starting = false
		p.mu.Unlock()
	}()

	handle, err := p.bringUp(ctx)
	if err != nil {
		if ctx.Err() != nil {
			p.setStage(StageStopped)
			return ctx.Err()
		}
		p.fail(err)
		return err
	}

	p.startLoop(ctx, handle)
	return nil
}

// bringUp runs every step up to an initialized engine and a playing camera.
func (p *Pipeline) bringUp(ctx context.Context) (*engine.Handle, error) {
	if p.boot.Handle() == nil {
		if err := p.bootstrap(ctx); err != nil {
			return nil, err
		}
	}

	p.setStage(StageAcquiring)
	first, err := p.session.Start(ctx)
	if err != nil {
		return nil, err
	}
	// A start cancelled during the readiness wait leaves a sized surface
	// but an uninitialized engine, so that case still goes through init.
	if h := p.boot.Handle(); !first && h.Initialized() {
		p.logger.Info("resuming tracking")
		return h, nil
	}

	p.setStage(StageWaitingReady)
	handle, err := p.boot.WaitReady(ctx, p.cfg.ReadyPolicy)
	if err != nil {
		p.session.Stop()
		return nil, err
	}

	w, h := p.session.Context().Surface.Size()
	if err := handle.Init(engine.Resolution(w, h), p.cfg.LicenseKey); err != nil {
		p.session.Stop()
		return nil, &fault.Error{
			Kind:    fault.EngineNotReady,
			Op:      "pipeline.init",
			Message: "ERROR: The face tracking engine failed to initialize.",
			Err:     err,
		}
	}
	p.logger.Info("engine initialized", "width", w, "height", h)
	return handle, nil
}

// bootstrap probes the host, fetches the artifact and activates the engine.
func (p *Pipeline) bootstrap(ctx context.Context) error {
	p.setStage(StageProbing)
	support, err := p.probe()
	if err != nil {
		return err
	}
	if !support.Supported {
		return fault.New(fault.UnsupportedEnvironment, "pipeline.probe", errUnsupported)
	}

	p.setStage(StageLoading)
	variant := p.cfg.Artifact.Select(support)
	p.mu.Lock()
	p.variant = variant.Name
	p.mu.Unlock()

	binary, err := p.deps.Loader.Load(ctx, p.cfg.Artifact, support)
	if err != nil {
		return err
	}

	p.setStage(StageBootstrapping)
	cfg := engine.NewConfig(variant.BaseURL, p.cfg.Artifact.Name, p.cfg.LicenseKey)
	if err := cfg.SetBinary(binary); err != nil {
		return err
	}
	if err := p.boot.Inject(ctx); err != nil {
		return err
	}
	return p.boot.Activate(cfg)
}

// probe runs the capability probe once per pipeline.
func (p *Pipeline) probe() (capability.SupportState, error) {
	p.mu.Lock()
	if p.support != nil {
		s := *p.support
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	state, err := capability.Probe(p.deps.Environment)

	p.mu.Lock()
	p.support = &state
	p.mu.Unlock()

	p.logger.Info("capability probed", "supported", state.Supported, "accelerated_variant", state.AcceleratedVariant)
	return state, err
}

// startLoop runs the tracking loop until Stop or ctx ends.
func (p *Pipeline) startLoop(ctx context.Context, handle *engine.Handle) {
	p.mu.Lock()

	cfg := p.cfg.Tracking
	cfg.FrameRate = p.tuning.FrameRate
	cfg.Smoothing = p.tuning.Smoothing

	opts := []tracking.LoopOption{
		tracking.WithObservers(p.deps.Observers...),
		tracking.WithLogger(p.logger),
	}
	if p.deps.Clock != nil {
		opts = append(opts, tracking.WithClock(p.deps.Clock))
	}
	p.loop = tracking.NewLoop(cfg, handle.Manager(), p.session.Context(), p.deps.Cursor, opts...)

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.tracking.Store(true)
	p.stage = StageTracking

	go func(loop *tracking.Loop, done chan struct{}) {
		defer close(done)
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Info("tracking loop ended", "error", err)
		}
		p.tracking.Store(false)
		p.loopEnded(done)
	}(p.loop, p.done)
	p.mu.Unlock()

	p.publish()
}

// Stop ends tracking and releases the camera. The engine stays loaded, so
// the next Start resumes.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	p.session.Stop()
	p.setStage(StageStopped)
}

// loopEnded cleans up after a loop that stopped on its own, i.e. because
// the Start context ended. A loop claimed by Stop is left to Stop.
func (p *Pipeline) loopEnded(done chan struct{}) {
	p.mu.Lock()
	if p.done != done {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	cancel()
	p.session.Stop()
	p.setStage(StageStopped)
}

// Wait blocks until the tracking loop exits.
func (p *Pipeline) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// fail records and presents the first fatal error.
func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.failure = err
	p.stage = StageFailed
	p.mu.Unlock()

	p.deps.Notifier.Notify(err)
	p.publish()
}

// Err returns the fatal error, if any.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

// GetTuningParams returns the loop's tuning parameters.
func (p *Pipeline) GetTuningParams() tracking.TuningParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loop != nil && p.tracking.Load() {
		return p.loop.GetTuningParams()
	}
	return p.tuning
}

// SetTuningParams updates the running loop and is kept for resumes.
func (p *Pipeline) SetTuningParams(params tracking.TuningParams) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loop != nil {
		p.loop.SetTuningParams(params)
		p.tuning = p.loop.GetTuningParams()
		return
	}
	p.tuning.Smoothing = min(max(params.Smoothing, 0), 1)
	if params.FrameRate > 0 {
		p.tuning.FrameRate = min(params.FrameRate, 240)
	}
}

func (p *Pipeline) setStage(s Stage) {
	p.mu.Lock()
	p.stage = s
	p.mu.Unlock()
	p.logger.Debug("stage", "stage", s.String())
	p.publish()
}

// publish pushes a status snapshot to OnStatus. It must not be called
// with p.mu held.
func (p *Pipeline) publish() {
	if p.deps.OnStatus != nil {
		p.deps.OnStatus(p.Status())
	}
}
