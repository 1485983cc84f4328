package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/wait"
)

// Bootstrapper errors.
var (
	ErrNotInjected  = errors.New("engine: runtime not injected")
	ErrNotActivated = errors.New("engine: not activated")
)

// Handle is the activated engine. It is created once and lives as long as
// the pipeline that owns it.
type Handle struct {
	Engine     Engine
	Resolution Rect

	initialized bool
}

// Manager returns the engine's inference manager.
func (h *Handle) Manager() Manager {
	return h.Engine.Manager()
}

// Initialized reports whether Init has run.
func (h *Handle) Initialized() bool {
	return h.initialized
}

// Init sets the handle's resolution and initializes the manager with it as
// both input and output resolution. Later calls are no-ops.
func (h *Handle) Init(res Rect, licenseKey string) error {
	if h.initialized {
		return nil
	}
	if err := h.Manager().Init(res, res, licenseKey); err != nil {
		return fmt.Errorf("engine: init manager: %w", err)
	}
	h.Resolution = res
	h.initialized = true
	return nil
}

// Bootstrapper injects, activates and waits for the engine.
type Bootstrapper struct {
	injector Injector
	logger   *slog.Logger

	mu       sync.Mutex
	injected bool
	engine   Engine
	handle   *Handle
}

// NewBootstrapper creates a bootstrapper around injector.
func NewBootstrapper(injector Injector, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = log.Component("engine")
	}
	return &Bootstrapper{injector: injector, logger: logger}
}

// Inject makes the engine runtime available. Only the first call reaches the
// injector; later calls return nil without side effects.
func (b *Bootstrapper) Inject(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.injected {
		b.logger.Debug("engine runtime already injected")
		return nil
	}

	eng, err := b.injector.Inject(ctx)
	if err != nil {
		return fault.New(fault.ArtifactLoadFailure, "engine.inject", err)
	}
	b.engine = eng
	b.injected = true
	b.logger.Debug("engine runtime injected")
	return nil
}

// Activate calls the engine's bootstrap entry point with cfg's options. The
// first call wins: once a handle exists, later calls change nothing.
func (b *Bootstrapper) Activate(cfg *Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle != nil {
		b.logger.Debug("engine already activated")
		return nil
	}
	if !b.injected {
		return ErrNotInjected
	}

	opts := cfg.Options()
	if err := b.engine.Load(opts); err != nil {
		return fault.New(fault.ArtifactLoadFailure, "engine.activate", err)
	}
	b.handle = &Handle{Engine: b.engine}

	b.logger.Info("engine activated", "prefetched_bytes", len(opts.Binary))
	return nil
}

// Handle returns the handle, or nil before Activate.
func (b *Bootstrapper) Handle() *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// WaitReady polls the engine's readiness flag on policy's interval. With an
// unbounded policy it only returns early when ctx ends or the engine reports
// a background load failure.
func (b *Bootstrapper) WaitReady(ctx context.Context, policy wait.Policy) (*Handle, error) {
	h := b.Handle()
	if h == nil {
		return nil, ErrNotActivated
	}

	loadErr := func() error { return nil }
	if le, ok := h.Engine.(LoadErrorer); ok {
		loadErr = le.LoadErr
	}

	var failed error
	attempts, err := wait.Until(ctx, policy, func() bool {
		if failed = loadErr(); failed != nil {
			return true
		}
		return h.Engine.Ready()
	})
	if failed != nil {
		return nil, fault.New(fault.ArtifactLoadFailure, "engine.wait_ready", failed)
	}
	if errors.Is(err, wait.ErrTimeout) {
		return nil, fault.New(fault.EngineNotReady, "engine.wait_ready", fmt.Errorf("after %d checks: %w", attempts, err))
	}
	if err != nil {
		return nil, err
	}

	b.logger.Info("engine ready", "checks", attempts)
	return h, nil
}
