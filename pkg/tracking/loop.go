package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/capture"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/debug"
	"github.com/teslashibe/go-facecursor/pkg/engine"
)

// ErrAlreadyRunning is returned when Run is called on a running loop.
var ErrAlreadyRunning = errors.New("tracking: loop already running")

// Frame is what observers see after each cycle.
type Frame struct {
	Seq   uint64
	Time  time.Time
	Faces int

	// Face is the primary record, nil when no face was found.
	Face  *engine.FaceRecord
	Found bool

	// Cursor is the position sent this frame. Only meaningful when Found.
	Cursor cursor.State

	// Surface is the mirrored frame the engine saw. It aliases the canvas
	// and is only valid during the observer call.
	Surface *image.RGBA

	// Err is the cycle error, if any.
	Err error
}

// Observer receives every frame, with or without a face.
type Observer interface {
	OnFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f Frame)

// OnFrame calls fn(f).
func (fn ObserverFunc) OnFrame(f Frame) { fn(f) }

// Source provides the latest camera frame.
type Source interface {
	Frame() image.Image
}

// Target is where cursor positions go and where the viewport size comes from.
type Target interface {
	cursor.Mover
	Viewport() cursor.Size
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Frames            uint64        `json:"frames"`
	FacesFound        uint64        `json:"faces_found"`
	Misses            uint64        `json:"misses"`
	Errors            uint64        `json:"errors"`
	ConsecutiveMisses int           `json:"consecutive_misses"`
	LastCycle         time.Duration `json:"last_cycle_ns"`
	LastFaceAt        time.Time     `json:"last_face_at"`
}

// Loop is the per-frame tracking cycle. Only one Run may be active.
type Loop struct {
	manager engine.Manager
	source  Source
	drawing *capture.Drawing
	target  Target
	clock   Clock
	logger  *slog.Logger

	mu        sync.RWMutex
	config    Config
	observers []Observer
	stats     Stats
	last      cursor.State
	hasLast   bool

	running atomic.Bool
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces the frame clock.
func WithClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithObservers registers observers.
func WithObservers(obs ...Observer) LoopOption {
	return func(l *Loop) { l.observers = append(l.observers, obs...) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// NewLoop wires a loop over an initialized engine manager, the capture
// context and a cursor target.
func NewLoop(config Config, manager engine.Manager, cc capture.Context, target Target, opts ...LoopOption) *Loop {
	l := &Loop{
		manager: manager,
		source:  cc.Sink,
		drawing: cc.Drawing,
		target:  target,
		config:  config,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.Component("tracking")
	}
	return l
}

// Running reports whether Run is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Run cycles until ctx ends, then returns ctx.Err(). The first cycle runs
// immediately. A cycle never starts before the previous one has returned.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	clock := l.clock
	if clock == nil {
		fc := NewFrameClock(l.Config().FrameInterval())
		defer fc.Stop()
		clock = fc
		l.mu.Lock()
		l.clock = fc
		l.mu.Unlock()
		defer func() {
			l.mu.Lock()
			l.clock = nil
			l.mu.Unlock()
		}()
	}

	cfg := l.Config()
	l.logger.Info("tracking started", "fps", cfg.FrameRate, "smoothing", cfg.Smoothing)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("tracking stopped", "frames", l.Stats().Frames)
			return err
		}

		l.cycle()

		if err := clock.Wait(ctx); err != nil {
			l.logger.Info("tracking stopped", "frames", l.Stats().Frames)
			return err
		}
	}
}

// cycle runs one draw, extract, update, map and notify pass.
func (l *Loop) cycle() {
	start := time.Now()

	l.mu.RLock()
	seq := l.stats.Frames + 1
	l.mu.RUnlock()

	f := Frame{Seq: seq, Time: start}
	f.Err = l.step(&f)

	cfg := l.Config()

	l.mu.Lock()
	l.stats.Frames = seq
	l.stats.LastCycle = time.Since(start)
	switch {
	case f.Err != nil:
		l.stats.Errors++
		if l.stats.Errors == 1 || l.stats.Errors%uint64(max(cfg.ErrorLogEvery, 1)) == 0 {
			l.logger.Warn("tracking cycle failed", "error", f.Err, "errors", l.stats.Errors)
		}
	case f.Found:
		l.stats.FacesFound++
		l.stats.ConsecutiveMisses = 0
		l.stats.LastFaceAt = start
	default:
		l.stats.Misses++
		l.stats.ConsecutiveMisses++
		if l.stats.ConsecutiveMisses == cfg.MissLogThreshold {
			l.logger.Info("lost face", "consecutive_misses", l.stats.ConsecutiveMisses)
		}
	}
	observers := l.observers
	l.mu.Unlock()

	for _, o := range observers {
		l.notify(o, f)
	}
}

func (l *Loop) step(f *Frame) error {
	if err := l.drawing.DrawMirrored(l.source.Frame()); err != nil {
		return fmt.Errorf("draw frame: %w", err)
	}
	f.Surface = l.drawing.Image()

	if err := l.manager.Update(l.drawing.ImageData()); err != nil {
		return fmt.Errorf("engine update: %w", err)
	}

	faces := l.manager.Faces()
	f.Faces = len(faces)
	if len(faces) == 0 {
		return nil
	}

	face := faces[0]
	f.Face = &face
	f.Found = true

	w, h := l.drawing.Canvas().Size()
	state := MapToCursor(face, cursor.Size{W: float64(w), H: float64(h)}, l.target.Viewport())

	l.mu.Lock()
	if alpha := l.config.Smoothing; alpha > 0 && l.hasLast {
		state = smooth(l.last, state, alpha)
	}
	l.last = state
	l.hasLast = true
	l.mu.Unlock()

	f.Cursor = state
	l.target.Move(state)

	debug.TrackLog("cursor moved", "x", state.X, "y", state.Y, "confidence", face.Confidence)
	return nil
}

// notify calls one observer. A panicking observer is logged and skipped.
func (l *Loop) notify(o Observer, f Frame) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("frame observer panicked", "panic", r, "seq", f.Seq)
		}
	}()
	o.OnFrame(f)
}
