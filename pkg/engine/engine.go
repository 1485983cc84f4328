// Package engine models the opaque face tracking engine and bootstraps it.
//
// The engine is a black box with a narrow contract: it is loaded once from
// an artifact, reports when it is ready, and then accepts pixel buffers and
// hands back the faces it found. Everything the pipeline needs from it is in
// the Engine and Manager interfaces, so any pose-estimation backend can be
// plugged in.
package engine

import "context"

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X, Y, W, H int
}

// Resolution returns a rectangle anchored at the origin.
func Resolution(width, height int) Rect {
	return Rect{W: width, H: height}
}

// FaceRecord is one detected face in one frame. Translation is in surface
// pixels, rotation in radians.
type FaceRecord struct {
	TranslationX float64 `json:"translation_x"`
	TranslationY float64 `json:"translation_y"`
	RotationX    float64 `json:"rotation_x"` // Pitch
	RotationY    float64 `json:"rotation_y"` // Yaw
	RotationZ    float64 `json:"rotation_z"` // Roll
	Scale        float64 `json:"scale"`      // Face width in surface pixels
	Confidence   float64 `json:"confidence"`

	Landmarks [][2]float64 `json:"landmarks,omitempty"`
}

// Options is passed to the engine's bootstrap entry point exactly once.
type Options struct {
	// LocateFile maps an engine file name to the URL it is served from.
	LocateFile func(name string) string

	// Binary is the prefetched artifact, or nil when the engine should
	// resolve its own files through LocateFile.
	Binary []byte
}

// Manager runs inference. It is only used from the tracking loop goroutine.
type Manager interface {
	// Init sets the input and output resolution. licenseKey may be empty.
	Init(in, out Rect, licenseKey string) error

	// Update submits one RGBA pixel buffer covering the input resolution.
	Update(pixels []byte) error

	// Faces returns the faces found by the last Update.
	Faces() []FaceRecord
}

// Engine is an activated engine runtime.
type Engine interface {
	// Load starts the engine. It may return before the engine is ready.
	Load(opts Options) error

	// Ready reports whether Load has completed.
	Ready() bool

	// Manager returns the inference manager.
	Manager() Manager
}

// LoadErrorer is implemented by engines that load in the background and can
// fail after Load returned. A non-nil LoadErr means Ready never turns true.
type LoadErrorer interface {
	LoadErr() error
}

// Injector makes the engine runtime available, the way a page injects the
// engine's script. It is called at most once per Bootstrapper.
type Injector interface {
	Inject(ctx context.Context) (Engine, error)
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(ctx context.Context) (Engine, error)

// Inject calls f(ctx).
func (f InjectorFunc) Inject(ctx context.Context) (Engine, error) { return f(ctx) }
