// Package capability probes the host for what the face cursor needs:
// a camera and an accelerated rendering surface.
package capability

import (
	"fmt"

	"github.com/teslashibe/go-facecursor/pkg/fault"
)

// SupportState is computed once per pipeline and never changes afterwards.
type SupportState struct {
	Supported          bool `json:"supported"`
	AcceleratedVariant bool `json:"accelerated_variant"`
}

// Surface is a throwaway rendering surface used only for probing.
type Surface interface {
	// Accelerated reports whether a hardware-accelerated 2D or 3D context
	// could be obtained on this surface.
	Accelerated() bool

	// Close releases the surface.
	Close() error
}

// Environment is the slice of the host the prober reads.
type Environment interface {
	// CameraAvailable reports whether a camera access API exists at all.
	CameraAvailable() bool

	// NewSurface creates a rendering surface.
	NewSurface(width, height int) (Surface, error)

	// AcceleratedVariant reports whether the accelerated engine build can run.
	AcceleratedVariant() bool
}

// Probe inspects env. No camera API means unsupported without an error.
// A failing surface probe is an UnsupportedEnvironment fault.
func Probe(env Environment) (state SupportState, err error) {
	state.AcceleratedVariant = env.AcceleratedVariant()

	if !env.CameraAvailable() {
		return state, nil
	}

	accelerated, err := probeSurface(env)
	if err != nil {
		return SupportState{AcceleratedVariant: state.AcceleratedVariant}, fault.New(fault.UnsupportedEnvironment, "capability.probe", err)
	}
	state.Supported = accelerated
	return state, nil
}

// probeSurface creates and discards a 1x1 surface. Panics from the host are
// turned into errors.
func probeSurface(env Environment) (accelerated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("surface probe panicked: %v", r)
		}
	}()

	s, err := env.NewSurface(1, 1)
	if err != nil {
		return false, fmt.Errorf("create surface: %w", err)
	}
	defer s.Close()

	return s.Accelerated(), nil
}
