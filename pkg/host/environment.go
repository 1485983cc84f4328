package host

import (
	"fmt"
	"path/filepath"
	"runtime"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/capture"
)

// DefaultDevicePattern matches V4L2 capture nodes on Linux.
const DefaultDevicePattern = "/dev/video*"

// minAccelVersion is the first OpenCV release that can build the face
// detector from an in-memory model.
var minAccelVersion = [3]int{4, 5, 4}

// Environment is the capability environment of this machine.
type Environment struct {
	// DevicePattern is globbed on Linux to find capture devices.
	DevicePattern string

	// ForceFallback disables the accelerated engine variant.
	ForceFallback bool

	// goos and version are overridable for tests.
	goos    string
	version func() string
}

// NewEnvironment returns the environment of the running machine.
func NewEnvironment(forceFallback bool) *Environment {
	return &Environment{
		DevicePattern: DefaultDevicePattern,
		ForceFallback: forceFallback,
		goos:          runtime.GOOS,
		version:       gocv.OpenCVVersion,
	}
}

// CameraAvailable reports whether a capture device exists. Only Linux
// exposes device nodes to check; elsewhere the camera API is assumed and a
// missing camera surfaces when the stream is opened.
func (e *Environment) CameraAvailable() bool {
	if e.goos != "linux" {
		return true
	}
	matches, err := filepath.Glob(e.DevicePattern)
	return err == nil && len(matches) > 0
}

// NewSurface creates an in-memory canvas.
func (e *Environment) NewSurface(width, height int) (capability.Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("host: invalid surface size %dx%d", width, height)
	}
	return capture.NewCanvas(width, height), nil
}

// AcceleratedVariant reports whether the linked OpenCV can load the engine
// from the downloaded bytes.
func (e *Environment) AcceleratedVariant() bool {
	if e.ForceFallback {
		return false
	}
	return versionAtLeast(e.version(), minAccelVersion)
}

// versionAtLeast compares a "major.minor.patch" string with min.
func versionAtLeast(v string, min [3]int) bool {
	var got [3]int
	n, _ := fmt.Sscanf(v, "%d.%d.%d", &got[0], &got[1], &got[2])
	if n < 2 {
		return false
	}
	for i := range got {
		if got[i] != min[i] {
			return got[i] > min[i]
		}
	}
	return true
}

var _ capability.Environment = (*Environment)(nil)
