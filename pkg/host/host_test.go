package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/capability"
)

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"4.5.4", true},
		{"4.5.3", false},
		{"4.10.0", true},
		{"4.9", true},
		{"3.4.16", false},
		{"5.0.0-alpha", true},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := versionAtLeast(tt.version, minAccelVersion); got != tt.want {
				t.Errorf("versionAtLeast(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestEnvironment_CameraAvailable(t *testing.T) {
	dir := t.TempDir()
	env := &Environment{DevicePattern: filepath.Join(dir, "video*"), goos: "linux"}

	if env.CameraAvailable() {
		t.Error("No device nodes should mean no camera")
	}

	if err := os.WriteFile(filepath.Join(dir, "video0"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !env.CameraAvailable() {
		t.Error("Expected camera with a device node present")
	}

	env.goos = "darwin"
	env.DevicePattern = filepath.Join(dir, "none*")
	if !env.CameraAvailable() {
		t.Error("Non-Linux hosts assume a camera API")
	}
}

func TestEnvironment_Probe(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "video0"), nil, 0o644)

	env := &Environment{
		DevicePattern: filepath.Join(dir, "video*"),
		goos:          "linux",
		version:       func() string { return "4.9.0" },
	}

	state, err := capability.Probe(env)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if !state.Supported || !state.AcceleratedVariant {
		t.Errorf("Probe() = %+v, want supported and accelerated", state)
	}

	env.ForceFallback = true
	state, _ = capability.Probe(env)
	if state.AcceleratedVariant {
		t.Error("ForceFallback should disable the accelerated variant")
	}
}

func TestEnvironment_NewSurface(t *testing.T) {
	env := NewEnvironment(false)
	if _, err := env.NewSurface(0, 1); err == nil {
		t.Error("Expected error for zero width")
	}
	s, err := env.NewSurface(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Accelerated() {
		t.Error("1x1 canvas should have a drawing context")
	}
	s.Close()
}

func TestWebcam_Open(t *testing.T) {
	if os.Getenv("FACECURSOR_TEST_WEBCAM") == "" {
		t.Skip("set FACECURSOR_TEST_WEBCAM=1 to test against a real camera")
	}

	w := NewWebcam(log.Discard())
	stream, err := w.Open(context.Background(), camera.DefaultConstraints())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close()

	img, err := stream.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	width, height := stream.Size()
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		t.Errorf("Frame %v does not match reported size %dx%d", b, width, height)
	}
}
