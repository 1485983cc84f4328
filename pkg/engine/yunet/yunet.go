// Package yunet is a face engine backed by OpenCV's FaceDetectorYN.
//
// The ONNX model is the engine artifact. It is either prefetched and handed
// over in Options.Binary, or fetched by the engine itself from
// Options.LocateFile(ModelFile).
package yunet

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facecursor/internal/httpc"
	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/debug"
	"github.com/teslashibe/go-facecursor/pkg/engine"
)

// ErrNotLoaded is returned by Manager calls made before the model is ready.
var ErrNotLoaded = errors.New("yunet: model not loaded")

// Config holds detector configuration.
type Config struct {
	ModelFile        string  // File name resolved through LocateFile
	ConfidenceThresh float64 // Minimum confidence (default 0.5)
	NMSThresh        float64 // Non-maximum suppression threshold
	TopK             int     // Max candidates before NMS
	InputWidth       int     // Initial model input width
	InputHeight      int     // Initial model input height
}

// DefaultConfig returns production defaults for YuNet.
func DefaultConfig() Config {
	return Config{
		ModelFile:        "face_detection_yunet_2023mar.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.3,
		TopK:             5000,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Engine implements engine.Engine and engine.Manager.
type Engine struct {
	config Config
	client *http.Client
	logger *slog.Logger

	ready   atomic.Bool
	loadErr atomic.Pointer[error]

	mu       sync.Mutex // Protects inference
	detector gocv.FaceDetectorYN
	in       engine.Rect
	faces    []engine.FaceRecord
}

// New creates an engine that has not been loaded yet.
func New(cfg Config) *Engine {
	return &Engine{
		config: cfg,
		client: httpc.NewClient(httpc.ArtifactTimeout),
		logger: log.Component("yunet"),
	}
}

// Injector returns an injector that creates a YuNet engine.
func Injector(cfg Config) engine.Injector {
	return engine.InjectorFunc(func(ctx context.Context) (engine.Engine, error) {
		return New(cfg), nil
	})
}

// Load builds the detector in the background. Ready turns true once the
// model is in memory. A failed load is logged and reported by LoadErr, which
// ends the bootstrapper's readiness wait; Ready then stays false.
func (e *Engine) Load(opts engine.Options) error {
	if opts.Binary == nil && opts.LocateFile == nil {
		return errors.New("yunet: no binary and no way to locate the model")
	}
	go e.load(opts)
	return nil
}

func (e *Engine) load(opts engine.Options) {
	model := opts.Binary
	if model == nil {
		url := opts.LocateFile(e.config.ModelFile)
		var err error
		if model, err = e.fetch(url); err != nil {
			e.fail(fmt.Errorf("fetch model %s: %w", url, err))
			return
		}
	}

	det := gocv.NewFaceDetectorYNFromBytesWithParams(
		"onnx",
		model,
		[]byte{},
		image.Pt(e.config.InputWidth, e.config.InputHeight),
		float32(e.config.ConfidenceThresh),
		float32(e.config.NMSThresh),
		e.config.TopK,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	e.mu.Lock()
	e.detector = det
	e.mu.Unlock()

	e.ready.Store(true)
	e.logger.Info("model loaded", "bytes", len(model))
}

func (e *Engine) fetch(url string) ([]byte, error) {
	resp, err := e.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != 0 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty model")
	}
	return data, nil
}

func (e *Engine) fail(err error) {
	e.loadErr.Store(&err)
	e.logger.Error("model load failed", "error", err)
}

// Ready reports whether the model is loaded.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// LoadErr returns the background load error, if any.
func (e *Engine) LoadErr() error {
	if p := e.loadErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Manager returns the engine itself.
func (e *Engine) Manager() engine.Manager {
	return e
}

// Init sets the expected frame size.
func (e *Engine) Init(in, out engine.Rect, licenseKey string) error {
	if !e.Ready() {
		return ErrNotLoaded
	}
	if in.W <= 0 || in.H <= 0 {
		return fmt.Errorf("yunet: invalid input resolution %dx%d", in.W, in.H)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.in = in
	e.detector.SetInputSize(image.Pt(in.W, in.H))
	return nil
}

// Update runs detection on an RGBA buffer of the input resolution.
func (e *Engine) Update(pixels []byte) error {
	if !e.Ready() {
		return ErrNotLoaded
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	w, h := e.in.W, e.in.H
	if len(pixels) != w*h*4 {
		return fmt.Errorf("yunet: pixel buffer is %d bytes, want %d", len(pixels), w*h*4)
	}

	rgba, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, pixels)
	if err != nil {
		return fmt.Errorf("wrap pixels: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	out := gocv.NewMat()
	defer out.Close()
	e.detector.Detect(bgr, &out)

	faces := make([]engine.FaceRecord, 0, out.Rows())
	for r := 0; r < out.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		x := float64(out.GetFloatAt(r, 0))
		y := float64(out.GetFloatAt(r, 1))
		bw := float64(out.GetFloatAt(r, 2))
		bh := float64(out.GetFloatAt(r, 3))

		lm := make([][2]float64, 5)
		for i := range lm {
			lm[i] = [2]float64{
				float64(out.GetFloatAt(r, 4+2*i)),
				float64(out.GetFloatAt(r, 5+2*i)),
			}
		}
		score := float64(out.GetFloatAt(r, 14))

		faces = append(faces, engine.PoseFromLandmarks(x, y, bw, bh, lm, score))
	}
	slices.SortStableFunc(faces, func(a, b engine.FaceRecord) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	e.faces = faces

	if len(faces) > 0 {
		debug.TrackLog("yunet found faces", "count", len(faces))
	}
	return nil
}

// Faces returns the faces from the last Update, best first.
func (e *Engine) Faces() []engine.FaceRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]engine.FaceRecord, len(e.faces))
	copy(out, e.faces)
	return out
}

// Close releases the detector resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready.Load() {
		e.detector.Close()
		e.ready.Store(false)
	}
	return nil
}

// Verify Engine implements the engine interfaces at compile time.
var (
	_ engine.Engine      = (*Engine)(nil)
	_ engine.LoadErrorer = (*Engine)(nil)
)
