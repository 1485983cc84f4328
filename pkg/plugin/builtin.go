package plugin

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
)

// Func adapts a function to Plugin.
type Func struct {
	N  string
	Fn func(f tracking.Frame)
}

// Name returns the plugin name.
func (p Func) Name() string { return p.N }

// OnFrame calls Fn.
func (p Func) OnFrame(f tracking.Frame) { p.Fn(f) }

// FramePublisher receives encoded preview frames.
type FramePublisher interface {
	PublishFrame(jpeg []byte)
}

// watcher is implemented by publishers that know whether anyone is looking.
type watcher interface {
	Watching() bool
}

// landmarkColor marks detected landmarks on the overlay.
var landmarkColor = color.RGBA{G: 255, A: 255}

// DebugOverlay JPEG-encodes every Nth frame the engine saw, with the
// primary face's landmarks marked, and publishes it.
type DebugOverlay struct {
	Every   int // Publish one frame in this many
	Quality int // JPEG quality 1-100

	publisher FramePublisher
	logger    *slog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewDebugOverlay creates an overlay that publishes to p.
func NewDebugOverlay(p FramePublisher, every, quality int) *DebugOverlay {
	if every < 1 {
		every = 1
	}
	if quality < 1 || quality > 100 {
		quality = 70
	}
	return &DebugOverlay{Every: every, Quality: quality, publisher: p, logger: log.Component("overlay")}
}

// Name returns "debug-overlay".
func (d *DebugOverlay) Name() string { return "debug-overlay" }

// Description returns a short summary.
func (d *DebugOverlay) Description() string {
	return "streams the mirrored camera frame with landmarks to /ws/camera"
}

// OnFrame encodes and publishes the frame when it is due.
func (d *DebugOverlay) OnFrame(f tracking.Frame) {
	if f.Surface == nil || f.Seq%uint64(d.Every) != 0 {
		return
	}
	if w, ok := d.publisher.(watcher); ok && !w.Watching() {
		return
	}

	img := image.NewRGBA(f.Surface.Bounds())
	draw.Draw(img, img.Bounds(), f.Surface, f.Surface.Bounds().Min, draw.Src)
	if f.Face != nil {
		for _, p := range f.Face.Landmarks {
			markPoint(img, int(p[0]), int(p[1]))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf.Reset()
	if err := jpeg.Encode(&d.buf, img, &jpeg.Options{Quality: d.Quality}); err != nil {
		d.logger.Warn("encode overlay frame", "error", err)
		return
	}
	out := make([]byte, d.buf.Len())
	copy(out, d.buf.Bytes())
	d.publisher.PublishFrame(out)
}

// markPoint draws a 3x3 square centred on (x, y), clipped to img.
func markPoint(img *image.RGBA, x, y int) {
	r := image.Rect(x-1, y-1, x+2, y+2).Intersect(img.Bounds())
	draw.Draw(img, r, image.NewUniform(landmarkColor), image.Point{}, draw.Src)
}

// PresenceFunc is called when a face appears or disappears.
type PresenceFunc func(found bool, f tracking.Frame)

// Presence reports transitions between "face in view" and "no face".
type Presence struct {
	fn PresenceFunc

	mu    sync.Mutex
	known bool
	found bool
}

// NewPresence creates a presence plugin calling fn on every transition.
// The first frame always counts as a transition.
func NewPresence(fn PresenceFunc) *Presence {
	return &Presence{fn: fn}
}

// Name returns "presence".
func (p *Presence) Name() string { return "presence" }

// Description returns a short summary.
func (p *Presence) Description() string {
	return "announces when a face enters or leaves the frame"
}

// OnFrame compares the frame with the last one.
func (p *Presence) OnFrame(f tracking.Frame) {
	if f.Err != nil {
		return
	}

	p.mu.Lock()
	changed := !p.known || p.found != f.Found
	p.known = true
	p.found = f.Found
	p.mu.Unlock()

	if changed {
		p.fn(f.Found, f)
	}
}

// Found reports the last known state.
func (p *Presence) Found() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.found
}
