package capture

import (
	"errors"
	"image"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrEmptySurface is returned when drawing into a surface with no area.
var ErrEmptySurface = errors.New("capture: surface has zero size")

// Canvas is an in-memory RGBA rendering surface.
type Canvas struct {
	mu  sync.RWMutex
	img *image.RGBA
}

// NewCanvas creates a canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{}
	c.SetSize(width, height)
	return c
}

// SetSize reallocates the pixel buffer. Contents are cleared.
func (c *Canvas) SetSize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (width, height int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.img == nil {
		return 0, 0
	}
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Accelerated reports whether a drawing context can be obtained. Any canvas
// with a pixel buffer qualifies.
func (c *Canvas) Accelerated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.img != nil && len(c.img.Pix) > 0
}

// Close drops the pixel buffer.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.img = nil
	return nil
}

// Drawing is the 2D drawing context of a canvas.
type Drawing struct {
	canvas *Canvas
}

// NewDrawing returns the drawing context for c.
func NewDrawing(c *Canvas) *Drawing {
	return &Drawing{canvas: c}
}

// DrawMirrored draws src flipped horizontally and scaled to fill the whole
// canvas. The flip applies to this call only. A nil src draws nothing.
func (d *Drawing) DrawMirrored(src image.Image) error {
	if src == nil {
		return nil
	}

	d.canvas.mu.Lock()
	defer d.canvas.mu.Unlock()

	dst := d.canvas.img
	if dst == nil || len(dst.Pix) == 0 {
		return ErrEmptySurface
	}

	sb := src.Bounds()
	db := dst.Bounds()
	if sb.Empty() {
		return nil
	}

	sx := float64(db.Dx()) / float64(sb.Dx())
	sy := float64(db.Dy()) / float64(sb.Dy())

	// translate(width, 0) then scale(-1, 1), in source-to-destination form
	s2d := f64.Aff3{
		-sx, 0, float64(db.Dx()) + sx*float64(sb.Min.X),
		0, sy, -sy * float64(sb.Min.Y),
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, sb, draw.Src, nil)
	return nil
}

// ImageData returns the RGBA bytes of the whole canvas, row-major with no
// padding. The slice aliases the canvas and is valid until the next draw.
func (d *Drawing) ImageData() []byte {
	d.canvas.mu.RLock()
	defer d.canvas.mu.RUnlock()
	if d.canvas.img == nil {
		return nil
	}
	return d.canvas.img.Pix
}

// Image returns the canvas as an image. It aliases the canvas.
func (d *Drawing) Image() *image.RGBA {
	d.canvas.mu.RLock()
	defer d.canvas.mu.RUnlock()
	return d.canvas.img
}

// Canvas returns the surface this context draws into.
func (d *Drawing) Canvas() *Canvas {
	return d.canvas
}
