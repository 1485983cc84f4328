// Package cursor holds the on-screen cursor position and pushes every move
// to whoever displays it.
package cursor

import (
	"sync"
)

// State is a cursor position in viewport pixels.
type State struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width and height in pixels.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0
}

// Hidden is the initial position, off-screen.
var Hidden = State{X: -100, Y: -100}

// Style describes the cursor element.
type Style struct {
	Diameter int    `json:"diameter"`
	Color    string `json:"color"`
	Position string `json:"position"`
	ZIndex   int64  `json:"z_index"`
}

// DefaultStyle is a 20px red dot fixed above everything on the page.
func DefaultStyle() Style {
	return Style{Diameter: 20, Color: "#f00", Position: "fixed", ZIndex: 99999999999}
}

// Mover receives cursor positions.
type Mover interface {
	Move(s State)
}

// MoverFunc adapts a function to Mover.
type MoverFunc func(s State)

// Move calls f(s).
func (f MoverFunc) Move(s State) { f(s) }

// Publisher forwards cursor positions to a display.
type Publisher interface {
	PublishCursor(s State)
}

// Cursor is the authoritative cursor state. The last Move wins.
type Cursor struct {
	mu         sync.RWMutex
	state      State
	viewport   Size
	style      Style
	moves      int64
	publishers []Publisher
}

// New creates a cursor at Hidden with the given fallback viewport.
func New(viewport Size, publishers ...Publisher) *Cursor {
	return &Cursor{
		state:      Hidden,
		viewport:   viewport,
		style:      DefaultStyle(),
		publishers: publishers,
	}
}

// AddPublisher registers another display.
func (c *Cursor) AddPublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers = append(c.publishers, p)
}

// Move sets the position and publishes it.
func (c *Cursor) Move(s State) {
	c.mu.Lock()
	c.state = s
	c.moves++
	pubs := c.publishers
	c.mu.Unlock()

	for _, p := range pubs {
		p.PublishCursor(s)
	}
}

// State returns the current position.
func (c *Cursor) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Moves returns how many times Move was called.
func (c *Cursor) Moves() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.moves
}

// Viewport returns the size of the page the cursor moves over.
func (c *Cursor) Viewport() Size {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

// SetViewport records the page size reported by the display. Invalid sizes
// are ignored.
func (c *Cursor) SetViewport(s Size) bool {
	if !s.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = s
	return true
}

// Style returns the cursor element style.
func (c *Cursor) Style() Style {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.style
}

// Hide moves the cursor back off-screen.
func (c *Cursor) Hide() {
	c.Move(Hidden)
}
