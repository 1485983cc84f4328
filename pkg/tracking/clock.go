package tracking

import (
	"context"
	"sync"
	"time"
)

// Clock paces the loop. Wait blocks until the next frame is due.
type Clock interface {
	Wait(ctx context.Context) error
}

// FrameClock ticks at a fixed rate. Ticks that arrive while a cycle is
// still running are dropped, so a slow cycle delays the next one instead of
// queueing more.
type FrameClock struct {
	mu     sync.Mutex
	ticker *time.Ticker
}

// NewFrameClock creates a clock with the given period.
func NewFrameClock(interval time.Duration) *FrameClock {
	return &FrameClock{ticker: time.NewTicker(interval)}
}

// Wait blocks until the next tick or ctx ends.
func (c *FrameClock) Wait(ctx context.Context) error {
	c.mu.Lock()
	ch := c.ticker.C
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Reset changes the period.
func (c *FrameClock) Reset(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker.Reset(interval)
}

// Stop releases the ticker.
func (c *FrameClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticker.Stop()
}
