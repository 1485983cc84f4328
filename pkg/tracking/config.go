// Package tracking runs the per-frame capture, inference and cursor mapping
// loop.
package tracking

import (
	"time"
)

// Config holds the tunable parameters of the tracking loop
type Config struct {
	// Timing
	FrameRate int // Frame clock rate in Hz, the display refresh rate

	// Smoothing
	Smoothing float64 // EMA weight of the new cursor position (0 = off, 1 = no smoothing)

	// Logging
	MissLogThreshold int // Log once after this many consecutive frames without a face
	ErrorLogEvery    int // Log every Nth cycle error after the first
}

// DefaultConfig returns the standard 60 Hz loop with raw mapping
func DefaultConfig() Config {
	return Config{
		FrameRate:        60,
		Smoothing:        0,
		MissLogThreshold: 5,
		ErrorLogEvery:    100,
	}
}

// PowerSaveConfig returns a 30 Hz loop for laptops on battery
func PowerSaveConfig() Config {
	cfg := DefaultConfig()
	cfg.FrameRate = 30
	return cfg
}

// SmoothConfig returns a loop that eases the cursor toward each new position
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.Smoothing = 0.6 // 60% new, 40% old
	return cfg
}

// FrameInterval returns the period of the frame clock.
func (c Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FrameRate)
}

// Validate checks that all values are within range.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.FrameRate < 1 || c.FrameRate > 240 {
		errors = append(errors, "frame_rate must be between 1 and 240")
	}
	if c.Smoothing < 0 || c.Smoothing > 1 {
		errors = append(errors, "smoothing must be between 0 and 1")
	}
	if c.MissLogThreshold < 0 {
		errors = append(errors, "miss_log_threshold must not be negative")
	}
	if c.ErrorLogEvery < 1 {
		errors = append(errors, "error_log_every must be at least 1")
	}

	return errors
}
