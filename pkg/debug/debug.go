// Package debug provides global debug logging flags
package debug

import (
	"sync/atomic"

	"github.com/teslashibe/go-facecursor/internal/log"
)

var (
	enabled  atomic.Bool
	tracking atomic.Bool
)

// SetEnabled turns general debug logging on or off.
func SetEnabled(on bool) { enabled.Store(on) }

// Enabled reports whether debug logging is active.
func Enabled() bool { return enabled.Load() }

// SetTracking turns per-frame tracking logs on or off. These are very
// verbose: one line per frame.
func SetTracking(on bool) { tracking.Store(on) }

// Tracking reports whether per-frame tracking logs are active.
func Tracking() bool { return tracking.Load() }

// Log logs at debug level only if debug mode is enabled.
func Log(msg string, args ...any) {
	if enabled.Load() {
		log.Debug(msg, args...)
	}
}

// TrackLog logs at info level only if tracking debug mode is enabled.
func TrackLog(msg string, args ...any) {
	if tracking.Load() {
		log.Info(msg, args...)
	}
}
