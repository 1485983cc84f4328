// Package camera describes camera stream requests and the devices that
// satisfy them.
// This follows the same pattern as pkg/tracking for tunable parameters.
package camera

// Constraints is the stream request. The device may negotiate different
// dimensions; the capture session always uses what the stream reports.
type Constraints struct {
	Width     int `json:"width"`      // Requested frame width in pixels
	Height    int `json:"height"`     // Requested frame height in pixels
	FrameRate int `json:"frame_rate"` // Requested FPS
	Device    int `json:"device"`     // Device index, 0 = default camera
}

// Limits accepted by Validate.
const (
	MinWidth     = 160
	MinHeight    = 120
	MaxWidth     = 3840
	MaxHeight    = 2160
	MaxFrameRate = 120
)

// DefaultConstraints returns the standard 640x480 at 30 FPS request.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:     640,
		Height:    480,
		FrameRate: 30,
	}
}

// Validate checks that the values are within range.
// Returns a list of validation errors, or nil if valid.
func (c *Constraints) Validate() []string {
	var errors []string

	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.FrameRate < 1 || c.FrameRate > MaxFrameRate {
		errors = append(errors, "frame_rate must be between 1 and 120")
	}
	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}

	return errors
}
