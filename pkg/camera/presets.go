package camera

// Preset names for common requests
const (
	PresetDefault = "default"
	PresetLow     = "low"
	Preset720p    = "720p"
	PresetSmooth  = "smooth"
)

// Presets returns all available preset requests.
func Presets() map[string]Constraints {
	return map[string]Constraints{
		PresetDefault: DefaultConstraints(),
		PresetLow:     LowConstraints(),
		Preset720p:    HD720Constraints(),
		PresetSmooth:  SmoothConstraints(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, PresetLow, Preset720p, PresetSmooth}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Constraints {
	if c, ok := Presets()[name]; ok {
		return &c
	}
	return nil
}

// LowConstraints returns a 320x240 request for slow machines.
func LowConstraints() Constraints {
	c := DefaultConstraints()
	c.Width = 320
	c.Height = 240
	c.FrameRate = 15
	return c
}

// HD720Constraints returns a 720p request.
// More pixels per face, more work per frame.
func HD720Constraints() Constraints {
	c := DefaultConstraints()
	c.Width = 1280
	c.Height = 720
	return c
}

// SmoothConstraints asks for 60 FPS at the default size.
func SmoothConstraints() Constraints {
	c := DefaultConstraints()
	c.FrameRate = 60
	return c
}
