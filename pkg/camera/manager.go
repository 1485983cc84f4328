package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current stream request and handles updates.
// Changes apply the next time a capture session opens the device.
type Manager struct {
	constraints Constraints
	mu          sync.RWMutex

	// Callback when constraints change
	OnChange func(c Constraints) error
}

// NewManager creates a manager seeded with c.
func NewManager(c Constraints) *Manager {
	return &Manager{constraints: c}
}

// Constraints returns the current request.
func (m *Manager) Constraints() Constraints {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.constraints
}

// Set replaces the current request after validating it.
func (m *Manager) Set(c Constraints) error {
	if errors := c.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.constraints = c
	callback := m.OnChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(c); err != nil {
			return fmt.Errorf("failed to apply constraints: %w", err)
		}
	}

	return nil
}

// Update changes specific fields of the request.
// Accepts a map of field names to values; "preset" is applied first.
func (m *Manager) Update(params map[string]any) error {
	c := m.Constraints()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		c = *preset
	}

	for key, value := range params {
		v, ok := toInt(value)
		if !ok {
			continue
		}
		switch key {
		case "width":
			c.Width = v
		case "height":
			c.Height = v
		case "frame_rate":
			c.FrameRate = v
		case "device":
			c.Device = v
		}
	}

	return m.Set(c)
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
