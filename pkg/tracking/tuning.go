package tracking

// TuningParams holds the loop parameters that can change while it runs.
type TuningParams struct {
	FrameRate int     `json:"frame_rate"` // Frame clock rate in Hz
	Smoothing float64 `json:"smoothing"`  // EMA weight of the new position (0 = off)
}

// Config returns the current configuration.
func (l *Loop) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// GetTuningParams returns the current tuning parameters.
func (l *Loop) GetTuningParams() TuningParams {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return TuningParams{
		FrameRate: l.config.FrameRate,
		Smoothing: l.config.Smoothing,
	}
}

// SetTuningParams updates tuning parameters at runtime.
// FrameRate is applied only when positive; Smoothing is always applied and
// clamped to [0, 1].
func (l *Loop) SetTuningParams(params TuningParams) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.config.Smoothing = clamp(params.Smoothing, 0, 1)
	if params.Smoothing == 0 {
		l.hasLast = false
	}

	if params.FrameRate > 0 {
		l.config.FrameRate = min(params.FrameRate, 240)
		if fc, ok := l.clock.(*FrameClock); ok {
			fc.Reset(l.config.FrameInterval())
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
