package tracking

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.FrameRate != 60 {
		t.Errorf("Expected FrameRate=60, got %v", cfg.FrameRate)
	}
	// Raw mapping by default so positions are reproducible
	if cfg.Smoothing != 0 {
		t.Errorf("Expected Smoothing=0, got %v", cfg.Smoothing)
	}
	if got := cfg.FrameInterval(); got != time.Second/60 {
		t.Errorf("FrameInterval() = %v, want %v", got, time.Second/60)
	}
}

func TestPresets_Valid(t *testing.T) {
	configs := []struct {
		name string
		cfg  Config
	}{
		{"Default", DefaultConfig()},
		{"PowerSave", PowerSaveConfig()},
		{"Smooth", SmoothConfig()},
	}

	for _, tc := range configs {
		if errs := tc.cfg.Validate(); len(errs) > 0 {
			t.Errorf("%s: unexpected validation errors: %v", tc.name, errs)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errs   int
	}{
		{"zero frame rate", func(c *Config) { c.FrameRate = 0 }, 1},
		{"smoothing above one", func(c *Config) { c.Smoothing = 1.5 }, 1},
		{"negative miss threshold", func(c *Config) { c.MissLogThreshold = -1 }, 1},
		{"everything wrong", func(c *Config) {
			c.FrameRate = 1000
			c.Smoothing = -1
			c.MissLogThreshold = -1
			c.ErrorLogEvery = 0
		}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if errs := cfg.Validate(); len(errs) != tt.errs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.errs)
			}
		})
	}
}

func TestFrameInterval_ZeroRate(t *testing.T) {
	cfg := Config{}
	if got := cfg.FrameInterval(); got != time.Second/60 {
		t.Errorf("FrameInterval() = %v, want 60 Hz fallback", got)
	}
}
