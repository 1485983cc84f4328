// Package config loads go-facecursor settings from defaults, an optional
// TOML file and FACECURSOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teslashibe/go-facecursor/pkg/camera"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
	"github.com/teslashibe/go-facecursor/pkg/wait"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "FACECURSOR"

// Config holds application configuration.
type Config struct {
	Assets   AssetsConfig   `mapstructure:"assets"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
}

// AssetsConfig says where engine artifacts are fetched from.
type AssetsConfig struct {
	URL           string `mapstructure:"url"` // Base URL, with trailing slash
	Dir           string `mapstructure:"dir"` // Served under /assets/ when set
	ForceFallback bool   `mapstructure:"force_fallback"`
}

// ServerConfig holds the web server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Debug bool   `mapstructure:"debug"` // Verbose per-frame logs
}

// CameraConfig selects the camera request.
type CameraConfig struct {
	Preset string `mapstructure:"preset"`
	Device int    `mapstructure:"device"`
}

// TrackingConfig holds the loop tuning.
type TrackingConfig struct {
	FrameRate int     `mapstructure:"frame_rate"`
	Smoothing float64 `mapstructure:"smoothing"`
}

// ViewportConfig is the cursor area used until the page reports its own.
type ViewportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// EngineConfig holds engine settings.
type EngineConfig struct {
	LicenseKey    string        `mapstructure:"license_key"`
	ReadyTimeout  time.Duration `mapstructure:"ready_timeout"`  // 0 waits forever
	ReadyAttempts int           `mapstructure:"ready_attempts"` // 0 is unlimited
}

// OverlayConfig controls the camera preview.
type OverlayConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Every   int  `mapstructure:"every"`   // Publish every Nth frame
	Quality int  `mapstructure:"quality"` // JPEG quality
}

// Default returns the built-in configuration.
func Default() Config {
	tc := tracking.DefaultConfig()
	return Config{
		Assets:   AssetsConfig{URL: "http://localhost:8090/assets/"},
		Server:   ServerConfig{Addr: ":8090"},
		Log:      LogConfig{Level: "info"},
		Camera:   CameraConfig{Preset: camera.PresetDefault},
		Tracking: TrackingConfig{FrameRate: tc.FrameRate, Smoothing: tc.Smoothing},
		Viewport: ViewportConfig{Width: 1280, Height: 720},
		Overlay:  OverlayConfig{Enabled: true, Every: 6, Quality: 70},
	}
}

// Load reads configuration from file and env. The file is FACECURSOR_CONFIG
// or ~/.config/facecursor/config.toml. Only the default file may be missing.
// Env overrides use the FACECURSOR_ prefix with "_" for ".", e.g.
// FACECURSOR_SERVER_ADDR.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType("toml")

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "facecursor"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("assets.url", d.Assets.URL)
	v.SetDefault("assets.dir", d.Assets.Dir)
	v.SetDefault("assets.force_fallback", d.Assets.ForceFallback)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("camera.preset", d.Camera.Preset)
	v.SetDefault("camera.device", d.Camera.Device)
	v.SetDefault("tracking.frame_rate", d.Tracking.FrameRate)
	v.SetDefault("tracking.smoothing", d.Tracking.Smoothing)
	v.SetDefault("viewport.width", d.Viewport.Width)
	v.SetDefault("viewport.height", d.Viewport.Height)
	v.SetDefault("engine.license_key", d.Engine.LicenseKey)
	v.SetDefault("engine.ready_timeout", d.Engine.ReadyTimeout)
	v.SetDefault("engine.ready_attempts", d.Engine.ReadyAttempts)
	v.SetDefault("overlay.enabled", d.Overlay.Enabled)
	v.SetDefault("overlay.every", d.Overlay.Every)
	v.SetDefault("overlay.quality", d.Overlay.Quality)
}

// Validate checks that all values are within range.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if !strings.HasSuffix(c.Assets.URL, "/") {
		errors = append(errors, "assets.url must end with /")
	}
	if c.Server.Addr == "" {
		errors = append(errors, "server.addr is required")
	}
	if camera.GetPreset(c.Camera.Preset) == nil {
		errors = append(errors, fmt.Sprintf("camera.preset must be one of %s", strings.Join(camera.PresetNames(), ", ")))
	}
	if c.Camera.Device < 0 {
		errors = append(errors, "camera.device must be >= 0")
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		errors = append(errors, "viewport width and height must be positive")
	}
	if c.Engine.ReadyTimeout < 0 || c.Engine.ReadyAttempts < 0 {
		errors = append(errors, "engine ready bounds must be >= 0")
	}
	if c.Overlay.Enabled {
		if c.Overlay.Every < 1 {
			errors = append(errors, "overlay.every must be >= 1")
		}
		if c.Overlay.Quality < 1 || c.Overlay.Quality > 100 {
			errors = append(errors, "overlay.quality must be between 1 and 100")
		}
	}

	tc := c.TrackingConfig()
	errors = append(errors, tc.Validate()...)

	return errors
}

// CameraConstraints returns the camera request for the configured preset.
func (c *Config) CameraConstraints() camera.Constraints {
	cc := camera.DefaultConstraints()
	if p := camera.GetPreset(c.Camera.Preset); p != nil {
		cc = *p
	}
	cc.Device = c.Camera.Device
	return cc
}

// TrackingConfig returns the loop configuration.
func (c *Config) TrackingConfig() tracking.Config {
	tc := tracking.DefaultConfig()
	tc.FrameRate = c.Tracking.FrameRate
	tc.Smoothing = c.Tracking.Smoothing
	return tc
}

// ReadyPolicy returns the engine readiness poll with the configured bounds.
func (c *Config) ReadyPolicy(interval time.Duration) wait.Policy {
	p := wait.Every(interval)
	if c.Engine.ReadyAttempts > 0 {
		p = p.WithMaxAttempts(c.Engine.ReadyAttempts)
	}
	if c.Engine.ReadyTimeout > 0 {
		p = p.WithDeadline(c.Engine.ReadyTimeout)
	}
	return p
}

// ViewportSize returns the default cursor viewport.
func (c *Config) ViewportSize() cursor.Size {
	return cursor.Size{W: float64(c.Viewport.Width), H: float64(c.Viewport.Height)}
}
