package engine

import (
	"errors"
	"sync"
	"time"
)

// Poll intervals used while bootstrapping.
const (
	ReadyPollInterval  = 250 * time.Millisecond // Engine readiness
	StreamPollInterval = 50 * time.Millisecond  // Stream dimensions
)

// ErrBinaryAlreadySet is returned when the artifact buffer is set twice.
var ErrBinaryAlreadySet = errors.New("engine: binary already set")

// Config is the controller-owned engine configuration. Binary moves from nil
// to populated once and is read-only afterwards.
type Config struct {
	BaseURL      string // Directory the engine's files are served from
	ArtifactName string // Artifact base name
	LicenseKey   string // Passed to Manager.Init

	mu     sync.RWMutex
	binary []byte
}

// NewConfig creates a config with no binary.
func NewConfig(baseURL, artifactName, licenseKey string) *Config {
	return &Config{BaseURL: baseURL, ArtifactName: artifactName, LicenseKey: licenseKey}
}

// SetBinary stores the artifact. Only the first call succeeds.
func (c *Config) SetBinary(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.binary != nil {
		return ErrBinaryAlreadySet
	}
	c.binary = b
	return nil
}

// Binary returns the artifact, or nil before SetBinary.
func (c *Config) Binary() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.binary
}

// LocateFile resolves an engine file name against BaseURL.
func (c *Config) LocateFile(name string) string {
	return c.BaseURL + name
}

// Options builds the bootstrap entry point argument.
func (c *Config) Options() Options {
	return Options{LocateFile: c.LocateFile, Binary: c.Binary()}
}
