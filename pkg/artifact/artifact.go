// Package artifact fetches the face engine's precompiled binary.
//
// The engine ships in two builds. The accelerated build is used when the
// host supports it, otherwise the fallback build. Either is fetched with a
// single GET and handed to the engine bootstrapper as raw bytes.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/teslashibe/go-facecursor/internal/httpc"
	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/fault"
)

// ErrEmptyBody is the cause when a status-0 response carries no bytes.
var ErrEmptyBody = errors.New("artifact: empty response body")

// Variant is one build of the engine.
type Variant struct {
	Name      string `json:"name"`      // "accelerated" or "fallback"
	BaseURL   string `json:"base_url"`  // Directory URL, with trailing slash
	Extension string `json:"extension"` // Without the dot
}

// Config describes where the artifact lives.
type Config struct {
	Name        string  // Artifact base name without extension
	Accelerated Variant // Used when the host supports it
	Fallback    Variant // Used otherwise
}

// DefaultConfig returns the stock layout under baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		Name: "face_detection_yunet_2023mar",
		Accelerated: Variant{
			Name:      "accelerated",
			BaseURL:   baseURL + "engine_accel/",
			Extension: "wasm",
		},
		Fallback: Variant{
			Name:      "fallback",
			BaseURL:   baseURL + "engine_fallback/",
			Extension: "mem",
		},
	}
}

// Select picks the variant for the probed support state.
func (c Config) Select(support capability.SupportState) Variant {
	if support.AcceleratedVariant {
		return c.Accelerated
	}
	return c.Fallback
}

// URL returns the full artifact URL for a variant.
func (c Config) URL(v Variant) string {
	return v.BaseURL + c.Name + "." + v.Extension
}

// ProgressFunc observes download progress. total is -1 when unknown.
type ProgressFunc func(read, total int64)

// StatusError reports a response status that is not a success.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("artifact: GET %s: status %d", e.URL, e.StatusCode)
}

// IsNotFound returns true if the artifact does not exist (HTTP 404).
func (e *StatusError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Loader fetches artifacts.
type Loader struct {
	client   *http.Client
	progress ProgressFunc
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithProgress sets the progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(l *Loader) { l.progress = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader using the artifact HTTP client.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		client: httpc.NewClient(httpc.ArtifactTimeout),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.Component("artifact")
	}
	return l
}

// Load fetches the variant selected by support. Success is status 200, or
// status 0 with a non-empty body. Any failure is an ArtifactLoadFailure.
func (l *Loader) Load(ctx context.Context, cfg Config, support capability.SupportState) ([]byte, error) {
	v := cfg.Select(support)
	url := cfg.URL(v)

	l.logger.Info("fetching engine artifact", "variant", v.Name, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fault.New(fault.ArtifactLoadFailure, "artifact.load", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fault.New(fault.ArtifactLoadFailure, "artifact.load", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != 0 {
		return nil, fault.New(fault.ArtifactLoadFailure, "artifact.load", &StatusError{URL: url, StatusCode: resp.StatusCode})
	}

	data, err := io.ReadAll(&progressReader{r: resp.Body, total: resp.ContentLength, fn: l.progress})
	if err != nil {
		return nil, fault.New(fault.ArtifactLoadFailure, "artifact.load", fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode == 0 && len(data) == 0 {
		return nil, fault.New(fault.ArtifactLoadFailure, "artifact.load", fmt.Errorf("%s: %w", url, ErrEmptyBody))
	}

	l.logger.Info("engine artifact loaded", "variant", v.Name, "bytes", len(data))
	return data, nil
}

// progressReader reports cumulative bytes read.
type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.fn != nil {
			p.fn(p.read, p.total)
		}
	}
	return n, err
}
