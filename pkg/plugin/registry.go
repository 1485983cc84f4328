// Package plugin manages named per-frame hooks.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
)

var (
	// ErrNotFound is returned when a plugin is not registered.
	ErrNotFound = errors.New("plugin not found")

	// ErrDuplicate is returned when registering a name twice.
	ErrDuplicate = errors.New("plugin already registered")

	// ErrInvalid is returned for a nil plugin or an empty name.
	ErrInvalid = errors.New("invalid plugin")
)

// Plugin is a per-frame hook.
type Plugin interface {
	Name() string
	OnFrame(f tracking.Frame)
}

// Describer is implemented by plugins that carry a description.
type Describer interface {
	Description() string
}

// Info describes a registered plugin.
type Info struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
	Calls       uint64 `json:"calls"`
	Panics      uint64 `json:"panics"`
}

type entry struct {
	id      uuid.UUID
	plugin  Plugin
	enabled bool
	calls   uint64
	panics  uint64
}

// Registry holds plugins in registration order and dispatches frames to
// the enabled ones.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = log.Component("plugin")
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Register adds an enabled plugin.
func (r *Registry) Register(p Plugin) error {
	if p == nil || p.Name() == "" {
		return ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.entries[name] = &entry{id: uuid.New(), plugin: p, enabled: true}
	r.order = append(r.order, name)
	r.logger.Info("plugin registered", "name", name)
	return nil
}

// Unregister removes a plugin.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.plugin, nil
}

// Enable turns a plugin on.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable turns a plugin off. It stays registered.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	e.enabled = on
	return nil
}

// List returns every plugin in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		info := Info{
			ID:      e.id.String(),
			Name:    name,
			Enabled: e.enabled,
			Calls:   e.calls,
			Panics:  e.panics,
		}
		if d, ok := e.plugin.(Describer); ok {
			info.Description = d.Description()
		}
		infos = append(infos, info)
	}
	return infos
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dispatch calls every enabled plugin with f, in registration order. A
// panicking plugin is logged and the rest still run.
func (r *Registry) Dispatch(f tracking.Frame) {
	r.mu.RLock()
	targets := make([]*entry, 0, len(r.order))
	for _, name := range r.order {
		if e := r.entries[name]; e.enabled {
			targets = append(targets, e)
		}
	}
	r.mu.RUnlock()

	for _, e := range targets {
		panicked := r.call(e.plugin, f)

		r.mu.Lock()
		e.calls++
		if panicked {
			e.panics++
		}
		r.mu.Unlock()
	}
}

// OnFrame makes the registry a tracking observer.
func (r *Registry) OnFrame(f tracking.Frame) {
	r.Dispatch(f)
}

func (r *Registry) call(p Plugin, f tracking.Frame) (panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			r.logger.Error("plugin panicked", "name", p.Name(), "panic", rec, "seq", f.Seq)
		}
	}()
	p.OnFrame(f)
	return false
}

var _ tracking.Observer = (*Registry)(nil)
