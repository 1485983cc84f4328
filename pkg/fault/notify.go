package fault

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Notifier receives fatal errors. Notify must present the message to the
// user before returning.
type Notifier interface {
	Notify(err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

// Notify calls f(err).
func (f NotifierFunc) Notify(err error) { f(err) }

// Handler is the single top-level presenter. It fans a fatal error out to
// every registered presenter, in registration order, synchronously.
type Handler struct {
	mu         sync.RWMutex
	presenters []Notifier
	logger     *slog.Logger
	count      int
}

// NewHandler creates a handler that logs to logger and then calls each
// presenter.
func NewHandler(logger *slog.Logger, presenters ...Notifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, presenters: presenters}
}

// Add registers another presenter.
func (h *Handler) Add(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presenters = append(h.presenters, n)
}

// Notify presents err through every presenter.
func (h *Handler) Notify(err error) {
	if err == nil {
		return
	}

	h.mu.Lock()
	h.count++
	presenters := make([]Notifier, len(h.presenters))
	copy(presenters, h.presenters)
	h.mu.Unlock()

	h.logger.Error("fatal", "kind", KindOf(err).String(), "error", err)
	for _, p := range presenters {
		p.Notify(err)
	}
}

// Count returns how many errors were presented.
func (h *Handler) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// BoxWriter prints the message in a boxed block, the way the CLI reports
// fatal errors.
type BoxWriter struct {
	W io.Writer
}

// Notify writes the boxed message.
func (b BoxWriter) Notify(err error) {
	line := strings.Repeat("-", 57)
	fmt.Fprintf(b.W, "\n%s\n", line)
	fmt.Fprintf(b.W, "🚨 FACECURSOR ERROR: %s\n", Message(err))
	if cause := err.Error(); cause != Message(err) {
		fmt.Fprintf(b.W, "DETAILS: %s\n", cause)
	}
	fmt.Fprintf(b.W, "%s\n", line)
}
