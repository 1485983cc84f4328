package engine

import (
	"context"
	"sync"
	"time"
)

// Mock implements Engine and Manager for testing.
type Mock struct {
	// LoadFunc is called when Load is invoked.
	LoadFunc func(opts Options) error

	// ReadyFunc is called when Ready is invoked. Nil means always ready.
	ReadyFunc func() bool

	// InitFunc is called when Init is invoked.
	InitFunc func(in, out Rect, licenseKey string) error

	// UpdateFunc is called when Update is invoked.
	UpdateFunc func(pixels []byte) error

	// FacesFunc is called when Faces is invoked.
	FacesFunc func() []FaceRecord

	// LoadErrFunc is called when LoadErr is invoked. Nil means no failure.
	LoadErrFunc func() error

	mu            sync.Mutex
	calls         []MockCall
	loads         []Options
	activeUpdates int
	maxUpdates    int
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock engine that is immediately ready and finds no faces.
func NewMock() *Mock {
	return &Mock{}
}

// Load records the options and calls LoadFunc.
func (m *Mock) Load(opts Options) error {
	m.record("Load")
	m.mu.Lock()
	m.loads = append(m.loads, opts)
	m.mu.Unlock()
	if m.LoadFunc != nil {
		return m.LoadFunc(opts)
	}
	return nil
}

// Ready calls ReadyFunc and records the call.
func (m *Mock) Ready() bool {
	m.record("Ready")
	if m.ReadyFunc != nil {
		return m.ReadyFunc()
	}
	return true
}

// LoadErr calls LoadErrFunc.
func (m *Mock) LoadErr() error {
	if m.LoadErrFunc != nil {
		return m.LoadErrFunc()
	}
	return nil
}

// Manager returns the mock itself.
func (m *Mock) Manager() Manager {
	return m
}

// Init calls InitFunc and records the call.
func (m *Mock) Init(in, out Rect, licenseKey string) error {
	m.record("Init")
	if m.InitFunc != nil {
		return m.InitFunc(in, out, licenseKey)
	}
	return nil
}

// Update calls UpdateFunc, tracking how many Updates overlap.
func (m *Mock) Update(pixels []byte) error {
	m.record("Update")

	m.mu.Lock()
	m.activeUpdates++
	if m.activeUpdates > m.maxUpdates {
		m.maxUpdates = m.activeUpdates
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.activeUpdates--
		m.mu.Unlock()
	}()

	if m.UpdateFunc != nil {
		return m.UpdateFunc(pixels)
	}
	return nil
}

// Faces calls FacesFunc and records the call.
func (m *Mock) Faces() []FaceRecord {
	m.record("Faces")
	if m.FacesFunc != nil {
		return m.FacesFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallsTo returns the recorded calls to one method.
func (m *Mock) CallsTo(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, c := range m.calls {
		if c.Method == method {
			result = append(result, c)
		}
	}
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	return len(m.CallsTo(method))
}

// Loads returns the options passed to Load.
func (m *Mock) Loads() []Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Options, len(m.loads))
	copy(result, m.loads)
	return result
}

// MaxConcurrentUpdates returns the highest number of overlapping Updates.
func (m *Mock) MaxConcurrentUpdates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxUpdates
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.loads = nil
	m.maxUpdates = 0
}

// ReadySequence returns a ReadyFunc that yields the given values in order
// and then keeps returning the last one.
func ReadySequence(values ...bool) func() bool {
	var mu sync.Mutex
	i := 0
	return func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(values) == 0 {
			return true
		}
		v := values[min(i, len(values)-1)]
		i++
		return v
	}
}

// MockInjector returns an injector that hands out eng and counts calls.
func MockInjector(eng Engine, calls *int) Injector {
	return InjectorFunc(func(ctx context.Context) (Engine, error) {
		if calls != nil {
			*calls++
		}
		return eng, nil
	})
}

// Verify Mock implements Engine and Manager at compile time.
var (
	_ Engine  = (*Mock)(nil)
	_ Manager = (*Mock)(nil)
)
