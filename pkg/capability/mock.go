package capability

// MockEnvironment implements Environment for testing.
type MockEnvironment struct {
	Camera      bool
	Accelerated bool
	Variant     bool

	// SurfaceErr is returned by NewSurface when set.
	SurfaceErr error

	// SurfacePanic makes NewSurface panic with this value when non-nil.
	SurfacePanic any

	SurfacesCreated int
	SurfacesClosed  int
}

// CameraAvailable returns m.Camera.
func (m *MockEnvironment) CameraAvailable() bool { return m.Camera }

// AcceleratedVariant returns m.Variant.
func (m *MockEnvironment) AcceleratedVariant() bool { return m.Variant }

// NewSurface returns a mock surface or the configured failure.
func (m *MockEnvironment) NewSurface(width, height int) (Surface, error) {
	if m.SurfacePanic != nil {
		panic(m.SurfacePanic)
	}
	if m.SurfaceErr != nil {
		return nil, m.SurfaceErr
	}
	m.SurfacesCreated++
	return &mockSurface{env: m}, nil
}

type mockSurface struct {
	env *MockEnvironment
}

func (s *mockSurface) Accelerated() bool { return s.env.Accelerated }

func (s *mockSurface) Close() error {
	s.env.SurfacesClosed++
	return nil
}

// Verify MockEnvironment implements Environment at compile time.
var _ Environment = (*MockEnvironment)(nil)
