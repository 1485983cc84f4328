package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facecursor/internal/log"
	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/fault"
)

func newTestLoader(opts ...Option) *Loader {
	return NewLoader(append([]Option{WithLogger(log.Discard())}, opts...)...)
}

func TestConfig_SelectAndURL(t *testing.T) {
	cfg := DefaultConfig("http://example.com/assets/")

	accel := cfg.Select(capability.SupportState{Supported: true, AcceleratedVariant: true})
	assert.Equal(t, "accelerated", accel.Name)
	assert.Equal(t, "http://example.com/assets/engine_accel/face_detection_yunet_2023mar.wasm", cfg.URL(accel))

	fallback := cfg.Select(capability.SupportState{Supported: true})
	assert.Equal(t, "fallback", fallback.Name)
	assert.Equal(t, "http://example.com/assets/engine_fallback/face_detection_yunet_2023mar.mem", cfg.URL(fallback))
}

func TestLoader_Load_OK(t *testing.T) {
	payload := []byte("engine-bytes-0123456789")
	var requested string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Write(payload)
	}))
	defer srv.Close()

	var lastRead, calls int64
	loader := newTestLoader(WithProgress(func(read, total int64) {
		calls++
		lastRead = read
	}))

	data, err := loader.Load(context.Background(), DefaultConfig(srv.URL+"/"), capability.SupportState{Supported: true, AcceleratedVariant: true})
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "/engine_accel/face_detection_yunet_2023mar.wasm", requested)
	assert.Positive(t, calls)
	assert.Equal(t, int64(len(payload)), lastRead)
}

func TestLoader_Load_BadStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNoContent} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestLoader().Load(context.Background(), DefaultConfig(srv.URL+"/"), capability.SupportState{Supported: true})
		srv.Close()

		require.Error(t, err, "status %d", status)
		assert.True(t, fault.Is(err, fault.ArtifactLoadFailure))

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, status, se.StatusCode)
		assert.Equal(t, status == http.StatusNotFound, se.IsNotFound())
		assert.Equal(t, status >= 500, se.IsServerError())
	}
}

func TestLoader_Load_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/"
	srv.Close()

	_, err := newTestLoader().Load(context.Background(), DefaultConfig(base), capability.SupportState{Supported: true})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.ArtifactLoadFailure))
}

func TestLoader_Load_FileURL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "engine_fallback"), 0o755))

	cfg := DefaultConfig("file://" + dir + "/")
	support := capability.SupportState{Supported: true}

	// Status 0 with no body is a failure.
	_, err := newTestLoader().Load(context.Background(), cfg, support)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyBody)

	// Status 0 with a body succeeds.
	path := filepath.Join(dir, "engine_fallback", cfg.Name+".mem")
	require.NoError(t, os.WriteFile(path, []byte("mem"), 0o644))

	data, err := newTestLoader().Load(context.Background(), cfg, support)
	require.NoError(t, err)
	assert.Equal(t, []byte("mem"), data)
}
