package camera

import (
	"context"
	"errors"
	"image"
)

// Sentinel errors for camera acquisition.
var (
	// ErrNoDevice is returned when no camera is attached.
	ErrNoDevice = errors.New("camera: no device")

	// ErrPermissionDenied is returned when access to the camera is refused.
	ErrPermissionDenied = errors.New("camera: permission denied")

	// ErrStreamClosed is returned when reading from a closed stream.
	ErrStreamClosed = errors.New("camera: stream closed")
)

// Stream is an open camera stream.
type Stream interface {
	// Read blocks until the next frame is decoded.
	Read() (image.Image, error)

	// Size returns the negotiated frame size, or 0x0 while unknown.
	Size() (width, height int)

	// Close stops the stream. Blocked reads return ErrStreamClosed.
	Close() error
}

// Device opens camera streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}
