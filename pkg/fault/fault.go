// Package fault defines the typed failures of the face cursor pipeline and
// the single notification path they are presented through.
//
// Components only detect and return errors. Presentation (logging, the
// stderr box, the browser alert) is decided by one top-level Handler.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from this package.
	KindUnknown Kind = iota

	// UnsupportedEnvironment means camera or rendering capability is missing.
	UnsupportedEnvironment

	// ArtifactLoadFailure means the engine artifact could not be fetched.
	ArtifactLoadFailure

	// CameraAcquisitionFailure means the camera was denied or absent.
	CameraAcquisitionFailure

	// EngineNotReady means a bounded readiness wait ran out.
	// With the default unbounded wait it is never produced.
	EngineNotReady
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case UnsupportedEnvironment:
		return "unsupported_environment"
	case ArtifactLoadFailure:
		return "artifact_load_failure"
	case CameraAcquisitionFailure:
		return "camera_acquisition_failure"
	case EngineNotReady:
		return "engine_not_ready"
	default:
		return "unknown"
	}
}

// Fatal reports whether the kind halts the pipeline.
func (k Kind) Fatal() bool {
	return k != KindUnknown
}

// User-facing messages for the fixed-message failures.
const (
	MsgUnsupported = "ERROR: This browser does not support webcams, please try another browser...like Google Chrome!"
	MsgCamera      = "ERROR: Could not access the camera. Check that one is connected and that permission was granted."
	MsgArtifact    = "ERROR: Could not load the face tracking engine."
	MsgEngine      = "ERROR: The face tracking engine did not become ready in time."
)

// Error is a classified pipeline failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op names the operation that failed, e.g. "artifact.load".
	Op string

	// Message is shown to the user.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with the default message for its kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: DefaultMessage(kind), Err: err}
}

// Newf creates a classified error with a custom message.
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// DefaultMessage returns the fixed user-facing message for a kind.
func DefaultMessage(kind Kind) string {
	switch kind {
	case UnsupportedEnvironment:
		return MsgUnsupported
	case ArtifactLoadFailure:
		return MsgArtifact
	case CameraAcquisitionFailure:
		return MsgCamera
	case EngineNotReady:
		return MsgEngine
	default:
		return "ERROR: unexpected failure"
	}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
