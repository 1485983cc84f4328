package pipeline

import (
	"github.com/teslashibe/go-facecursor/pkg/capability"
	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/fault"
	"github.com/teslashibe/go-facecursor/pkg/tracking"
)

// Stage is where the pipeline is in its lifecycle.
type Stage int

const (
	StageIdle Stage = iota
	StageProbing
	StageLoading
	StageBootstrapping
	StageAcquiring
	StageWaitingReady
	StageTracking
	StageStopped
	StageFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageProbing:
		return "probing"
	case StageLoading:
		return "loading"
	case StageBootstrapping:
		return "bootstrapping"
	case StageAcquiring:
		return "acquiring"
	case StageWaitingReady:
		return "waiting_ready"
	case StageTracking:
		return "tracking"
	case StageStopped:
		return "stopped"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot for the status API.
type Status struct {
	ID         string                   `json:"id"`
	Stage      Stage                    `json:"stage"`
	Tracking   bool                     `json:"tracking"`
	Support    *capability.SupportState `json:"support,omitempty"`
	Variant    string                   `json:"variant,omitempty"`
	Stats      *tracking.Stats          `json:"stats,omitempty"`
	Tuning     tracking.TuningParams    `json:"tuning"`
	Cursor     cursor.State             `json:"cursor"`
	Viewport   cursor.Size              `json:"viewport"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
	CameraOpen bool                     `json:"camera_open"`
}

// Status returns a snapshot of the pipeline.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	st := Status{
		ID:       p.id.String(),
		Stage:    p.stage,
		Tracking: p.tracking.Load(),
		Variant:  p.variant,
		Tuning:   p.tuning,
	}
	if p.support != nil {
		s := *p.support
		st.Support = &s
	}
	if p.loop != nil {
		stats := p.loop.Stats()
		st.Stats = &stats
		st.Tuning = p.loop.GetTuningParams()
	}
	if p.failure != nil {
		st.Error = fault.Message(p.failure)
		st.ErrorKind = fault.KindOf(p.failure).String()
	}
	p.mu.Unlock()

	st.Cursor = p.deps.Cursor.State()
	st.Viewport = p.deps.Cursor.Viewport()
	st.CameraOpen = p.session.Context().Sink.Playing()
	return st
}
