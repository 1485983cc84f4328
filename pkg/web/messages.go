package web

import (
	"github.com/teslashibe/go-facecursor/pkg/cursor"
)

// Message types sent over the websockets.
const (
	TypeCursor   = "cursor"
	TypeStyle    = "style"
	TypeViewport = "viewport"
	TypeStatus   = "status"
	TypeAlert    = "alert"
	TypeLog      = "log"
)

// Envelope carries only the message type, for dispatch.
type Envelope struct {
	Type string `json:"type"`
}

// CursorMessage moves the cursor element.
type CursorMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// StyleMessage tells the page how to draw the cursor element.
type StyleMessage struct {
	Type  string       `json:"type"`
	Style cursor.Style `json:"style"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
}

// ViewportMessage is sent by the page on load and on every resize.
type ViewportMessage struct {
	Type   string  `json:"type"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AlertMessage is a fatal error to show the user.
type AlertMessage struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// StatusMessage wraps a status snapshot.
type StatusMessage struct {
	Type   string `json:"type"`
	Status any    `json:"status"`
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Type    string `json:"type"`
	Time    string `json:"time"`
	Level   string `json:"level"` // info, face, error
	Message string `json:"message"`
}
