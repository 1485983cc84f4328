package tracking

import (
	"math"

	"github.com/teslashibe/go-facecursor/pkg/cursor"
	"github.com/teslashibe/go-facecursor/pkg/engine"
)

// MapToCursor converts a face pose on the canvas to a cursor position on
// the viewport.
//
// The horizontal axis is mirrored and offset by a full canvas width plus
// half a viewport; the vertical axis is a plain scale. Head rotation then
// pushes the cursor by up to one viewport in each direction. The x and y
// formulas are intentionally not symmetric.
func MapToCursor(face engine.FaceRecord, canvas, viewport cursor.Size) cursor.State {
	ratioW := viewport.W / canvas.W
	ratioH := viewport.H / canvas.H

	x := -face.TranslationX*ratioW + canvas.W + viewport.W/2
	y := face.TranslationY * ratioH

	x += math.Sin(face.RotationY) * viewport.W
	y += math.Sin(face.RotationX) * viewport.H

	return cursor.State{X: x, Y: y}
}

// smooth blends next into prev with weight alpha on next.
func smooth(prev, next cursor.State, alpha float64) cursor.State {
	return cursor.State{
		X: alpha*next.X + (1-alpha)*prev.X,
		Y: alpha*next.Y + (1-alpha)*prev.Y,
	}
}
