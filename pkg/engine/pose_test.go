package engine

import (
	"math"
	"testing"
)

// frontalLandmarks returns a symmetric face centred at (cx, cy).
func frontalLandmarks(cx, cy float64) [][2]float64 {
	return [][2]float64{
		{cx - 20, cy - 20}, // right eye
		{cx + 20, cy - 20}, // left eye
		{cx, cy - 20 + 0.45*40},
		{cx - 15, cy + 20}, // right mouth
		{cx + 15, cy + 20}, // left mouth
	}
}

func TestPoseFromLandmarks_Frontal(t *testing.T) {
	face := PoseFromLandmarks(100, 50, 80, 100, frontalLandmarks(140, 100), 0.9)

	if face.TranslationX != 140 || face.TranslationY != 100 {
		t.Errorf("Translation: got (%.1f, %.1f), want (140, 100)", face.TranslationX, face.TranslationY)
	}
	if face.Scale != 80 {
		t.Errorf("Scale: got %.1f, want 80", face.Scale)
	}
	for name, v := range map[string]float64{"pitch": face.RotationX, "yaw": face.RotationY, "roll": face.RotationZ} {
		if math.Abs(v) > 1e-9 {
			t.Errorf("%s: got %v, want 0 for a frontal face", name, v)
		}
	}
}

func TestPoseFromLandmarks_Turned(t *testing.T) {
	tests := []struct {
		name    string
		noseDX  float64
		noseDY  float64
		wantYaw int // sign
		wantPit int // sign
	}{
		{"nose left of centre", -10, 0, -1, 0},
		{"nose right of centre", 10, 0, 1, 0},
		{"nose low", 0, 10, 0, 1},
		{"nose high", 0, -10, 0, -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lm := frontalLandmarks(0, 0)
			lm[LandmarkNose][0] += tc.noseDX
			lm[LandmarkNose][1] += tc.noseDY

			face := PoseFromLandmarks(-40, -50, 80, 100, lm, 1)
			if sign(face.RotationY) != tc.wantYaw {
				t.Errorf("Yaw: got %v, want sign %d", face.RotationY, tc.wantYaw)
			}
			if sign(face.RotationX) != tc.wantPit {
				t.Errorf("Pitch: got %v, want sign %d", face.RotationX, tc.wantPit)
			}
		})
	}
}

func TestPoseFromLandmarks_NoLandmarks(t *testing.T) {
	face := PoseFromLandmarks(0, 0, 10, 10, nil, 0.5)
	if face.RotationX != 0 || face.RotationY != 0 || face.RotationZ != 0 {
		t.Errorf("Expected zero rotation without landmarks, got %+v", face)
	}
	if face.TranslationX != 5 || face.TranslationY != 5 {
		t.Errorf("Translation: got (%v, %v)", face.TranslationX, face.TranslationY)
	}
}

func sign(v float64) int {
	switch {
	case v > 1e-9:
		return 1
	case v < -1e-9:
		return -1
	default:
		return 0
	}
}
