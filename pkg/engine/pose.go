package engine

import "math"

// Five-point landmark order used by YuNet-style detectors.
const (
	LandmarkRightEye = iota
	LandmarkLeftEye
	LandmarkNose
	LandmarkRightMouth
	LandmarkLeftMouth
	landmarkCount
)

// neutralNoseRatio is where the nose sits between the eye line and the
// mouth line on a face looking straight at the camera.
const neutralNoseRatio = 0.45

// PoseFromLandmarks builds a FaceRecord from a bounding box and five facial
// landmarks, all in surface pixels. Rotation is a geometric estimate:
// yaw from the nose offset against the eye midpoint, pitch from the nose
// height between eyes and mouth, roll from the eye line.
func PoseFromLandmarks(x, y, w, h float64, lm [][2]float64, confidence float64) FaceRecord {
	face := FaceRecord{
		TranslationX: x + w/2,
		TranslationY: y + h/2,
		Scale:        w,
		Confidence:   confidence,
		Landmarks:    lm,
	}
	if len(lm) < landmarkCount {
		return face
	}

	re, le, nose := lm[LandmarkRightEye], lm[LandmarkLeftEye], lm[LandmarkNose]
	rm, lmo := lm[LandmarkRightMouth], lm[LandmarkLeftMouth]

	eyeMidX, eyeMidY := (re[0]+le[0])/2, (re[1]+le[1])/2
	mouthMidY := (rm[1] + lmo[1]) / 2
	eyeDist := math.Hypot(le[0]-re[0], le[1]-re[1])

	face.RotationZ = math.Atan2(le[1]-re[1], le[0]-re[0])

	if eyeDist > 0 {
		face.RotationY = math.Asin(clampUnit((nose[0] - eyeMidX) / eyeDist))
	}

	if span := mouthMidY - eyeMidY; span > 0 {
		ratio := (nose[1] - eyeMidY) / span
		face.RotationX = math.Asin(clampUnit((ratio - neutralNoseRatio) * 2))
	}

	return face
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
