package biometric

import (
	"testing"

	"shiftguard.io/infrastructure/biometric/types"
)

func wellLitFrame() types.FaceDetectionData {
	return types.FaceDetectionData{
		Bounds:                  types.FaceBounds{X: 250, Y: 200, Width: 500, Height: 500},
		FrameWidth:              1000,
		FrameHeight:             1000,
		LeftEyeOpenProbability:  0.9,
		RightEyeOpenProbability: 0.85,
		FaceID:                  "face-1",
		RollAngle:               2,
		YawAngle:                3,
		Luminance:               0.9,
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	analyzer := NewQualityAnalyzer(DefaultQualityConfig())
	frame := wellLitFrame()

	first := analyzer.Analyze(frame)
	second := analyzer.Analyze(frame)

	if first != second {
		t.Fatalf("expected identical results for identical input, got %+v and %+v", first, second)
	}
	if !first.IsValid {
		t.Fatalf("expected a well lit frame to pass, got %+v", first)
	}
}

func TestAnalyzeScoresStayInRange(t *testing.T) {
	analyzer := NewQualityAnalyzer(DefaultQualityConfig())

	frames := []types.FaceDetectionData{
		wellLitFrame(),
		{},
		{FrameWidth: 100, FrameHeight: 100, Bounds: types.FaceBounds{Width: 500, Height: 500}, Luminance: 5, LeftEyeOpenProbability: 2, RightEyeOpenProbability: 2},
		{FrameWidth: 1000, FrameHeight: 1000, RollAngle: 720, YawAngle: -720},
	}
	for i, frame := range frames {
		quality := analyzer.Analyze(frame)
		for name, score := range map[string]float64{
			"lighting": quality.Lighting,
			"size":     quality.Size,
			"angle":    quality.Angle,
			"overall":  quality.Overall,
		} {
			if score < 0 || score > 1 {
				t.Errorf("frame %d: %s score %v out of range", i, name, score)
			}
		}
	}
}

func TestAnalyzeRejectsLowSubScore(t *testing.T) {
	analyzer := NewQualityAnalyzer(DefaultQualityConfig())

	// face far too small relative to the frame, everything else perfect
	frame := wellLitFrame()
	frame.Bounds.Width = 50
	frame.Bounds.Height = 50

	quality := analyzer.Analyze(frame)
	if quality.IsValid {
		t.Fatalf("expected sub-score floor to reject the frame, got %+v", quality)
	}
}

func TestClassifyLightingBands(t *testing.T) {
	tests := []struct {
		score float64
		band  types.LightingBand
	}{
		{0.95, types.LightingExcellent},
		{0.8, types.LightingExcellent},
		{0.7, types.LightingGood},
		{0.6, types.LightingGood},
		{0.5, types.LightingFair},
		{0.3, types.LightingPoor},
		{0.1, types.LightingVeryPoor},
		{0, types.LightingVeryPoor},
	}
	for _, tt := range tests {
		feedback := ClassifyLighting(tt.score)
		if feedback.Band != tt.band {
			t.Errorf("score %v: expected band %s, got %s", tt.score, tt.band, feedback.Band)
		}
	}
}

func TestClassifyLightingIsMonotonic(t *testing.T) {
	rank := map[types.LightingBand]int{
		types.LightingVeryPoor:  0,
		types.LightingPoor:      1,
		types.LightingFair:      2,
		types.LightingGood:      3,
		types.LightingExcellent: 4,
	}
	previous := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		current := rank[ClassifyLighting(score).Band]
		if current < previous {
			t.Fatalf("band rank decreased at score %v", score)
		}
		previous = current
	}
}

func TestClassifyLightingSuggestionsAreFixed(t *testing.T) {
	first := ClassifyLighting(0.3)
	second := ClassifyLighting(0.3)
	if len(first.Suggestions) != len(second.Suggestions) {
		t.Fatal("suggestions for the same band should be stable")
	}
	for i := range first.Suggestions {
		if first.Suggestions[i] != second.Suggestions[i] {
			t.Fatal("suggestion order should be stable")
		}
	}
	if len(ClassifyLighting(0.05).Suggestions) == 0 {
		t.Fatal("very poor lighting should carry remediation suggestions")
	}
}
