package biometric

import (
	"math"
	"os"
	"strconv"

	"shiftguard.io/application/utils"
	"shiftguard.io/infrastructure/biometric/types"
)

const (
	lightingWeight = 0.4
	sizeWeight     = 0.3
	angleWeight    = 0.3
)

type QualityConfig struct {
	PassThreshold float64 // minimum overall score
	SubScoreFloor float64 // no single sub-score may fall below this
}

// Threshold defaults are heuristic, not calibrated; override per deployment
// via QUALITY_PASS_THRESHOLD / QUALITY_SUBSCORE_FLOOR.
func DefaultQualityConfig() QualityConfig {
	config := QualityConfig{
		PassThreshold: 0.6,
		SubScoreFloor: 0.2,
	}
	if raw := os.Getenv("QUALITY_PASS_THRESHOLD"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			config.PassThreshold = parsed
		}
	}
	if raw := os.Getenv("QUALITY_SUBSCORE_FLOOR"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			config.SubScoreFloor = parsed
		}
	}
	return config
}

// QualityAnalyzer scores a single detector frame. Analyze is a pure function
// of its input.
type QualityAnalyzer struct {
	Config QualityConfig
}

func NewQualityAnalyzer(config QualityConfig) *QualityAnalyzer {
	return &QualityAnalyzer{Config: config}
}

func (qa *QualityAnalyzer) Analyze(sample types.FaceDetectionData) types.FaceQuality {
	lighting := qa.lightingScore(sample)
	size := qa.sizeScore(sample)
	angle := qa.angleScore(sample)

	overall := utils.Clamp01(lighting*lightingWeight + size*sizeWeight + angle*angleWeight)

	minSubScore := math.Min(lighting, math.Min(size, angle))
	isValid := overall >= qa.Config.PassThreshold && minSubScore >= qa.Config.SubScoreFloor

	return types.FaceQuality{
		Lighting: lighting,
		Size:     size,
		Angle:    angle,
		Overall:  overall,
		IsValid:  isValid,
	}
}

// lighting blends the ambient luminance signal with eye-open probabilities.
// Closed or unreadable eyes usually mean the face is under- or over-exposed.
func (qa *QualityAnalyzer) lightingScore(sample types.FaceDetectionData) float64 {
	eyeOpenness := (sample.LeftEyeOpenProbability + sample.RightEyeOpenProbability) / 2
	return utils.Clamp01(sample.Luminance*0.5 + eyeOpenness*0.5)
}

func (qa *QualityAnalyzer) sizeScore(sample types.FaceDetectionData) float64 {
	frameArea := sample.FrameWidth * sample.FrameHeight
	if frameArea <= 0 {
		return 0
	}
	faceArea := sample.Bounds.Width * sample.Bounds.Height
	return utils.Clamp01(faceArea / frameArea)
}

func (qa *QualityAnalyzer) angleScore(sample types.FaceDetectionData) float64 {
	return utils.Clamp01(1 - (math.Abs(sample.RollAngle)+math.Abs(sample.YawAngle))/180)
}

var lightingSuggestions = map[types.LightingBand][]string{
	types.LightingExcellent: {},
	types.LightingGood:      {"Hold the position for a moment"},
	types.LightingFair:      {"Move closer to a light source", "Face the light directly"},
	types.LightingPoor:      {"Move to a brighter area", "Avoid strong backlight", "Open your eyes fully"},
	types.LightingVeryPoor:  {"Find a well-lit area before retrying", "Turn on room lighting", "Avoid strong backlight", "Open your eyes fully"},
}

// ClassifyLighting maps a lighting score to a discrete UI band. Bands are
// monotonic in the score.
func ClassifyLighting(score float64) types.LightingFeedback {
	var band types.LightingBand
	switch {
	case score >= 0.8:
		band = types.LightingExcellent
	case score >= 0.6:
		band = types.LightingGood
	case score >= 0.4:
		band = types.LightingFair
	case score >= 0.2:
		band = types.LightingPoor
	default:
		band = types.LightingVeryPoor
	}
	return types.LightingFeedback{
		Band:        band,
		Suggestions: lightingSuggestions[band],
	}
}
