package biometric

import (
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
	"shiftguard.io/application/utils"
	"shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/logger"
)

const (
	textureScoreWeight    = 0.3
	reflectionScoreWeight = 0.3
	depthScoreWeight      = 0.2
	spoofLightingWeight   = 0.2

	minPhotoPixels = 300_000
)

type SpoofingConfig struct {
	SpoofThreshold float64 // overall score below this is treated as spoofed
}

// The 0.7 default has no stated provenance; override via SPOOF_THRESHOLD
// once a deployment has calibration data.
func DefaultSpoofingConfig() SpoofingConfig {
	config := SpoofingConfig{SpoofThreshold: 0.7}
	if raw := os.Getenv("SPOOF_THRESHOLD"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			config.SpoofThreshold = parsed
		}
	}
	return config
}

// SpoofingScorer is a pluggable capability. The heuristic implementation
// below ships by default; a model-backed scorer can replace it without
// touching the capture controller or orchestrator.
type SpoofingScorer interface {
	Analyze(photo types.CapturedPhoto, face types.FaceDetectionData) types.SpoofingAnalysis
	QuickCheck(face types.FaceDetectionData) bool
}

type HeuristicSpoofingScorer struct {
	Config SpoofingConfig
}

func NewHeuristicSpoofingScorer(config SpoofingConfig) *HeuristicSpoofingScorer {
	return &HeuristicSpoofingScorer{Config: config}
}

// Analyze never fails open: any panic or NaN inside the scoring pipeline
// yields the conservative result.
func (s *HeuristicSpoofingScorer) Analyze(photo types.CapturedPhoto, face types.FaceDetectionData) (analysis types.SpoofingAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("spoofing analysis panicked, returning conservative result", logger.LoggerOptions{
				Key:  "error",
				Data: r,
			})
			analysis = conservativeAnalysis()
		}
	}()

	texture := s.textureScore(photo)
	reflection := s.reflectionScore(photo)
	depth := s.depthScore(face)
	lighting := s.lightingConsistencyScore(face)

	overall := texture*textureScoreWeight +
		reflection*reflectionScoreWeight +
		depth*depthScoreWeight +
		lighting*spoofLightingWeight

	for _, score := range []float64{texture, reflection, depth, lighting, overall} {
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return conservativeAnalysis()
		}
	}

	return types.SpoofingAnalysis{
		TextureScore:    texture,
		ReflectionScore: reflection,
		DepthScore:      depth,
		LightingScore:   lighting,
		OverallScore:    utils.Clamp01(overall),
		IsSpoofed:       overall < s.Config.SpoofThreshold,
	}
}

// QuickCheck flags frames that are obviously synthetic before the full
// analysis runs. It is an optimization, not a correctness gate.
func (s *HeuristicSpoofingScorer) QuickCheck(face types.FaceDetectionData) bool {
	// a printed photo held on a rig sits dead centre with no head motion
	if face.FrameWidth > 0 && face.FrameHeight > 0 {
		centerX := face.Bounds.X + face.Bounds.Width/2
		centerY := face.Bounds.Y + face.Bounds.Height/2
		offsetX := math.Abs(centerX-face.FrameWidth/2) / face.FrameWidth
		offsetY := math.Abs(centerY-face.FrameHeight/2) / face.FrameHeight
		if offsetX < 0.005 && offsetY < 0.005 && math.Abs(face.RollAngle) < 0.1 && math.Abs(face.YawAngle) < 0.1 {
			return true
		}
	}
	// real detectors never emit exact probabilities
	for _, p := range []float64{face.LeftEyeOpenProbability, face.RightEyeOpenProbability} {
		if p == 0 || p == 1 {
			return true
		}
	}
	return false
}

func (s *HeuristicSpoofingScorer) textureScore(photo types.CapturedPhoto) float64 {
	score := 0.8
	if photo.Width*photo.Height < minPhotoPixels {
		score -= 0.2
	}
	aspect := float64(photo.Width) / float64(photo.Height)
	if aspect < 0.5 || aspect > 2.0 {
		score -= 0.1
	}
	return utils.Clamp01(score)
}

// reflectionScore is a placeholder heuristic. A production deployment should
// swap in a frequency-domain or model-based SpoofingScorer.
func (s *HeuristicSpoofingScorer) reflectionScore(photo types.CapturedPhoto) float64 {
	score := 0.8
	uri := strings.ToLower(photo.URI)
	if strings.Contains(uri, "/tmp/") || strings.Contains(uri, "/cache/") {
		score -= 0.1
	}
	if uri == "" {
		score -= 0.1
	}
	return utils.Clamp01(score)
}

func (s *HeuristicSpoofingScorer) depthScore(face types.FaceDetectionData) float64 {
	zs := []float64{}
	for _, lm := range face.Landmarks {
		if lm.Z != nil {
			zs = append(zs, *lm.Z)
		}
	}
	if len(zs) >= 2 {
		variance := stat.Variance(zs, nil)
		return math.Max(0, 1-variance/100)
	}
	return s.flatDepthScore(face.Landmarks)
}

// flatDepthScore is the 2D fallback: live faces show some variation in the
// distances between consecutive landmarks, flat reproductions less so.
func (s *HeuristicSpoofingScorer) flatDepthScore(landmarks []types.Landmark) float64 {
	if len(landmarks) < 3 {
		return 0.6
	}
	distances := make([]float64, 0, len(landmarks)-1)
	for i := 1; i < len(landmarks); i++ {
		dx := landmarks[i].X - landmarks[i-1].X
		dy := landmarks[i].Y - landmarks[i-1].Y
		distances = append(distances, math.Hypot(dx, dy))
	}
	if stat.Variance(distances, nil) > 5 {
		return 0.8
	}
	return 0.6
}

func (s *HeuristicSpoofingScorer) lightingConsistencyScore(face types.FaceDetectionData) float64 {
	eyeOpenness := (face.LeftEyeOpenProbability + face.RightEyeOpenProbability) / 2
	angleConsistency := utils.Clamp01(1 - (math.Abs(face.RollAngle)+math.Abs(face.YawAngle))/180)
	return utils.Clamp01((eyeOpenness + angleConsistency) / 2)
}

func conservativeAnalysis() types.SpoofingAnalysis {
	return types.SpoofingAnalysis{
		TextureScore:    0.5,
		ReflectionScore: 0.5,
		DepthScore:      0.5,
		LightingScore:   0.5,
		OverallScore:    0.5,
		IsSpoofed:       true,
	}
}
