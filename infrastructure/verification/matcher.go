package verification

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"shiftguard.io/application/utils"
	"shiftguard.io/infrastructure/biometric"
	"shiftguard.io/infrastructure/biometric/types"
)

const FaceBiometricType = "face"

// TemplateFaceVerifier matches a live probe against the stored multi-angle
// template. The probe must clear quality, anti-spoofing and liveness before
// similarity is even considered.
type TemplateFaceVerifier struct {
	Quality        *biometric.QualityAnalyzer
	Scorer         biometric.SpoofingScorer
	Storage        *biometric.StorageService
	MatchThreshold float64
}

func NewTemplateFaceVerifier(quality *biometric.QualityAnalyzer, scorer biometric.SpoofingScorer, storage *biometric.StorageService) *TemplateFaceVerifier {
	threshold := 0.8
	if raw := os.Getenv("FACE_MATCH_THRESHOLD"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			threshold = parsed
		}
	}
	return &TemplateFaceVerifier{
		Quality:        quality,
		Scorer:         scorer,
		Storage:        storage,
		MatchThreshold: threshold,
	}
}

func (v *TemplateFaceVerifier) Verify(ctx context.Context, userID string, probe FaceProbe) StepResult {
	fail := func(err error) StepResult {
		return StepResult{Step: StepFace, Success: false, Err: err}
	}

	quality := v.Quality.Analyze(probe.Frame)
	if !quality.IsValid {
		feedback := biometric.ClassifyLighting(quality.Lighting)
		return fail(types.NewVerificationError(types.QualityRejected,
			"Image quality too low for verification (lighting: "+string(feedback.Band)+"). Adjust and retry."))
	}
	if v.Scorer.QuickCheck(probe.Frame) {
		return fail(types.NewVerificationError(types.SpoofingDetected,
			"The captured image does not look like a live face."))
	}
	analysis := v.Scorer.Analyze(probe.Photo, probe.Frame)
	if analysis.IsSpoofed {
		return fail(types.NewVerificationError(types.SpoofingDetected,
			"The captured image does not look like a live face."))
	}
	if !probe.Liveness {
		return fail(types.NewVerificationError(types.SpoofingDetected,
			"No liveness signal was detected. Blink naturally during capture."))
	}

	stored, err := v.Storage.Retrieve(ctx, userID, FaceBiometricType)
	if err != nil {
		return fail(err)
	}
	if stored == nil {
		return fail(types.NewVerificationError(types.CaptureError,
			"No registered face profile was found. Register your face first."))
	}

	var template types.RegistrationPayload
	if err := json.Unmarshal(stored, &template); err != nil {
		return fail(types.NewVerificationError(types.IntegrityCheckFailed,
			"Your stored face profile could not be read. Please register your face again."))
	}
	angleEncodings, err := decodeTemplateEncodings(template.FaceEncoding)
	if err != nil {
		return fail(types.NewVerificationError(types.IntegrityCheckFailed,
			"Your stored face profile could not be read. Please register your face again."))
	}
	probeVector, err := decodeEncoding(probe.Encoding)
	if err != nil {
		return fail(types.NewVerificationError(types.CaptureError,
			"The captured face encoding could not be read."))
	}

	best := 0.0
	for _, angleVector := range angleEncodings {
		if similarity := CosineSimilarity(probeVector, angleVector); similarity > best {
			best = similarity
		}
	}

	confidence := utils.Clamp01(best*0.5 + quality.Overall*0.25 + analysis.OverallScore*0.25)
	return StepResult{
		Step:       StepFace,
		Success:    best >= v.MatchThreshold,
		Confidence: confidence,
	}
}

// CosineSimilarity returns 0 for dimension mismatches and zero vectors
// rather than erroring; a non-match is the safe interpretation.
func CosineSimilarity(a []float64, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return utils.Clamp01(floats.Dot(a, b) / (normA * normB))
}

func decodeEncoding(encoded string) ([]float64, error) {
	var vector []float64
	if err := json.Unmarshal([]byte(encoded), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

func decodeTemplateEncodings(encoded string) ([][]float64, error) {
	var perAngle []string
	if err := json.Unmarshal([]byte(encoded), &perAngle); err != nil {
		return nil, err
	}
	vectors := make([][]float64, 0, len(perAngle))
	for _, angleEncoding := range perAngle {
		vector, err := decodeEncoding(angleEncoding)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}
