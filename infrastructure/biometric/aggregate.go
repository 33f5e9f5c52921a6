package biometric

import (
	"encoding/json"
	"fmt"
	"time"

	"shiftguard.io/infrastructure/biometric/types"
)

// Aggregate folds the per-angle capture results into a single registration
// payload: mean confidence, liveness AND, encodings joined as a JSON array
// preserving angle order. Pure function.
func Aggregate(results []types.CapturedAngleResult, expectedAngles int) (*types.RegistrationPayload, error) {
	if len(results) != expectedAngles {
		return nil, types.NewVerificationError(types.CaptureError,
			fmt.Sprintf("expected %d angle captures, got %d", expectedAngles, len(results)))
	}

	confidenceSum := 0.0
	liveness := true
	encodings := make([]string, 0, len(results))
	var latest time.Time
	for _, result := range results {
		confidenceSum += result.Confidence
		liveness = liveness && result.LivenessDetected
		encodings = append(encodings, result.FaceEncoding)
		if result.Timestamp.After(latest) {
			latest = result.Timestamp
		}
	}

	encoded, err := json.Marshal(encodings)
	if err != nil {
		return nil, types.NewVerificationError(types.CaptureError, "could not encode aggregated payload")
	}

	return &types.RegistrationPayload{
		Confidence:       confidenceSum / float64(len(results)),
		LivenessDetected: liveness,
		FaceEncoding:     string(encoded),
		AngleCount:       len(results),
		CapturedAt:       latest,
	}, nil
}
