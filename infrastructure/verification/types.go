package verification

import (
	"context"
	"errors"
	"time"

	"shiftguard.io/infrastructure/biometric/types"
)

const (
	StepLocation = "location"
	StepFace     = "face"
)

const (
	OutcomeVerified      = "verified"
	OutcomeLowConfidence = "low_confidence"
	OutcomeFailed        = "failed"
	OutcomeAborted       = "aborted"
)

// VerificationConfig is supplied by the caller per verification attempt and
// immutable for the duration of one flow.
type VerificationConfig struct {
	RequireLocation       bool    `json:"requireLocation"`
	RequireFace           bool    `json:"requireFace"`
	AllowLocationFallback bool    `json:"allowLocationFallback"`
	AllowFaceFallback     bool    `json:"allowFaceFallback"`
	MaxRetries            int     `json:"maxRetries"`
	ConfidenceThreshold   float64 `json:"confidenceThreshold"`
}

func (c VerificationConfig) Validate() error {
	if !c.RequireLocation && !c.RequireFace {
		return errors.New("at least one verification step must be required")
	}
	if c.MaxRetries < 0 {
		return errors.New("maxRetries cannot be negative")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.New("confidenceThreshold must be within [0,1]")
	}
	return nil
}

// StepResult is the outcome of one step attempt. Err carries the taxonomy
// kind for hard failures; Success false with a nil Err is a soft failure
// (outside geofence, weak face match) that still feeds confidence scoring.
type StepResult struct {
	Step       string  `json:"step"`
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Err        error   `json:"-"`
}

// VerificationFlowSummary is produced exactly once per flow, success or
// terminal failure. CompletedSteps lists the steps that actually executed,
// in flow order: with both steps enabled it is always a prefix of
// [location, face]; a step disabled by the config is absent entirely, so a
// face-only flow reports [face].
type VerificationFlowSummary struct {
	ConfidenceScore float64          `json:"confidenceScore"` // [0,100]
	TotalLatencyMs  int64            `json:"totalLatencyMs"`
	FallbackMode    bool             `json:"fallbackMode"`
	CompletedSteps  []string         `json:"completedSteps"`
	Outcome         string           `json:"outcome"`
	FailureKind     *types.ErrorKind `json:"failureKind"`
	ManagerOverride bool             `json:"managerOverride"`
	OverrideReason  string           `json:"overrideReason,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

type LocationSample struct {
	Latitude       float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude      float64 `json:"longitude" validate:"min=-180,max=180"`
	AccuracyMeters float64 `json:"accuracyMeters" validate:"min=0"`
}

// Worksite is the geofence the employee must be inside to clock in.
type Worksite struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radiusMeters"`
}

// FaceProbe is the live capture submitted for a verification attempt.
type FaceProbe struct {
	Frame    types.FaceDetectionData `json:"frame"`
	Photo    types.CapturedPhoto     `json:"photo"`
	Encoding string                  `json:"encoding"`
	Liveness bool                    `json:"liveness"`
}

type LocationChecker interface {
	Check(ctx context.Context, sample LocationSample, site Worksite) StepResult
}

type FaceVerifier interface {
	Verify(ctx context.Context, userID string, probe FaceProbe) StepResult
}

// AuditSink receives flow summaries and override events. Implementations
// must not block the verification path.
type AuditSink interface {
	RecordFlow(userID string, deviceID string, summary VerificationFlowSummary)
	RecordOverride(userID string, deviceID string, reason string, summary VerificationFlowSummary)
}
