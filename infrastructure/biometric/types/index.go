package types

import (
	"fmt"
	"time"
)

// Landmark is a detected facial point. Z is populated only when the client
// detector produces depth.
type Landmark struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

type FaceBounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceDetectionData is one frame's detector output, produced on-device and
// read-only to the verification core.
type FaceDetectionData struct {
	Bounds                  FaceBounds `json:"bounds"`
	FrameWidth              float64    `json:"frameWidth"`
	FrameHeight             float64    `json:"frameHeight"`
	LeftEyeOpenProbability  float64    `json:"leftEyeOpenProbability"`
	RightEyeOpenProbability float64    `json:"rightEyeOpenProbability"`
	FaceID                  string     `json:"faceID"`
	RollAngle               float64    `json:"rollAngle"` // degrees
	YawAngle                float64    `json:"yawAngle"`  // degrees
	Luminance               float64    `json:"luminance"` // ambient light signal, [0,1]
	Landmarks               []Landmark `json:"landmarks,omitempty"`
}

// FaceQuality is recomputed every frame; it has no persistent identity.
type FaceQuality struct {
	Lighting float64 `json:"lighting"`
	Size     float64 `json:"size"`
	Angle    float64 `json:"angle"`
	Overall  float64 `json:"overall"`
	IsValid  bool    `json:"isValid"`
}

type LightingBand string

const (
	LightingExcellent LightingBand = "excellent"
	LightingGood      LightingBand = "good"
	LightingFair      LightingBand = "fair"
	LightingPoor      LightingBand = "poor"
	LightingVeryPoor  LightingBand = "very_poor"
)

// LightingFeedback carries the UI band plus its fixed, ordered remediation
// suggestions.
type LightingFeedback struct {
	Band        LightingBand `json:"band"`
	Suggestions []string     `json:"suggestions"`
}

// CapturedPhoto describes one captured still. The core only reads dimensions
// and the URI; pixels stay on the client.
type CapturedPhoto struct {
	URI    string `json:"uri"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SpoofingAnalysis is computed once per captured photo and immutable after.
type SpoofingAnalysis struct {
	TextureScore    float64 `json:"textureScore"`
	ReflectionScore float64 `json:"reflectionScore"`
	DepthScore      float64 `json:"depthScore"`
	LightingScore   float64 `json:"lightingScore"`
	OverallScore    float64 `json:"overallScore"`
	IsSpoofed       bool    `json:"isSpoofed"`
}

// CapturedAngleResult is one successful angle capture, owned by the capture
// session until aggregation.
type CapturedAngleResult struct {
	Angle            string    `json:"angle"`
	Confidence       float64   `json:"confidence"`
	LivenessDetected bool      `json:"livenessDetected"`
	FaceEncoding     string    `json:"faceEncoding"`
	Timestamp        time.Time `json:"timestamp"`
}

// RegistrationPayload is the aggregate of all angle captures submitted for
// registration. FaceEncoding is a JSON array of the per-angle encodings in
// capture order.
type RegistrationPayload struct {
	Confidence       float64   `json:"confidence"`
	LivenessDetected bool      `json:"livenessDetected"`
	FaceEncoding     string    `json:"faceEncoding"`
	AngleCount       int       `json:"angleCount"`
	CapturedAt       time.Time `json:"capturedAt"`
}

type ErrorKind string

const (
	CaptureError            ErrorKind = "CAPTURE_ERROR"
	QualityRejected         ErrorKind = "QUALITY_REJECTED"
	SpoofingDetected        ErrorKind = "SPOOFING_DETECTED"
	IntegrityCheckFailed    ErrorKind = "INTEGRITY_CHECK_FAILED"
	NetworkError            ErrorKind = "NETWORK_ERROR"
	ProfileExistsConflict   ErrorKind = "PROFILE_EXISTS_CONFLICT"
	LowConfidence           ErrorKind = "LOW_CONFIDENCE"
	LocationRequiredFailure ErrorKind = "LOCATION_REQUIRED_FAILURE"
)

// VerificationError always carries both a machine-readable kind and a
// user-facing message.
type VerificationError struct {
	Kind    ErrorKind
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewVerificationError(kind ErrorKind, message string) *VerificationError {
	return &VerificationError{Kind: kind, Message: message}
}

// KindOf extracts the error kind, defaulting to CAPTURE_ERROR for errors
// raised outside the taxonomy.
func KindOf(err error) ErrorKind {
	if verr, ok := err.(*VerificationError); ok {
		return verr.Kind
	}
	return CaptureError
}
