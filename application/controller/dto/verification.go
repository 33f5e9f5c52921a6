package dto

import (
	biometric_types "shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/verification"
)

type StartCaptureDTO struct {
	ConsentGiven bool `json:"consentGiven"`
}

type SubmitAngleDTO struct {
	Frame    biometric_types.FaceDetectionData `json:"frame" validate:"required"`
	Photo    biometric_types.CapturedPhoto     `json:"photo" validate:"required"`
	Encoding string                            `json:"encoding" validate:"required"`
	Liveness bool                              `json:"liveness"`
}

// SetOverrideCodeDTO provisions the code a manager later presents to force
// a verification past a failed geofence check.
type SetOverrideCodeDTO struct {
	Code string `json:"code" validate:"required,min=6,max=32"`
}

type ManagerOverrideDTO struct {
	ManagerID string `json:"managerID" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// VerifyShiftDTO drives one verification flow. Config comes from the
// caller's shift policy; Location and Probe may be nil when the matching
// step is not required.
type VerifyShiftDTO struct {
	Config   verification.VerificationConfig `json:"config" validate:"required"`
	Site     verification.Worksite           `json:"site"`
	Location *verification.LocationSample    `json:"location"`
	Probe    *verification.FaceProbe         `json:"probe"`
	Override *ManagerOverrideDTO             `json:"override"`
}
