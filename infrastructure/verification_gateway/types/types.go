package verification_gateway_types

import (
	"context"
	"time"

	"shiftguard.io/entities"
	biometric_types "shiftguard.io/infrastructure/biometric/types"
)

// RemoteProfileStatus mirrors the backend's view of a user's face profile.
type RemoteProfileStatus struct {
	IsRegistered      bool       `json:"isRegistered"`
	RegistrationDate  *time.Time `json:"registrationDate"`
	LastVerification  *time.Time `json:"lastVerification"`
	VerificationCount int        `json:"verificationCount"`
	IsActive          bool       `json:"isActive"`
}

// VerificationGatewayType is the remote face profile backend. A registration
// conflict is surfaced as PROFILE_EXISTS_CONFLICT and must never be retried
// automatically.
type VerificationGatewayType interface {
	Status(ctx context.Context, bearerToken string) (*RemoteProfileStatus, error)
	Register(ctx context.Context, payload biometric_types.RegistrationPayload, deviceInfo entities.DeviceInfo, bearerToken string) error
	DeleteProfile(ctx context.Context, bearerToken string) error
}
