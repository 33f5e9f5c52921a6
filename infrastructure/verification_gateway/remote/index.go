package remote_verification_gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"shiftguard.io/entities"
	biometric_types "shiftguard.io/infrastructure/biometric/types"
	"shiftguard.io/infrastructure/logger"
	"shiftguard.io/infrastructure/network"
	verification_gateway_types "shiftguard.io/infrastructure/verification_gateway/types"
)

type RemoteVerificationGateway struct {
	Network *network.NetworkController
	API_KEY string
}

func (rvg *RemoteVerificationGateway) headers(bearerToken string) *map[string]string {
	return &map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", bearerToken),
		"X-Api-Key":     rvg.API_KEY,
	}
}

func (rvg *RemoteVerificationGateway) Status(ctx context.Context, bearerToken string) (*verification_gateway_types.RemoteProfileStatus, error) {
	response, statusCode, err := rvg.Network.Get("/api/face-verification/status", rvg.headers(bearerToken))
	if err != nil {
		logger.Error("error fetching remote face profile status", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return nil, biometric_types.NewVerificationError(biometric_types.NetworkError,
			"Could not reach the verification service. Check your connection and retry.")
	}
	if *statusCode == http.StatusNotFound {
		return &verification_gateway_types.RemoteProfileStatus{IsRegistered: false}, nil
	}
	if *statusCode != http.StatusOK {
		logger.Error("remote face profile status request was unsuccessful", logger.LoggerOptions{
			Key:  "statusCode",
			Data: *statusCode,
		})
		return nil, biometric_types.NewVerificationError(biometric_types.NetworkError,
			"The verification service returned an unexpected response.")
	}
	var status verification_gateway_types.RemoteProfileStatus
	if err := json.Unmarshal(*response, &status); err != nil {
		return nil, biometric_types.NewVerificationError(biometric_types.NetworkError,
			"Could not parse the verification service response.")
	}
	return &status, nil
}

// Register submits an aggregated registration payload. Consent is asserted
// explicitly in the body. A 409 means a profile already exists for this
// user; the caller must route to profile management rather than retry.
func (rvg *RemoteVerificationGateway) Register(ctx context.Context, payload biometric_types.RegistrationPayload, deviceInfo entities.DeviceInfo, bearerToken string) error {
	response, statusCode, err := rvg.Network.Post("/api/face-verification/register", rvg.headers(bearerToken), map[string]any{
		"faceEncoding": payload.FaceEncoding,
		"consentGiven": true,
		"qualityScore": payload.Confidence,
		"deviceInfo":   deviceInfo,
	})
	if err != nil {
		logger.Error("error submitting face registration", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return biometric_types.NewVerificationError(biometric_types.NetworkError,
			"Could not reach the verification service. Check your connection and retry.")
	}
	if *statusCode == http.StatusConflict {
		return biometric_types.NewVerificationError(biometric_types.ProfileExistsConflict,
			"A face profile already exists for this account. Remove it before registering a new one.")
	}
	if *statusCode != http.StatusOK && *statusCode != http.StatusCreated {
		logger.Error("face registration request was unsuccessful", logger.LoggerOptions{
			Key:  "statusCode",
			Data: *statusCode,
		}, logger.LoggerOptions{
			Key:  "response",
			Data: string(*response),
		})
		return biometric_types.NewVerificationError(biometric_types.NetworkError,
			"The verification service rejected the registration. Try again later.")
	}
	return nil
}

func (rvg *RemoteVerificationGateway) DeleteProfile(ctx context.Context, bearerToken string) error {
	_, statusCode, err := rvg.Network.Delete("/api/face-verification/profile", rvg.headers(bearerToken))
	if err != nil {
		logger.Error("error deleting remote face profile", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		return biometric_types.NewVerificationError(biometric_types.NetworkError,
			"Could not reach the verification service. Check your connection and retry.")
	}
	if *statusCode != http.StatusOK && *statusCode != http.StatusNoContent && *statusCode != http.StatusNotFound {
		return biometric_types.NewVerificationError(biometric_types.NetworkError,
			"The verification service could not delete the profile.")
	}
	return nil
}
