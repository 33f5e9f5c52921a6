package controller

import (
	"context"
	"net/http"
	"strings"

	apperrors "shiftguard.io/application/appErrors"
	"shiftguard.io/application/constants"
	"shiftguard.io/application/controller/dto"
	"shiftguard.io/application/interfaces"
	"shiftguard.io/entities"
	"shiftguard.io/infrastructure/auth"
	"shiftguard.io/infrastructure/biometric"
	"shiftguard.io/infrastructure/biometric/types"
	server_response "shiftguard.io/infrastructure/serverResponse"
	"shiftguard.io/infrastructure/validator"
	"shiftguard.io/infrastructure/verification"
	verificationgateway "shiftguard.io/infrastructure/verification_gateway"
)

func requestContext(ctx interface{}) context.Context {
	if rctx, ok := ctx.(context.Context); ok {
		return rctx
	}
	return context.Background()
}

func bearerToken[T any](ctx *interfaces.ApplicationContext[T]) string {
	header := ctx.GetHeader("Authorization")
	if header == nil {
		return ""
	}
	return strings.TrimPrefix(*header, "Bearer ")
}

func deviceInfo[T any](ctx *interfaces.ApplicationContext[T]) entities.DeviceInfo {
	return entities.DeviceInfo{
		DeviceID: ctx.DeviceID,
		Name:     ctx.DeviceName,
		Platform: ctx.UserAgent,
	}
}

// respondVerificationError maps the error taxonomy onto the response codes
// the mobile client routes on.
func respondVerificationError(ctx interface{}, err error) {
	verr, ok := err.(*types.VerificationError)
	if !ok {
		apperrors.UnknownError(ctx, err, nil)
		return
	}
	switch verr.Kind {
	case types.QualityRejected, types.SpoofingDetected:
		apperrors.ClientError(ctx, verr.Message, nil, nil)
	case types.IntegrityCheckFailed:
		apperrors.CustomError(ctx, verr.Message, &constants.FACE_REREGISTRATION_REQUIRED)
	case types.NetworkError:
		apperrors.ExternalDependencyError(ctx, "verification service", "unavailable", verr)
	case types.ProfileExistsConflict:
		apperrors.EntityAlreadyExistsError(ctx, verr.Message, &constants.FACE_PROFILE_EXISTS)
	case types.LowConfidence:
		apperrors.CustomError(ctx, verr.Message, &constants.VERIFICATION_LOW_CONFIDENCE)
	case types.LocationRequiredFailure:
		apperrors.CustomError(ctx, verr.Message, &constants.OUTSIDE_GEOFENCE)
	default:
		apperrors.CustomError(ctx, verr.Message, nil)
	}
}

func StartCaptureSession(ctx *interfaces.ApplicationContext[dto.StartCaptureDTO]) {
	session, err := biometric.CaptureService.StartSession(
		ctx.GetStringContextData("UserID"), deviceInfo(ctx), ctx.Body.ConsentGiven)
	if err != nil {
		verr, ok := err.(*types.VerificationError)
		if ok && strings.Contains(verr.Message, "capture session") {
			apperrors.CustomError(ctx.Ctx, verr.Message, &constants.CAPTURE_SESSION_ACTIVE)
			return
		}
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, "capture session started", map[string]any{
		"sessionID": session.ID,
		"state":     session.State,
		"angles":    constants.CAPTURE_ANGLES,
	}, nil, nil)
}

func BeginAngleCapture(ctx *interfaces.ApplicationContext[any]) {
	sessionID := ctx.GetStringContextData("SessionID")
	if err := biometric.CaptureService.BeginAngle(sessionID); err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	progress, err := biometric.CaptureService.Progress(sessionID)
	if err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "angle capture started", progress, nil, nil)
}

func SubmitAngleCapture(ctx *interfaces.ApplicationContext[dto.SubmitAngleDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	sessionID := ctx.GetStringContextData("SessionID")
	result, err := biometric.CaptureService.SubmitAngle(sessionID, ctx.Body.Frame, ctx.Body.Photo, ctx.Body.Encoding, ctx.Body.Liveness)
	if err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	progress, progressErr := biometric.CaptureService.Progress(sessionID)
	if progressErr != nil {
		respondVerificationError(ctx.Ctx, progressErr)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "angle captured", map[string]any{
		"capture":  result,
		"progress": progress,
	}, nil, nil)
}

func ConfirmSensorRelease(ctx *interfaces.ApplicationContext[any]) {
	if err := biometric.CaptureService.ConfirmSensorRelease(ctx.GetStringContextData("SessionID")); err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "sensor release confirmed", nil, nil, nil)
}

func SubmitRegistration(ctx *interfaces.ApplicationContext[any]) {
	err := biometric.CaptureService.Submit(requestContext(ctx.Ctx),
		ctx.GetStringContextData("SessionID"), verification.FaceBiometricType, bearerToken(ctx))
	if err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, "face profile registered", nil, nil, nil)
}

func AbortCaptureSession(ctx *interfaces.ApplicationContext[any]) {
	if err := biometric.CaptureService.Abort(ctx.GetStringContextData("SessionID")); err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "capture session aborted", nil, nil, nil)
}

func CaptureProgress(ctx *interfaces.ApplicationContext[any]) {
	progress, err := biometric.CaptureService.Progress(ctx.GetStringContextData("SessionID"))
	if err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "capture progress", progress, nil, nil)
}

func FaceProfileStatus(ctx *interfaces.ApplicationContext[any]) {
	status, err := verificationgateway.Gateway.Status(requestContext(ctx.Ctx), bearerToken(ctx))
	if err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	if !status.IsRegistered {
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "no face profile registered", status, nil, &constants.FACE_PROFILE_MISSING)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face profile status", status, nil, nil)
}

// DeleteFaceProfile removes both the remote profile and every locally
// stored template for the user. Deletion is permanent.
func DeleteFaceProfile(ctx *interfaces.ApplicationContext[any]) {
	rctx := requestContext(ctx.Ctx)
	if err := verificationgateway.Gateway.DeleteProfile(rctx, bearerToken(ctx)); err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	if err := biometric.StorageManager.Delete(rctx, ctx.GetStringContextData("UserID"), nil); err != nil {
		respondVerificationError(ctx.Ctx, err)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "face profile deleted", nil, nil, nil)
}

// VerifyShift runs the location then face flow for a clock action. Domain
// failures come back as outcomes on the summary with a routing code, never
// as bare HTTP errors.
func VerifyShift(ctx *interfaces.ApplicationContext[dto.VerifyShiftDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}

	overrideApproved := false
	overrideReason := ""
	if ctx.Body.Override != nil {
		if !auth.VerifyManagerOverrideCode(ctx.Body.Override.ManagerID, ctx.Body.Override.Code) {
			apperrors.AuthenticationError(ctx.Ctx, "invalid manager override code")
			return
		}
		overrideApproved = true
		overrideReason = ctx.Body.Override.Reason
	}

	summary, err := verification.FlowService.Run(requestContext(ctx.Ctx), ctx.Body.Config, verification.VerificationRequest{
		UserID:          ctx.GetStringContextData("UserID"),
		DeviceID:        ctx.DeviceID,
		Site:            ctx.Body.Site,
		Location:        ctx.Body.Location,
		Probe:           ctx.Body.Probe,
		ManagerOverride: overrideApproved,
		OverrideReason:  overrideReason,
	})
	if err != nil && summary == nil {
		apperrors.ClientError(ctx.Ctx, err.Error(), nil, nil)
		return
	}

	switch summary.Outcome {
	case verification.OutcomeVerified:
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "shift verified", summary, nil, nil)
	case verification.OutcomeLowConfidence:
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "verification confidence too low", summary, nil, &constants.VERIFICATION_LOW_CONFIDENCE)
	default:
		responseCode := verificationFailureCode(summary)
		server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "verification failed", summary, nil, responseCode)
	}
}

// SetOverrideCode provisions the calling manager's geofence override code.
// The code is argon-hashed before it is stored; without one on file every
// override attempt against this manager is refused.
func SetOverrideCode(ctx *interfaces.ApplicationContext[dto.SetOverrideCodeDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr)
		return
	}
	if ctx.GetStringContextData("Role") != constants.MANAGER_ROLE {
		apperrors.AuthenticationError(ctx.Ctx, "only managers can hold an override code")
		return
	}
	if err := auth.SetManagerOverrideCode(ctx.GetStringContextData("UserID"), ctx.Body.Code); err != nil {
		apperrors.UnknownError(ctx.Ctx, err, nil)
		return
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "override code set", nil, nil, nil)
}

func verificationFailureCode(summary *verification.VerificationFlowSummary) *uint {
	if summary.FailureKind == nil {
		return nil
	}
	switch *summary.FailureKind {
	case types.LocationRequiredFailure:
		return &constants.OUTSIDE_GEOFENCE
	case types.IntegrityCheckFailed:
		return &constants.FACE_REREGISTRATION_REQUIRED
	case types.ProfileExistsConflict:
		return &constants.FACE_PROFILE_EXISTS
	}
	return nil
}
