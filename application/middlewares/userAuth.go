package middlewares

import (
	apperrors "shiftguard.io/application/appErrors"
	"shiftguard.io/application/interfaces"
	"shiftguard.io/infrastructure/auth"

	"github.com/golang-jwt/jwt"
)

// UserAuthenticationMiddleware decodes the bearer token and binds the caller
// to the device named in the X-Device-Id header. A token minted on one
// device cannot drive biometric flows on another.
func UserAuthenticationMiddleware(ctx *interfaces.ApplicationContext[any], authToken string) (*interfaces.ApplicationContext[any], bool) {
	if authToken == "" {
		apperrors.AuthenticationError(ctx.Ctx, "provide an auth token")
		return nil, false
	}
	token, err := auth.DecodeAuthToken(authToken)
	if err != nil {
		apperrors.AuthenticationError(ctx.Ctx, "this session has expired or is invalid")
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		apperrors.AuthenticationError(ctx.Ctx, "this session has expired or is invalid")
		return nil, false
	}

	tokenDeviceID, _ := claims["deviceID"].(string)
	if tokenDeviceID == "" || tokenDeviceID != ctx.DeviceID {
		apperrors.AuthenticationError(ctx.Ctx, "this session was started on a different device")
		return nil, false
	}

	userID, _ := claims["userID"].(string)
	if userID == "" {
		apperrors.AuthenticationError(ctx.Ctx, "this session has expired or is invalid")
		return nil, false
	}
	role, _ := claims["role"].(string)

	ctx.SetContextData("UserID", userID)
	ctx.SetContextData("Email", claims["email"])
	ctx.SetContextData("Role", role)
	ctx.SetContextData("DeviceID", ctx.DeviceID)

	return ctx, true
}
