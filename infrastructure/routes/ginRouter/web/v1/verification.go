package routev1

import (
	apperrors "shiftguard.io/application/appErrors"
	"shiftguard.io/application/controller"
	"shiftguard.io/application/controller/dto"
	"shiftguard.io/application/interfaces"
	"github.com/gin-gonic/gin"
)

// VerificationRouter mounts the capture, profile and verify endpoints. The
// caller wires the auth and header middlewares on the parent group.
func VerificationRouter(router *gin.RouterGroup) {
	verificationRouter := router.Group("/verification")
	{
		verificationRouter.POST("/capture", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.StartCaptureDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.StartCaptureSession(&interfaces.ApplicationContext[dto.StartCaptureDTO]{
				Ctx:        ctx,
				Body:       &body,
				Keys:       appContext.Keys,
				Header:     appContext.Header,
				DeviceID:   appContext.DeviceID,
				DeviceName: appContext.DeviceName,
				UserAgent:  appContext.UserAgent,
			})
		})

		verificationRouter.POST("/capture/:sessionID/angle", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			appContext.SetContextData("SessionID", ctx.Param("sessionID"))
			controller.BeginAngleCapture(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.PUT("/capture/:sessionID/angle", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.SubmitAngleDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			appContext.SetContextData("SessionID", ctx.Param("sessionID"))
			controller.SubmitAngleCapture(&interfaces.ApplicationContext[dto.SubmitAngleDTO]{
				Ctx:      ctx,
				Body:     &body,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.POST("/capture/:sessionID/release", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			appContext.SetContextData("SessionID", ctx.Param("sessionID"))
			controller.ConfirmSensorRelease(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.POST("/capture/:sessionID/submit", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			appContext.SetContextData("SessionID", ctx.Param("sessionID"))
			controller.SubmitRegistration(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				Header:   appContext.Header,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.DELETE("/capture/:sessionID", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			appContext.SetContextData("SessionID", ctx.Param("sessionID"))
			controller.AbortCaptureSession(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.GET("/capture/:sessionID", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			appContext.SetContextData("SessionID", ctx.Param("sessionID"))
			controller.CaptureProgress(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.GET("/profile/status", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.FaceProfileStatus(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				Header:   appContext.Header,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.DELETE("/profile", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.DeleteFaceProfile(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     appContext.Keys,
				Header:   appContext.Header,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.POST("/override-code", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.SetOverrideCodeDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.SetOverrideCode(&interfaces.ApplicationContext[dto.SetOverrideCodeDTO]{
				Ctx:      ctx,
				Body:     &body,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})

		verificationRouter.POST("/verify", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.VerifyShiftDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx)
				return
			}
			controller.VerifyShift(&interfaces.ApplicationContext[dto.VerifyShiftDTO]{
				Ctx:      ctx,
				Body:     &body,
				Keys:     appContext.Keys,
				DeviceID: appContext.DeviceID,
			})
		})
	}
}
