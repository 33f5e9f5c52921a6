package middlewares

import (
	"strings"

	"shiftguard.io/application/interfaces"
	"shiftguard.io/application/middlewares"
	"github.com/gin-gonic/gin"
)

// UserAuthenticationMiddleware runs after UserAgentMiddleware and reuses the
// app context it prepared so device details survive the chain.
func UserAuthenticationMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var appContext *interfaces.ApplicationContext[any]
		if existing, ok := ctx.Get("AppContext"); ok {
			appContext = existing.(*interfaces.ApplicationContext[any])
		} else {
			appContext = &interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				Keys:     ctx.Keys,
				Header:   ctx.Request.Header,
				DeviceID: ctx.Request.Header.Get("X-Device-Id"),
			}
		}
		authToken := strings.TrimPrefix(ctx.Request.Header.Get("Authorization"), "Bearer ")
		appContext, next := middlewares.UserAuthenticationMiddleware(appContext, authToken)
		if next {
			ctx.Set("AppContext", appContext)
			ctx.Next()
			return
		}
		ctx.Abort()
	}
}
