package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/logging"
)

// ErrorMiddleware renders the first error a handler attached with c.Error
// as {"error": message}.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := apperrors.From(c.Errors[0].Err)
		if appErr.Code >= http.StatusInternalServerError {
			logging.Logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.Error(c.Errors[0].Err),
			)
		}
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
	}
}
