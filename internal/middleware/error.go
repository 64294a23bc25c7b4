package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/chamsedd0/neighbor/pkg/errors"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandlerMiddleware renders errors attached with c.Error and recovers panics.
// Toasts raised by the request's stores are included in the error body.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "Internal Server Error",
					"message": "An unexpected error occurred",
				})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := errors.As(err); ok {
			body := gin.H{"error": appErr.Message}
			if toasts := GetToasts(c); len(toasts) > 0 {
				body["toasts"] = toasts
			}
			if appErr.Code >= http.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
			}
			c.JSON(appErr.Code, body)
			return
		}

		logger.Error().Err(err).Msg("Unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
