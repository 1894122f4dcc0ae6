package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio/internal/logging"
)

// Recovery turns a panic into a generic 500 and logs the stack trace.
func Recovery(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[PANIC] %s | %s %s | %s | %v\n%s",
					c.GetString(RequestIDKey),
					c.Request.Method,
					c.Request.URL.Path,
					c.ClientIP(),
					err,
					debug.Stack(),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}
