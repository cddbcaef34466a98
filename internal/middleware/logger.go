package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"allocation-engine/pkg/logger"
)

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)

		logger.GetLogger().WithFields(map[string]interface{}{
			"status":  c.Writer.Status(),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"query":   c.Request.URL.RawQuery,
			"ip":      c.ClientIP(),
			"user":    c.GetString(identityUserKey),
			"latency": latency.Milliseconds(),
			"errors":  c.Errors.String(),
		}).Info("Request processed")
	}
}
