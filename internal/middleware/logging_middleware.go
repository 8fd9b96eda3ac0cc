package middleware

import (
	"time"

	"payout-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		status := c.Writer.Status()
		log = log.WithContext(c.Request.Context()).With(
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
		if status >= 500 {
			log.Errorf("%s %s", method, path)
			return
		}
		log.Infof("%s %s", method, path)
	}
}
