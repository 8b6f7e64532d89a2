package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
)

// Logger logs request info before and after a handler runs, in the following format:
//
//	TraceID : started : HTTPMethod Path -> IPAddr
//	TraceID : completed : HTTPMethod Path -> IPAddr (StatusCode) (latency)
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := ""
		if state, ok := framework.GetRequestState(c); ok {
			traceID = state.TraceID
		}
		path := c.Request.URL.Path
		start := time.Now()

		logger.Debugf("%s : started : %s %s -> %s", traceID, c.Request.Method, path, c.ClientIP())

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"traceId": traceID,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		entry.Infof("%s : completed : %s %s -> %s", traceID, c.Request.Method, path, c.ClientIP())
	}
}
