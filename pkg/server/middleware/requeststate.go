package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
)

// RequestState attaches a framework.RequestState to every request. A trace id supplied by the requester in
// X-Request-ID is reused, otherwise a new one is generated. The id is echoed back in the response.
func RequestState() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(framework.RequestIDHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.New().String()
		}
		framework.SetRequestState(c, &framework.RequestState{
			TraceID: traceID,
			Now:     time.Now(),
		})
		c.Header(framework.RequestIDHeader, traceID)
		c.Next()
	}
}
