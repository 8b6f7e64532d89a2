package middleware

import (
	"os"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbd54566975/cwt-verifier/config"
	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
)

// Errors handles errors coming out of the call stack. Handlers have already responded to the requester,
// so errors are only logged here. A shutdown error signals the server to stop.
func Errors(shutdown chan os.Signal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		tracer := trace.SpanFromContext(c.Request.Context()).TracerProvider().Tracer(config.ServiceName)
		_, span := tracer.Start(c.Request.Context(), "service.middleware.errors")
		defer span.End()

		errors := c.Errors.ByType(gin.ErrorTypeAny)
		if len(errors) == 0 {
			return
		}

		// check if there's a shutdown-worthy error
		for _, e := range errors {
			if framework.IsShutdown(e.Err) {
				logrus.WithError(e.Err).Error("unsafe error, shutting down")
				c.Set(framework.ShutdownErrorKey.String(), e.Err)
				if shutdown != nil {
					shutdown <- syscall.SIGTERM
				}
				return
			}
		}

		// otherwise just log the errors, the response was written by the handler
		traceID := span.SpanContext().TraceID().String()
		if state, ok := framework.GetRequestState(c); ok {
			traceID = state.TraceID
		}
		logrus.Errorf("%s : ERROR : %v", traceID, errors)
		if !c.Writer.Written() {
			framework.RespondError(c, errors.Last().Err)
		}
	}
}
