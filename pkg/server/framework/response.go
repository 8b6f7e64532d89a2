package framework

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Respond convert a Go value to JSON and sends it to the client.
func Respond(c *gin.Context, data any, statusCode int) {
	// set the status code within the context's request state. Gracefully shutdown if
	// the request state doesn't exist in the context
	v, ok := GetRequestState(c)
	if !ok {
		_ = c.Error(NewShutdownError("request state missing from context."))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	v.StatusCode = statusCode

	// if there's no payload to marshal, set the status code of the response and return
	if statusCode == http.StatusNoContent {
		c.Status(statusCode)
		return
	}

	c.JSON(statusCode, data)
}

// RespondError sends an error response back to the client. If the error is a `SafeError`,
// the error message and fields are sent back to the client. If the error is not a
// `SafeError`, a generic error message is sent back to the client.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)

	// if the cause of the error provided is a `SafeError`, construct an ErrorResponse
	// using the contents of SafeError and send it back to the client
	var webErr *SafeError
	if errors.As(err, &webErr) {
		er := ErrorResponse{
			Error:  webErr.Err.Error(),
			Type:   webErr.Type,
			Fields: webErr.Fields,
		}
		Respond(c, er, webErr.StatusCode)
		c.Abort()
		return
	}

	// if the error isn't a `SafeError`, it's not safe to send back the error
	// message as is because it may contain sensitive data. Send back a generic
	// 500.
	er := ErrorResponse{
		Error: http.StatusText(http.StatusInternalServerError),
	}
	Respond(c, er, http.StatusInternalServerError)
	c.Abort()
}

// LoggingRespondErrWithMsg logs err and responds with errMsg. Field errors found in err are kept.
func LoggingRespondErrWithMsg(c *gin.Context, err error, errMsg string, statusCode int) {
	logrus.WithError(err).Error(errMsg)

	safe := &SafeError{Err: errors.New(errMsg), StatusCode: statusCode}
	var webErr *SafeError
	if errors.As(err, &webErr) {
		safe.Fields = webErr.Fields
		safe.Type = webErr.Type
	}
	RespondError(c, safe)
}

// LoggingRespondErrMsg logs and responds with errMsg.
func LoggingRespondErrMsg(c *gin.Context, errMsg string, statusCode int) {
	logrus.Error(errMsg)
	RespondError(c, NewRequestError(errors.New(errMsg), statusCode))
}

// LoggingRespondTypedErr logs err and responds with its message and a category the requester can act on.
func LoggingRespondTypedErr(c *gin.Context, err error, errType string, statusCode int) {
	logrus.WithError(err).Errorf("request failed with %s", errType)
	RespondError(c, NewTypedRequestError(errors.New(err.Error()), errType, statusCode))
}
