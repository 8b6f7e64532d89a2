package middleware

import (
	"expvar"
	"net/http"
	"runtime"
	"strconv"

	"github.com/gin-gonic/gin"
)

// m contains global program counters
var m = struct {
	gr     *expvar.Int
	req    *expvar.Int
	err    *expvar.Int
	status *expvar.Map
}{
	gr:     expvar.NewInt("goroutines"),
	req:    expvar.NewInt("requests"),
	err:    expvar.NewInt("errors"),
	status: expvar.NewMap("responses"),
}

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// increment request counter
		m.req.Add(1)

		// update the counter for the # of active goroutines every 100 requests.
		if m.req.Value()%100 == 0 {
			m.gr.Set(int64(runtime.NumGoroutine()))
		}

		status := c.Writer.Status()
		m.status.Add(strconv.Itoa(status), 1)

		// gin reuses contexts, so the error slice is empty rather than nil when nothing failed
		if len(c.Errors) > 0 || status >= http.StatusInternalServerError {
			m.err.Add(1)
		}
	}
}
