// Package framework is a minimal web framework.
package framework

import (
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbd54566975/cwt-verifier/config"
)

type contextKey string

const (
	KeyRequestState  contextKey = "requestState"
	ShutdownErrorKey contextKey = "shutdownError"

	// RequestIDHeader carries the request's trace id back to the requester.
	RequestIDHeader = "X-Request-ID"
)

func (c contextKey) String() string {
	return string(c)
}

// RequestState is attached to every request by the request state middleware.
type RequestState struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

// GetRequestState returns the state attached to the request, if any.
func GetRequestState(c *gin.Context) (*RequestState, bool) {
	v, ok := c.Get(KeyRequestState.String())
	if !ok {
		return nil, false
	}
	state, ok := v.(*RequestState)
	return state, ok
}

// SetRequestState attaches state to the request.
func SetRequestState(c *gin.Context, state *RequestState) {
	c.Set(KeyRequestState.String(), state)
}

// Server is the entrypoint into our application and what configures our context object for each of our http router.
type Server struct {
	*http.Server
	router   *gin.Engine
	shutdown chan os.Signal
}

// NewHTTPServer creates a Server that handles a set of routes for the application.
func NewHTTPServer(cfg config.ServerConfig, handler *gin.Engine, shutdown chan os.Signal) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              cfg.APIHost,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		router:   handler,
		shutdown: shutdown,
	}
}

// Router exposes the engine for route registration.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// SignalShutdown is used to gracefully shut down the server when an integrity issue is identified.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}
