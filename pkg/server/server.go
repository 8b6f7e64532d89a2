// Package server contains the full set of handler functions and routes
// supported by the http api
package server

import (
	"context"
	"os"

	sdkutil "github.com/TBD54566975/ssi-sdk/util"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbd54566975/cwt-verifier/config"
	"github.com/tbd54566975/cwt-verifier/pkg/resolver"
	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
	"github.com/tbd54566975/cwt-verifier/pkg/server/middleware"
	"github.com/tbd54566975/cwt-verifier/pkg/server/router"
	"github.com/tbd54566975/cwt-verifier/pkg/service"
	svcframework "github.com/tbd54566975/cwt-verifier/pkg/service/framework"
)

const (
	HealthPrefix       = "/health"
	ReadinessPrefix    = "/readiness"
	V1Prefix           = "/v1"
	VerificationPrefix = "/verification"
	IssuersPrefix      = "/issuers"
	KeysPath           = "/keys"
)

// VerifierServer exposes all dependencies needed to run a http server and all its services
type VerifierServer struct {
	*config.ServerConfig
	*service.VerifierService
	*framework.Server
}

// NewVerifierServer does two things: instantiates all service and registers their HTTP bindings
func NewVerifierServer(ctx context.Context, shutdown chan os.Signal, cfg config.VerifierServiceConfig, resolverOpts ...resolver.Option) (*VerifierServer, error) {
	// creates an HTTP server from the framework, and wrap it to extend it for the verifier
	engine := setUpEngine(cfg.Server, shutdown)
	httpServer := framework.NewHTTPServer(cfg.Server, engine, shutdown)
	verifier, err := service.InstantiateVerifierService(ctx, cfg, resolverOpts...)
	if err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate verifier service")
	}

	// service-level routers
	engine.GET(HealthPrefix, router.Health)
	engine.GET(ReadinessPrefix, router.Readiness(verifier.GetServices()))

	// register all v1 routers
	v1 := engine.Group(V1Prefix)
	if err = VerificationAPI(v1, verifier.Verification); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate Verification API")
	}
	if err = IssuerAPI(v1, verifier.Issuer); err != nil {
		return nil, sdkutil.LoggingErrorMsg(err, "unable to instantiate Issuer API")
	}

	return &VerifierServer{
		Server:          httpServer,
		VerifierService: verifier,
		ServerConfig:    &cfg.Server,
	}, nil
}

// setUpEngine creates the gin engine and sets up the middleware based on config
func setUpEngine(cfg config.ServerConfig, shutdown chan os.Signal) *gin.Engine {
	switch cfg.Environment {
	case config.EnvironmentDev:
		gin.SetMode(gin.DebugMode)
	case config.EnvironmentTest:
		gin.SetMode(gin.TestMode)
	case config.EnvironmentProd:
		gin.SetMode(gin.ReleaseMode)
	}

	middlewares := gin.HandlersChain{
		gin.Recovery(),
		otelgin.Middleware(config.ServiceName),
		middleware.RequestState(),
		middleware.Errors(shutdown),
		middleware.Logger(logrus.StandardLogger()),
		middleware.Metrics(),
	}
	if cfg.EnableAllowAllCORS {
		middlewares = append(middlewares, middleware.CORS())
	}

	// set up engine and middleware
	engine := gin.New()
	engine.Use(middlewares...)
	return engine
}

// VerificationAPI registers all HTTP router for the Verification Service
func VerificationAPI(rg *gin.RouterGroup, service svcframework.Service) (err error) {
	verificationRouter, err := router.NewVerificationRouter(service)
	if err != nil {
		return sdkutil.LoggingErrorMsg(err, "creating verification router")
	}

	rg.PUT(VerificationPrefix, verificationRouter.VerifyCredential)
	return
}

// IssuerAPI registers all HTTP router for the Issuer Service
func IssuerAPI(rg *gin.RouterGroup, service svcframework.Service) (err error) {
	issuerRouter, err := router.NewIssuerRouter(service)
	if err != nil {
		return sdkutil.LoggingErrorMsg(err, "creating issuer router")
	}

	issuerAPI := rg.Group(IssuersPrefix)
	issuerAPI.PUT("", issuerRouter.CacheIssuer)
	issuerAPI.PUT(KeysPath, issuerRouter.ResolveKey)
	return
}
