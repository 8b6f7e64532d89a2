package middleware

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
)

// CORS allows every origin to call the API.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept", framework.RequestIDHeader},
		ExposeHeaders:    []string{framework.RequestIDHeader},
		AllowCredentials: false,
	})
}
