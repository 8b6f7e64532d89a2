package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbd54566975/cwt-verifier/pkg/server/framework"
	svcframework "github.com/tbd54566975/cwt-verifier/pkg/service/framework"
)

type GetReadinessResponse struct {
	Status          svcframework.Status                       `json:"status"`
	ServiceStatuses map[svcframework.Type]svcframework.Status `json:"serviceStatuses"`
}

// Readiness godoc
//
// @Summary     Readiness
// @Description Readiness runs a number of application specific checks to see if all the relied upon services are
// @Description healthy. Responds with a 503 if any service is not ready.
// @Tags        Readiness
// @Accept      json
// @Produce     json
// @Success     200 {object} GetReadinessResponse
// @Failure     503 {object} GetReadinessResponse
// @Router      /readiness [get]
func Readiness(services []svcframework.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		numServices := len(services)
		readyServices := 0
		statuses := make(map[svcframework.Type]svcframework.Status)
		for _, s := range services {
			status := s.Status()
			statuses[s.Type()] = status
			if status.Status == svcframework.StatusReady {
				readyServices++
			}
		}

		var status svcframework.Status
		statusCode := http.StatusOK
		if readyServices < numServices {
			status = svcframework.Status{
				Status:  svcframework.StatusNotReady,
				Message: fmt.Sprintf("out of [%d] service, [%d] are ready", numServices, readyServices),
			}
			statusCode = http.StatusServiceUnavailable
		} else {
			status = svcframework.Status{
				Status:  svcframework.StatusReady,
				Message: "all service ready",
			}
		}
		response := GetReadinessResponse{
			Status:          status,
			ServiceStatuses: statuses,
		}

		framework.Respond(c, response, statusCode)
	}
}
