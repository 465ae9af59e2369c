package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/otpauth/internal/monitoring"
	"github.com/charlesng35/otpauth/pkg/response"
)

// HealthHandler reports liveness and readiness probe results.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler wraps a configured health manager.
func NewHealthHandler(manager *monitoring.HealthManager) (*HealthHandler, error) {
	if manager == nil {
		return nil, errors.New("health handler: manager is required")
	}
	return &HealthHandler{manager: manager}, nil
}

// Health answers GET /health with the readiness report. Only a down
// component turns the answer into 503; degraded jobs are reported with 200.
func (h *HealthHandler) Health(c *gin.Context) {
	writeHealthReport(c, h.manager.EvaluateReadiness(requestContext(c)))
}

// Live answers GET /health/live.
func (h *HealthHandler) Live(c *gin.Context) {
	writeHealthReport(c, h.manager.EvaluateLiveness(requestContext(c)))
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if report.Status == monitoring.StatusDown {
		status = http.StatusServiceUnavailable
	}
	response.JSON(c, status, report)
}
