package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"pushdispatch.app/internal/ports"
)

//go:embed static/index.html
var adminPageHTML []byte

type HealthResponse struct {
	Status      string                       `json:"status"`
	Timestamp   string                       `json:"timestamp"`
	Environment string                       `json:"environment"`
	Components  map[string]ports.HealthStatus `json:"components"`
}

// health handles GET /health requests
func (s *HTTPServerAdapter) health(c *gin.Context) {
	components := s.healthChecker.CheckAll(c.Request.Context())

	resp := HealthResponse{
		Status:      "ok",
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Environment: s.config.Environment,
		Components:  components,
	}
	status := http.StatusOK
	for _, component := range components {
		if component.Status == "unhealthy" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(status, resp)
}

// adminPage serves the manual broadcast form
func (s *HTTPServerAdapter) adminPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", adminPageHTML)
}
