package api

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	errorspkg "pushdispatch.app/pkg/errors"
)

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleError handles different types of application errors
func (s *HTTPServerAdapter) handleError(c *gin.Context, err error) {
	var appErr *errorspkg.AppError
	var statusCode int
	var message string

	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	switch appErr.Type {
	case errorspkg.ErrorTypeValidation:
		statusCode = http.StatusBadRequest
		message = appErr.Message
	case errorspkg.ErrorTypeNotFound:
		statusCode = http.StatusNotFound
		message = appErr.Message
	case errorspkg.ErrorTypeAlreadyExists:
		statusCode = http.StatusConflict
		message = appErr.Message
	case errorspkg.ErrorTypeExternalAPI:
		statusCode = http.StatusServiceUnavailable
		message = "External service unavailable"
	case errorspkg.ErrorTypeTransport:
		statusCode = http.StatusServiceUnavailable
		message = "Push transport unavailable"
	default:
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	c.JSON(statusCode, ErrorResponse{Error: message})
}

// getMetrics handles GET /api/metrics requests
func (s *HTTPServerAdapter) getMetrics(c *gin.Context) {
	slog.Debug("Metrics endpoint called")

	metrics, err := s.metricsCollector.GetMetrics(c.Request.Context())
	if err != nil {
		slog.Error("Error getting metrics", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}
