package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"pushdispatch.app/internal/core/device"
	"pushdispatch.app/pkg/errors"
)

// RegisterDeviceRequest mirrors the payload mobile clients send
type RegisterDeviceRequest struct {
	DeviceToken string `json:"deviceToken" binding:"required"`
	UserID      string `json:"userId"`
	Email       string `json:"email" binding:"omitempty,email"`
	Platform    string `json:"platform" binding:"omitempty,platform"`
}

type RegisterDeviceResponse struct {
	Message string               `json:"message"`
	Device  *device.Registration `json:"device"`
}

type DeviceListResponse struct {
	Count   int                    `json:"count"`
	Devices []*device.Registration `json:"devices"`
}

type DeviceCountResponse struct {
	Count int64 `json:"count"`
}

// registerDevice handles POST /api/register-device requests
func (s *HTTPServerAdapter) registerDevice(c *gin.Context) {
	var httpReq RegisterDeviceRequest
	if err := c.ShouldBindJSON(&httpReq); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, errors.NewValidationError("Invalid request format"))
		return
	}

	reg, err := s.deviceUseCase.RegisterDevice(c.Request.Context(), device.RegisterParams{
		Token:          httpReq.DeviceToken,
		RecipientID:    httpReq.UserID,
		ContactAddress: httpReq.Email,
		Platform:       httpReq.Platform,
	})
	if err != nil {
		slog.Error("Device registration error", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, RegisterDeviceResponse{Message: "Device registered successfully", Device: reg})
}

// listDevices handles GET /api/devices requests
func (s *HTTPServerAdapter) listDevices(c *gin.Context) {
	devices, err := s.deviceUseCase.ListDevices(c.Request.Context())
	if err != nil {
		slog.Error("Device listing error", "error", err)
		s.handleError(c, err)
		return
	}
	if devices == nil {
		devices = []*device.Registration{}
	}
	c.JSON(http.StatusOK, DeviceListResponse{Count: len(devices), Devices: devices})
}

// countDevices handles GET /api/devices/count requests
func (s *HTTPServerAdapter) countDevices(c *gin.Context) {
	count, err := s.deviceUseCase.CountDevices(c.Request.Context())
	if err != nil {
		slog.Error("Device count error", "error", err)
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, DeviceCountResponse{Count: count})
}
