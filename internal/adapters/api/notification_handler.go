package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/pkg/errors"
)

// Push payloads are capped at 4 KB by both token-push providers.
const (
	maxTitleLength   = 200
	maxMessageLength = 2000
)

type SendNotificationRequest struct {
	Title   string `json:"title" form:"title" binding:"max=200"`
	Message string `json:"message" form:"message" binding:"required,max=2000"`
}

type SendToRecipientsRequest struct {
	RecipientIDs     []string `json:"recipientIds"`
	ContactAddresses []string `json:"contactAddresses"`
	Title            string   `json:"title" binding:"max=200"`
	Message          string   `json:"message" binding:"required,max=2000"`
}

type SendToRecipientsResponse struct {
	Results []dispatch.RecipientSummary `json:"results"`
}

// sendNotification handles POST /api/send-notification requests
func (s *HTTPServerAdapter) sendNotification(c *gin.Context) {
	var httpReq SendNotificationRequest
	if err := c.ShouldBind(&httpReq); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, errors.NewValidationError(fmt.Sprintf(
			"message is required (max %d characters), title max %d characters", maxMessageLength, maxTitleLength)))
		return
	}

	summary, err := s.dispatchUseCase.SendNow(c.Request.Context(), httpReq.Title, httpReq.Message)
	if err != nil {
		slog.Error("Broadcast error", "error", err)
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// sendToRecipients handles POST /api/send-to-recipients requests. Responds
// 207 when only some recipients have devices and 404 when none do.
func (s *HTTPServerAdapter) sendToRecipients(c *gin.Context) {
	var httpReq SendToRecipientsRequest
	if err := c.ShouldBindJSON(&httpReq); err != nil {
		slog.Error("Request binding error", "error", err)
		s.handleError(c, errors.NewValidationError("Invalid request format"))
		return
	}

	results, err := s.dispatchUseCase.SendToRecipients(c.Request.Context(), dispatch.SendToRecipientsParams{
		RecipientIDs:     httpReq.RecipientIDs,
		ContactAddresses: httpReq.ContactAddresses,
		Title:            httpReq.Title,
		Body:             httpReq.Message,
	})
	if err != nil {
		slog.Error("Scoped send error", "error", err)
		s.handleError(c, err)
		return
	}

	found := 0
	for _, r := range results {
		if r.Found {
			found++
		}
	}

	status := http.StatusOK
	switch {
	case found == 0:
		status = http.StatusNotFound
	case found < len(results):
		status = http.StatusMultiStatus
	}
	c.JSON(status, SendToRecipientsResponse{Results: results})
}
