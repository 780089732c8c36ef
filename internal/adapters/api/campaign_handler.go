package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"pushdispatch.app/internal/core/campaign"
	"pushdispatch.app/pkg/errors"
)

// Manual runs outlive the request that started them.
const manualRunTimeout = 10 * time.Minute

type CampaignListResponse struct {
	Jobs []campaign.Job `json:"jobs"`
}

// listCampaigns handles GET /api/campaigns requests
func (s *HTTPServerAdapter) listCampaigns(c *gin.Context) {
	if s.campaignRunner == nil {
		c.JSON(http.StatusOK, CampaignListResponse{Jobs: []campaign.Job{}})
		return
	}
	c.JSON(http.StatusOK, CampaignListResponse{Jobs: s.campaignRunner.Jobs()})
}

// runCampaign handles POST /api/campaigns/:name/run requests
func (s *HTTPServerAdapter) runCampaign(c *gin.Context) {
	if s.campaignRunner == nil {
		s.handleError(c, errors.NewNotFoundError("campaigns are disabled"))
		return
	}

	name := c.Param("name")
	slog.Info("Manual campaign run requested", "job", name)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), manualRunTimeout)
	defer cancel()

	report, err := s.campaignRunner.RunJob(ctx, name)
	if err != nil {
		slog.Error("Campaign run error", "job", name, "error", err)
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
