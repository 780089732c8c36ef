package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

const (
	protocolStatusActive   = "ACTIVE"
	protocolStatusInactive = "INACTIVE"
)

// TreatmentClient implements TreatmentAPI over the treatment tracking REST API
type TreatmentClient struct {
	baseURL string
	token   string
	client  HTTPClient
	logger  ports.Logger
}

type TreatmentClientParams struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Client  HTTPClient
	Logger  ports.Logger
}

type protocolAssignmentResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"startDate"`
	Progress  float64    `json:"progress"`
}

type dailyCheckinResponse struct {
	HasCheckinToday bool `json:"hasCheckinToday"`
	Questions       []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"questions"`
	ExistingResponses []struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	} `json:"existingResponses"`
}

func NewTreatmentClient(params TreatmentClientParams) (*TreatmentClient, error) {
	if params.BaseURL == "" {
		return nil, errors.NewConfigurationError("treatment API base URL cannot be empty", nil)
	}
	if params.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	client := params.Client
	if client == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &TreatmentClient{
		baseURL: strings.TrimRight(params.BaseURL, "/"),
		token:   params.Token,
		client:  client,
		logger:  params.Logger,
	}, nil
}

// GetProtocolAssignments returns the recipient's protocols split into active
// and not-yet-started ones. Other statuses are ignored.
func (c *TreatmentClient) GetProtocolAssignments(ctx context.Context, recipientID string) (*ports.ProtocolAssignments, error) {
	if recipientID == "" {
		return nil, errors.NewValidationError("recipient ID cannot be empty")
	}

	var protocols []protocolAssignmentResponse
	endpoint := fmt.Sprintf("%s/protocols/assignments?userId=%s", c.baseURL, url.QueryEscape(recipientID))
	if err := c.getJSON(ctx, endpoint, &protocols); err != nil {
		return nil, err
	}

	result := &ports.ProtocolAssignments{}
	for _, p := range protocols {
		data := ports.ProtocolData{
			ID:        p.ID,
			Name:      p.Name,
			Status:    p.Status,
			StartDate: p.StartDate,
			Progress:  p.Progress,
		}
		switch strings.ToUpper(p.Status) {
		case protocolStatusActive:
			result.Active = append(result.Active, data)
		case protocolStatusInactive:
			result.Pending = append(result.Pending, data)
		}
	}
	return result, nil
}

// GetDailyCheckin returns today's questions and answers for one protocol.
func (c *TreatmentClient) GetDailyCheckin(ctx context.Context, protocolID string) (*ports.DailyCheckin, error) {
	if protocolID == "" {
		return nil, errors.NewValidationError("protocol ID cannot be empty")
	}

	var resp dailyCheckinResponse
	endpoint := fmt.Sprintf("%s/mobile/daily-checkin?protocolId=%s", c.baseURL, url.QueryEscape(protocolID))
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	checkin := &ports.DailyCheckin{HasCheckinToday: resp.HasCheckinToday}
	for _, q := range resp.Questions {
		checkin.Questions = append(checkin.Questions, ports.CheckinQuestion{ID: q.ID, Text: q.Text})
	}
	for _, r := range resp.ExistingResponses {
		checkin.Responses = append(checkin.Responses, ports.CheckinResponse{QuestionID: r.QuestionID, Answer: r.Answer})
	}
	return checkin, nil
}

func (c *TreatmentClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewExternalAPIError("failed to build treatment API request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewExternalAPIError("failed to call treatment API", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close treatment API response body", ports.F("error", closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.NewExternalAPIError(fmt.Sprintf("treatment API returned status %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewExternalAPIError("failed to decode treatment API response", err)
	}
	return nil
}
