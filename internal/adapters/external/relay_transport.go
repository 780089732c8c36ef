package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

const (
	defaultRelayURL     = "https://exp.host/--/api/v2/push/send"
	relayMaxBatchSize   = 100
	relayStatusOK       = "ok"
	relayErrUnavailable = "relay-unavailable"
	relayErrRejected    = "relay-rejected"
	relayErrNoTicket    = "missing-result"
)

// RelayTransport implements RelayPushTransport against the Expo push API.
// One HTTP call carries up to 100 messages.
type RelayTransport struct {
	url    string
	client HTTPClient
	logger ports.Logger
}

type RelayTransportParams struct {
	URL     string
	Timeout time.Duration
	Client  HTTPClient
	Logger  ports.Logger
}

type relayMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound string            `json:"sound"`
	Badge int               `json:"badge"`
	Data  map[string]string `json:"data,omitempty"`
}

type relayTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

type relayResponse struct {
	Data []relayTicket `json:"data"`
}

func NewRelayTransport(params RelayTransportParams) (*RelayTransport, error) {
	if params.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	url := params.URL
	if url == "" {
		url = defaultRelayURL
	}
	client := params.Client
	if client == nil {
		timeout := params.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &RelayTransport{url: url, client: client, logger: params.Logger}, nil
}

func (t *RelayTransport) Name() string {
	return "expo"
}

// SendBatch returns one result per token in input order. The relay never
// reports a token as dead; every failure is transient. Batches larger than
// the relay limit are split, and a short answer for one chunk is padded so
// later chunks stay aligned.
func (t *RelayTransport) SendBatch(ctx context.Context, tokens []string, msg ports.PushMessage) []ports.DeliveryResult {
	results := make([]ports.DeliveryResult, 0, len(tokens))
	for start := 0; start < len(tokens); start += relayMaxBatchSize {
		end := start + relayMaxBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		results = append(results, t.sendChunk(ctx, tokens[start:end], msg)...)
	}
	return results
}

func (t *RelayTransport) sendChunk(ctx context.Context, tokens []string, msg ports.PushMessage) []ports.DeliveryResult {
	tickets, err := t.post(ctx, tokens, msg)
	if err != nil {
		t.logger.Warn("Relay push request failed",
			ports.F("tokens", len(tokens)),
			ports.F("error", err))
		return allTransient(tokens, relayErrUnavailable)
	}

	results := make([]ports.DeliveryResult, 0, len(tokens))
	for i, tok := range tokens {
		if i >= len(tickets) {
			results = append(results, ports.DeliveryResult{Token: tok, Status: ports.DeliveryTransient, ErrorCode: relayErrNoTicket})
			continue
		}
		ticket := tickets[i]
		if ticket.Status == relayStatusOK {
			results = append(results, ports.DeliveryResult{Token: tok, Status: ports.DeliverySent})
			continue
		}
		code := ticket.Details.Error
		if code == "" {
			code = relayErrRejected
		}
		t.logger.Debug("Relay rejected message",
			ports.F("error", code),
			ports.F("message", ticket.Message))
		results = append(results, ports.DeliveryResult{Token: tok, Status: ports.DeliveryTransient, ErrorCode: code})
	}
	return results
}

func (t *RelayTransport) post(ctx context.Context, tokens []string, msg ports.PushMessage) ([]relayTicket, error) {
	batch := make([]relayMessage, len(tokens))
	for i, tok := range tokens {
		batch[i] = relayMessage{
			To:    tok,
			Title: msg.Title,
			Body:  msg.Body,
			Sound: pushSound,
			Badge: pushBadge,
			Data:  msg.Data,
		}
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, errors.NewTransportError("failed to encode relay batch", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewTransportError("failed to build relay request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.NewTransportError("failed to call relay", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Warn("Failed to close relay response body", ports.F("error", closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.NewTransportError(fmt.Sprintf("relay returned status %d", resp.StatusCode), nil)
	}

	var decoded relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.NewTransportError("failed to decode relay response", err)
	}
	return decoded.Data, nil
}

func allTransient(tokens []string, code string) []ports.DeliveryResult {
	results := make([]ports.DeliveryResult, len(tokens))
	for i, tok := range tokens {
		results[i] = ports.DeliveryResult{Token: tok, Status: ports.DeliveryTransient, ErrorCode: code}
	}
	return results
}
