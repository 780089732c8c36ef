package external

import (
	"context"
	"time"

	"pushdispatch.app/internal/ports"
)

const redactedTokenSuffix = 6

// TokenPushLoggingDecorator decorates a token-push transport with structured logging
type TokenPushLoggingDecorator struct {
	transport ports.TokenPushTransport
	logger    ports.Logger
}

func NewTokenPushLoggingDecorator(transport ports.TokenPushTransport, logger ports.Logger) ports.TokenPushTransport {
	return &TokenPushLoggingDecorator{
		transport: transport,
		logger:    logger,
	}
}

// SendOne wraps the transport call with structured logging
func (d *TokenPushLoggingDecorator) SendOne(ctx context.Context, token string, msg ports.PushMessage) ports.DeliveryResult {
	name := d.transport.Name()
	d.logger.Debug("Push request started",
		ports.F("transport", name),
		ports.F("token", redactToken(token)),
		ports.F("event", "request"))

	startTime := time.Now()
	result := d.transport.SendOne(ctx, token, msg)
	duration := time.Since(startTime)

	if result.Status != ports.DeliverySent {
		d.logger.Warn("Push request failed",
			ports.F("transport", name),
			ports.F("token", redactToken(token)),
			ports.F("event", "error"),
			ports.F("duration_ms", duration.Milliseconds()),
			ports.F("status", string(result.Status)),
			ports.F("error", result.ErrorCode))
		return result
	}

	d.logger.Debug("Push request completed",
		ports.F("transport", name),
		ports.F("token", redactToken(token)),
		ports.F("event", "response"),
		ports.F("duration_ms", duration.Milliseconds()))
	return result
}

// Name returns the wrapped transport name with logging indication
func (d *TokenPushLoggingDecorator) Name() string {
	return "logged(" + d.transport.Name() + ")"
}

// RelayPushLoggingDecorator decorates a relay-push transport with structured logging
type RelayPushLoggingDecorator struct {
	transport ports.RelayPushTransport
	logger    ports.Logger
}

func NewRelayPushLoggingDecorator(transport ports.RelayPushTransport, logger ports.Logger) ports.RelayPushTransport {
	return &RelayPushLoggingDecorator{
		transport: transport,
		logger:    logger,
	}
}

// SendBatch wraps the batch call and logs one summary line
func (d *RelayPushLoggingDecorator) SendBatch(ctx context.Context, tokens []string, msg ports.PushMessage) []ports.DeliveryResult {
	name := d.transport.Name()
	d.logger.Debug("Relay batch started",
		ports.F("transport", name),
		ports.F("tokens", len(tokens)),
		ports.F("event", "batch_start"))

	startTime := time.Now()
	results := d.transport.SendBatch(ctx, tokens, msg)
	duration := time.Since(startTime)

	sent := 0
	codes := make(map[string]int)
	for _, r := range results {
		if r.Status == ports.DeliverySent {
			sent++
			continue
		}
		codes[r.ErrorCode]++
	}

	fields := []ports.Field{
		ports.F("transport", name),
		ports.F("tokens", len(tokens)),
		ports.F("results", len(results)),
		ports.F("sent", sent),
		ports.F("duration_ms", duration.Milliseconds()),
	}
	if len(codes) > 0 {
		d.logger.Warn("Relay batch completed with failures",
			append(fields, ports.F("event", "batch_partial"), ports.F("errors", codes))...)
		return results
	}
	d.logger.Debug("Relay batch completed", append(fields, ports.F("event", "batch_success"))...)
	return results
}

func (d *RelayPushLoggingDecorator) Name() string {
	return "logged(" + d.transport.Name() + ")"
}

// redactToken keeps only the tail of a device token.
func redactToken(token string) string {
	if len(token) <= redactedTokenSuffix {
		return "***"
	}
	return "***" + token[len(token)-redactedTokenSuffix:]
}
