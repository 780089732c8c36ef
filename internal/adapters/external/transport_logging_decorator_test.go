package external

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pushdispatch.app/internal/ports"
)

type logEntry struct {
	level   string
	message string
	fields  map[string]interface{}
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) Debug(msg string, fields ...ports.Field) { l.addEntry("DEBUG", msg, fields...) }
func (l *testLogger) Info(msg string, fields ...ports.Field)  { l.addEntry("INFO", msg, fields...) }
func (l *testLogger) Warn(msg string, fields ...ports.Field)  { l.addEntry("WARN", msg, fields...) }
func (l *testLogger) Error(msg string, fields ...ports.Field) { l.addEntry("ERROR", msg, fields...) }

func (l *testLogger) addEntry(level, message string, fields ...ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.entries = append(l.entries, logEntry{level: level, message: message, fields: m})
}

type stubTokenPush struct {
	result ports.DeliveryResult
}

func (s stubTokenPush) Name() string { return "fcm" }

func (s stubTokenPush) SendOne(ctx context.Context, token string, msg ports.PushMessage) ports.DeliveryResult {
	return s.result
}

type stubRelayPush struct {
	results []ports.DeliveryResult
}

func (s stubRelayPush) Name() string { return "expo" }

func (s stubRelayPush) SendBatch(ctx context.Context, tokens []string, msg ports.PushMessage) []ports.DeliveryResult {
	return s.results
}

func TestTokenPushLoggingDecorator_Success(t *testing.T) {
	logger := &testLogger{}
	decorator := NewTokenPushLoggingDecorator(stubTokenPush{
		result: ports.DeliveryResult{Token: "device-token-123456", Status: ports.DeliverySent},
	}, logger)

	result := decorator.SendOne(context.Background(), "device-token-123456", ports.PushMessage{Title: "t", Body: "b"})

	assert.Equal(t, ports.DeliverySent, result.Status)
	require.Len(t, logger.entries, 2)
	assert.Equal(t, "Push request started", logger.entries[0].message)
	assert.Equal(t, "***123456", logger.entries[0].fields["token"])
	assert.Equal(t, "response", logger.entries[1].fields["event"])
	assert.Contains(t, logger.entries[1].fields, "duration_ms")
	assert.Equal(t, "logged(fcm)", decorator.Name())
}

func TestTokenPushLoggingDecorator_Failure(t *testing.T) {
	logger := &testLogger{}
	decorator := NewTokenPushLoggingDecorator(stubTokenPush{
		result: ports.DeliveryResult{Token: "abc", Status: ports.DeliveryUnregistered, ErrorCode: "registration-token-not-registered"},
	}, logger)

	result := decorator.SendOne(context.Background(), "abc", ports.PushMessage{})

	assert.Equal(t, ports.DeliveryUnregistered, result.Status)
	require.Len(t, logger.entries, 2)
	failure := logger.entries[1]
	assert.Equal(t, "WARN", failure.level)
	assert.Equal(t, "***", failure.fields["token"])
	assert.Equal(t, "unregistered", failure.fields["status"])
	assert.Equal(t, "registration-token-not-registered", failure.fields["error"])
}

func TestRelayPushLoggingDecorator(t *testing.T) {
	t.Run("AllSent", func(t *testing.T) {
		logger := &testLogger{}
		decorator := NewRelayPushLoggingDecorator(stubRelayPush{results: []ports.DeliveryResult{
			{Token: "a", Status: ports.DeliverySent},
			{Token: "b", Status: ports.DeliverySent},
		}}, logger)

		results := decorator.SendBatch(context.Background(), []string{"a", "b"}, ports.PushMessage{})

		assert.Len(t, results, 2)
		require.Len(t, logger.entries, 2)
		assert.Equal(t, "batch_success", logger.entries[1].fields["event"])
		assert.Equal(t, 2, logger.entries[1].fields["sent"])
		assert.Equal(t, "logged(expo)", decorator.Name())
	})

	t.Run("Partial", func(t *testing.T) {
		logger := &testLogger{}
		decorator := NewRelayPushLoggingDecorator(stubRelayPush{results: []ports.DeliveryResult{
			{Token: "a", Status: ports.DeliverySent},
			{Token: "b", Status: ports.DeliveryTransient, ErrorCode: "MessageRateExceeded"},
		}}, logger)

		decorator.SendBatch(context.Background(), []string{"a", "b"}, ports.PushMessage{})

		require.Len(t, logger.entries, 2)
		summary := logger.entries[1]
		assert.Equal(t, "WARN", summary.level)
		assert.Equal(t, map[string]int{"MessageRateExceeded": 1}, summary.fields["errors"])
	})
}
