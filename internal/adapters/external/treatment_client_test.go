package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pushdispatch.app/internal/mocks"
	"pushdispatch.app/pkg/errors"
)

func newTestTreatmentClient(t *testing.T, handler http.HandlerFunc) *TreatmentClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewTreatmentClient(TreatmentClientParams{
		BaseURL: server.URL + "/api/",
		Token:   "secret",
		Timeout: time.Second,
		Logger:  mocks.NewLogger(t).AllowAll(),
	})
	require.NoError(t, err)
	return client
}

func TestTreatmentClient_GetProtocolAssignments(t *testing.T) {
	client := newTestTreatmentClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/protocols/assignments", r.URL.Path)
		assert.Equal(t, "user 1", r.URL.Query().Get("userId"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"id":"p1","name":"Sleep","status":"ACTIVE","progress":40},
			{"id":"p2","name":"Diet","status":"INACTIVE","startDate":"2024-01-05T00:00:00Z"},
			{"id":"p3","name":"Old","status":"ARCHIVED"}
		]`))
	})

	assignments, err := client.GetProtocolAssignments(context.Background(), "user 1")

	require.NoError(t, err)
	require.Len(t, assignments.Active, 1)
	assert.Equal(t, "p1", assignments.Active[0].ID)
	assert.Equal(t, 40.0, assignments.Active[0].Progress)
	require.Len(t, assignments.Pending, 1)
	require.NotNil(t, assignments.Pending[0].StartDate)
	assert.Equal(t, 5, assignments.Pending[0].StartDate.Day())
}

func TestTreatmentClient_GetDailyCheckin(t *testing.T) {
	client := newTestTreatmentClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mobile/daily-checkin", r.URL.Path)
		assert.Equal(t, "p1", r.URL.Query().Get("protocolId"))
		_, _ = w.Write([]byte(`{
			"hasCheckinToday": true,
			"questions": [{"id":"q1","text":"Sleep hours"},{"id":"q2","text":"Mood"}],
			"existingResponses": [{"questionId":"q1","answer":"7"}]
		}`))
	})

	checkin, err := client.GetDailyCheckin(context.Background(), "p1")

	require.NoError(t, err)
	assert.True(t, checkin.HasCheckinToday)
	assert.Len(t, checkin.Questions, 2)
	require.Len(t, checkin.Responses, 1)
	assert.Equal(t, "q1", checkin.Responses[0].QuestionID)
}

func TestTreatmentClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "Unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "Malformed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"oops"`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestTreatmentClient(t, tt.handler)

			_, err := client.GetProtocolAssignments(context.Background(), "u1")
			assert.True(t, errors.IsExternalAPIError(err))

			_, err = client.GetDailyCheckin(context.Background(), "p1")
			assert.True(t, errors.IsExternalAPIError(err))
		})
	}
}

func TestTreatmentClient_Validation(t *testing.T) {
	client := newTestTreatmentClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.GetProtocolAssignments(context.Background(), "")
	assert.True(t, errors.IsValidationError(err))

	_, err = client.GetDailyCheckin(context.Background(), "")
	assert.True(t, errors.IsValidationError(err))

	_, err = NewTreatmentClient(TreatmentClientParams{Logger: mocks.NewLogger(t)})
	assert.True(t, errors.IsConfigurationError(err))
}
