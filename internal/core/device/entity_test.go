package device

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Platform
	}{
		{"ios", PlatformIOS},
		{"IOS", PlatformIOS},
		{"", PlatformIOS},
		{"android", PlatformAndroid},
		{" Android ", PlatformAndroid},
		{"windows-phone", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, PlatformFromString(tt.input))
		})
	}
}

func TestPlatform_JSON(t *testing.T) {
	var payload struct {
		Platform Platform `json:"platform"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"platform":"android"}`), &payload))
	assert.Equal(t, PlatformAndroid, payload.Platform)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"platform":"android"}`, string(out))
}

func TestRegistration_IsAnonymous(t *testing.T) {
	assert.True(t, (&Registration{RecipientID: AnonymousRecipient}).IsAnonymous())
	assert.False(t, (&Registration{RecipientID: "u1"}).IsAnonymous())
}
