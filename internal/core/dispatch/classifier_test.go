package dispatch

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRelayToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{"ExpoToken", "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"LowercaseMarker", "expo-abc", true},
		{"UppercaseMarker", "some-EXPO-token", true},
		{"FCMToken", "fGx1:APA91bHun4MxP5egoKMwt2KZFBaFUH", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRelayToken(tt.token, DefaultRelayMarker))
		})
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	b := Classify(nil, DefaultRelayMarker)

	assert.Empty(t, b.TokenPush)
	assert.Empty(t, b.RelayPush)
	assert.Equal(t, 0, b.Len())
}

func TestClassify_PartitionsWithoutLossOrDuplication(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(20)
		tokens := make([]string, n)
		for i := range tokens {
			if rng.Intn(2) == 0 {
				tokens[i] = fmt.Sprintf("ExponentPushToken[%d-%d]", round, i)
			} else {
				tokens[i] = fmt.Sprintf("fcm-%d-%d", round, i)
			}
		}

		b := Classify(tokens, DefaultRelayMarker)

		assert.Equal(t, n, b.Len())
		seen := make(map[string]int, n)
		for _, tok := range b.TokenPush {
			seen[tok]++
			assert.False(t, IsRelayToken(tok, DefaultRelayMarker))
		}
		for _, tok := range b.RelayPush {
			seen[tok]++
			assert.True(t, IsRelayToken(tok, DefaultRelayMarker))
		}
		for _, tok := range tokens {
			assert.Equal(t, 1, seen[tok], "token %s must be in exactly one bucket", tok)
		}
	}
}

func TestClassify_CustomMarker(t *testing.T) {
	b := Classify([]string{"relay:abc", "device-1"}, "relay:")

	assert.Equal(t, []string{"device-1"}, b.TokenPush)
	assert.Equal(t, []string{"relay:abc"}, b.RelayPush)
}
