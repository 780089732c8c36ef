package dispatch

import "strings"

// DefaultRelayMarker identifies relay-push tokens (e.g. ExponentPushToken[...])
const DefaultRelayMarker = "expo"

// Buckets holds tokens partitioned by transport
type Buckets struct {
	TokenPush []string
	RelayPush []string
}

func (b Buckets) Len() int {
	return len(b.TokenPush) + len(b.RelayPush)
}

// IsRelayToken reports whether token contains marker, ignoring case.
func IsRelayToken(token, marker string) bool {
	if marker == "" {
		marker = DefaultRelayMarker
	}
	return strings.Contains(strings.ToLower(token), strings.ToLower(marker))
}

// Classify partitions tokens by transport. Every token lands in exactly one
// bucket and input order is kept within a bucket.
func Classify(tokens []string, marker string) Buckets {
	var b Buckets
	for _, token := range tokens {
		if IsRelayToken(token, marker) {
			b.RelayPush = append(b.RelayPush, token)
		} else {
			b.TokenPush = append(b.TokenPush, token)
		}
	}
	return b
}
