package device

import (
	"encoding/json"
	"strings"
	"time"
)

// AnonymousRecipient is assigned to registrations that arrive without a recipient ID
const AnonymousRecipient = "anonymous"

// Registration is one device known to the dispatcher, keyed by its token
type Registration struct {
	Token          string    `json:"token"`
	RecipientID    string    `json:"recipientId"`
	ContactAddress string    `json:"contactAddress,omitempty"`
	Platform       Platform  `json:"platform"`
	CreatedAt      time.Time `json:"createdAt"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Platform represents the device operating system
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformIOS
	PlatformAndroid
)

// String returns the string representation of platform
func (p Platform) String() string {
	switch p {
	case PlatformIOS:
		return "ios"
	case PlatformAndroid:
		return "android"
	default:
		return "unknown"
	}
}

// PlatformFromString converts string to Platform enum. An empty value means
// the client did not say, which historically meant iOS.
func PlatformFromString(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ios":
		return PlatformIOS
	case "android":
		return PlatformAndroid
	default:
		return PlatformUnknown
	}
}

// UnmarshalJSON implements json.Unmarshaler interface
func (p *Platform) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = PlatformFromString(s)
	return nil
}

// MarshalJSON implements json.Marshaler interface
func (p Platform) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalText implements encoding.TextUnmarshaler for form parsing
func (p *Platform) UnmarshalText(text []byte) error {
	*p = PlatformFromString(string(text))
	return nil
}

// MarshalText implements encoding.TextMarshaler for form parsing
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// IsAnonymous reports whether the registration was made without a recipient
func (r *Registration) IsAnonymous() bool {
	return r.RecipientID == AnonymousRecipient
}
