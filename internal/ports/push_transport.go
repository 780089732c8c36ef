package ports

import "context"

// PushMessage is the transport-neutral notification payload
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// DeliveryStatus classifies the result of one delivery attempt
type DeliveryStatus string

const (
	DeliverySent         DeliveryStatus = "sent"
	DeliveryTransient    DeliveryStatus = "transient"
	DeliveryInvalidToken DeliveryStatus = "invalid_token"
	DeliveryUnregistered DeliveryStatus = "unregistered"
)

// IsTerminal reports whether the token must be considered dead.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryInvalidToken || s == DeliveryUnregistered
}

// DeliveryResult is the per-device answer of a transport
type DeliveryResult struct {
	Token     string
	Status    DeliveryStatus
	ErrorCode string
}

// TokenPushTransport delivers to one device per call.
type TokenPushTransport interface {
	Name() string
	SendOne(ctx context.Context, token string, msg PushMessage) DeliveryResult
}

// RelayPushTransport delivers to many devices in one call and returns one
// result per token, in input order.
type RelayPushTransport interface {
	Name() string
	SendBatch(ctx context.Context, tokens []string, msg PushMessage) []DeliveryResult
}
