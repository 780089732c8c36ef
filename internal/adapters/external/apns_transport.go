package external

import (
	"context"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// APNSClient is the subset of apns2.Client we use
type APNSClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNSTransport implements TokenPushTransport against Apple's HTTP/2 API.
// APNs is unary, so every call carries one device token.
type APNSTransport struct {
	client APNSClient
	topic  string
	now    func() time.Time
}

func NewAPNSTransport(client APNSClient, topic string) (*APNSTransport, error) {
	if client == nil {
		return nil, errors.NewValidationError("apns client cannot be nil")
	}
	if topic == "" {
		return nil, errors.NewValidationError("apns topic cannot be empty")
	}
	return &APNSTransport{client: client, topic: topic, now: time.Now}, nil
}

// NewAPNSTransportFromConfig signs requests with a .p8 auth key.
func NewAPNSTransportFromConfig(cfg config.PushConfig) (*APNSTransport, error) {
	authKey, err := token.AuthKeyFromFile(cfg.APNSKeyFile)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to load APNs auth key", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.APNSKeyID,
		TeamID:  cfg.APNSTeamID,
	})
	if cfg.APNSProduction {
		client = client.Production()
	} else {
		client = client.Development()
	}
	return NewAPNSTransport(client, cfg.APNSBundleID)
}

func (t *APNSTransport) Name() string {
	return "apns"
}

func (t *APNSTransport) SendOne(ctx context.Context, deviceToken string, msg ports.PushMessage) ports.DeliveryResult {
	builder := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body).
		Sound(pushSound).
		Badge(pushBadge)
	for k, v := range msg.Data {
		builder.Custom(k, v)
	}

	res, err := t.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       t.topic,
		Payload:     builder,
		Expiration:  t.now().Add(tokenPushExpiry),
		Priority:    apns2.PriorityHigh,
	})
	if err != nil {
		code := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			code = "timeout"
		}
		return ports.DeliveryResult{Token: deviceToken, Status: ports.DeliveryTransient, ErrorCode: code}
	}
	if res.Sent() {
		return ports.DeliveryResult{Token: deviceToken, Status: ports.DeliverySent}
	}

	switch res.Reason {
	case apns2.ReasonUnregistered:
		return ports.DeliveryResult{Token: deviceToken, Status: ports.DeliveryUnregistered, ErrorCode: res.Reason}
	case apns2.ReasonBadDeviceToken, apns2.ReasonDeviceTokenNotForTopic:
		return ports.DeliveryResult{Token: deviceToken, Status: ports.DeliveryInvalidToken, ErrorCode: res.Reason}
	default:
		return ports.DeliveryResult{Token: deviceToken, Status: ports.DeliveryTransient, ErrorCode: res.Reason}
	}
}
