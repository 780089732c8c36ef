package external

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

const (
	pushSound       = "default"
	pushBadge       = 1
	androidChannel  = "default"
	tokenPushExpiry = time.Hour
)

// MessagingClient is the subset of the Firebase messaging client we use
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMTransport implements TokenPushTransport using Firebase Cloud Messaging
type FCMTransport struct {
	client MessagingClient
}

// NewFCMTransport wraps an existing messaging client
func NewFCMTransport(client MessagingClient) (*FCMTransport, error) {
	if client == nil {
		return nil, errors.NewValidationError("messaging client cannot be nil")
	}
	return &FCMTransport{client: client}, nil
}

// NewFCMTransportFromConfig initializes a Firebase app from a credentials
// file or from inline service account fields.
func NewFCMTransportFromConfig(ctx context.Context, cfg config.PushConfig) (*FCMTransport, error) {
	var opt option.ClientOption
	switch {
	case cfg.FirebaseCredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	case cfg.HasFirebaseEnvCredentials():
		creds, err := firebaseCredentialsJSON(cfg)
		if err != nil {
			return nil, err
		}
		opt = option.WithCredentialsJSON(creds)
	default:
		return nil, errors.NewConfigurationError("firebase credentials are not configured", nil)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opt)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to initialize firebase app", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to initialize firebase messaging", err)
	}
	return NewFCMTransport(client)
}

func (t *FCMTransport) Name() string {
	return "fcm"
}

// SendOne delivers msg to a single registration token.
func (t *FCMTransport) SendOne(ctx context.Context, token string, msg ports.PushMessage) ports.DeliveryResult {
	_, err := t.client.Send(ctx, buildFCMMessage(token, msg))
	if err == nil {
		return ports.DeliveryResult{Token: token, Status: ports.DeliverySent}
	}
	return classifyFCMError(token, err)
}

func buildFCMMessage(token string, msg ports.PushMessage) *messaging.Message {
	ttl := tokenPushExpiry
	badge := pushBadge
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				Sound:     pushSound,
				ChannelID: androidChannel,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-expiration": expiryHeader(ttl),
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: pushSound,
					Badge: &badge,
				},
			},
		},
	}
}

func classifyFCMError(token string, err error) ports.DeliveryResult {
	switch {
	case messaging.IsUnregistered(err):
		return ports.DeliveryResult{Token: token, Status: ports.DeliveryUnregistered, ErrorCode: "registration-token-not-registered"}
	case messaging.IsInvalidArgument(err):
		return classifyInvalidArgument(token, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ports.DeliveryResult{Token: token, Status: ports.DeliveryTransient, ErrorCode: "timeout"}
	default:
		return ports.DeliveryResult{Token: token, Status: ports.DeliveryTransient, ErrorCode: err.Error()}
	}
}

// classifyInvalidArgument separates a rejected registration token from a
// rejected payload. FCM reports both as INVALID_ARGUMENT.
func classifyInvalidArgument(token, message string) ports.DeliveryResult {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "registration token") || strings.Contains(lower, "registration-token") {
		return ports.DeliveryResult{Token: token, Status: ports.DeliveryInvalidToken, ErrorCode: "invalid-registration-token"}
	}
	return ports.DeliveryResult{Token: token, Status: ports.DeliveryTransient, ErrorCode: "invalid-argument"}
}

func expiryHeader(ttl time.Duration) string {
	return strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
}

// firebaseCredentialsJSON assembles a service account document. Private keys
// passed through env usually carry escaped newlines.
func firebaseCredentialsJSON(cfg config.PushConfig) ([]byte, error) {
	creds, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   cfg.FirebaseProjectID,
		"client_email": cfg.FirebaseClientEmail,
		"private_key":  strings.ReplaceAll(cfg.FirebasePrivateKey, `\n`, "\n"),
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, errors.NewConfigurationError("failed to encode firebase credentials", err)
	}
	return creds, nil
}
