package external

import (
	"context"

	"pushdispatch.app/internal/config"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

// NewTokenPushTransport builds the configured token-push backend. It returns
// nil without error when token push is disabled.
func NewTokenPushTransport(ctx context.Context, cfg config.PushConfig) (ports.TokenPushTransport, error) {
	switch cfg.TokenProvider {
	case config.TokenPushFCM:
		transport, err := NewFCMTransportFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return transport, nil
	case config.TokenPushAPNS:
		transport, err := NewAPNSTransportFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return transport, nil
	case config.TokenPushDisabled:
		return nil, nil
	default:
		return nil, errors.NewConfigurationError("unsupported token push provider: "+cfg.TokenProvider.String(), nil)
	}
}
