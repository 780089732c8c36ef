package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"pushdispatch.app/internal/ports"
)

// TokenPushTransport is a testify mock of ports.TokenPushTransport
type TokenPushTransport struct {
	mock.Mock
}

func (m *TokenPushTransport) Name() string {
	return "token-push"
}

func (m *TokenPushTransport) SendOne(ctx context.Context, token string, msg ports.PushMessage) ports.DeliveryResult {
	args := m.Called(ctx, token, msg)
	return args.Get(0).(ports.DeliveryResult)
}

func NewTokenPushTransport(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenPushTransport {
	m := &TokenPushTransport{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RelayPushTransport is a testify mock of ports.RelayPushTransport
type RelayPushTransport struct {
	mock.Mock
}

func (m *RelayPushTransport) Name() string {
	return "relay-push"
}

func (m *RelayPushTransport) SendBatch(ctx context.Context, tokens []string, msg ports.PushMessage) []ports.DeliveryResult {
	args := m.Called(ctx, tokens, msg)
	results, _ := args.Get(0).([]ports.DeliveryResult)
	return results
}

func NewRelayPushTransport(t interface {
	mock.TestingT
	Cleanup(func())
}) *RelayPushTransport {
	m := &RelayPushTransport{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
