package mocks

import (
	"github.com/stretchr/testify/mock"
	"pushdispatch.app/internal/ports"
)

// ConfigProvider is a testify mock of ports.ConfigProvider
type ConfigProvider struct {
	mock.Mock
}

func (m *ConfigProvider) GetAppConfig() ports.AppConfig {
	return m.Called().Get(0).(ports.AppConfig)
}

func (m *ConfigProvider) GetPushConfig() ports.PushConfig {
	return m.Called().Get(0).(ports.PushConfig)
}

func (m *ConfigProvider) GetCampaignConfig() ports.CampaignConfig {
	return m.Called().Get(0).(ports.CampaignConfig)
}

func (m *ConfigProvider) GetLedgerConfig() ports.LedgerConfig {
	return m.Called().Get(0).(ports.LedgerConfig)
}

func NewConfigProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *ConfigProvider {
	m := &ConfigProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
