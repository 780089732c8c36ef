package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MetricsCollector is a testify mock of ports.MetricsCollector
type MetricsCollector struct {
	mock.Mock
}

func (m *MetricsCollector) RecordDelivery(transport string, success bool) {
	m.Called(transport, success)
}

func (m *MetricsCollector) RecordEviction(success bool) {
	m.Called(success)
}

func (m *MetricsCollector) ObserveDispatch(duration time.Duration) {
	m.Called(duration)
}

func (m *MetricsCollector) RecordLedgerLookup(layer string, hit bool) {
	m.Called(layer, hit)
}

func (m *MetricsCollector) RecordCampaignRecipient(job, result string) {
	m.Called(job, result)
}

// AllowAll accepts any metric call.
func (m *MetricsCollector) AllowAll() *MetricsCollector {
	m.On("RecordDelivery", mock.Anything, mock.Anything).Maybe()
	m.On("RecordEviction", mock.Anything).Maybe()
	m.On("ObserveDispatch", mock.Anything).Maybe()
	m.On("RecordLedgerLookup", mock.Anything, mock.Anything).Maybe()
	m.On("RecordCampaignRecipient", mock.Anything, mock.Anything).Maybe()
	return m
}

func NewMetricsCollector(t interface {
	mock.TestingT
	Cleanup(func())
}) *MetricsCollector {
	m := &MetricsCollector{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
