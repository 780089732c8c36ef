package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"pushdispatch.app/internal/ports"
)

// TreatmentAPI is a testify mock of ports.TreatmentAPI
type TreatmentAPI struct {
	mock.Mock
}

func (m *TreatmentAPI) GetProtocolAssignments(ctx context.Context, recipientID string) (*ports.ProtocolAssignments, error) {
	args := m.Called(ctx, recipientID)
	assignments, _ := args.Get(0).(*ports.ProtocolAssignments)
	return assignments, args.Error(1)
}

func (m *TreatmentAPI) GetDailyCheckin(ctx context.Context, protocolID string) (*ports.DailyCheckin, error) {
	args := m.Called(ctx, protocolID)
	checkin, _ := args.Get(0).(*ports.DailyCheckin)
	return checkin, args.Error(1)
}

func NewTreatmentAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *TreatmentAPI {
	m := &TreatmentAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
