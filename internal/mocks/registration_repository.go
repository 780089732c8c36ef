package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"pushdispatch.app/internal/ports"
)

// RegistrationRepository is a testify mock of ports.RegistrationRepository
type RegistrationRepository struct {
	mock.Mock
}

func (m *RegistrationRepository) Upsert(ctx context.Context, reg *ports.RegistrationData) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *RegistrationRepository) FindAll(ctx context.Context) ([]*ports.RegistrationData, error) {
	args := m.Called(ctx)
	regs, _ := args.Get(0).([]*ports.RegistrationData)
	return regs, args.Error(1)
}

func (m *RegistrationRepository) FindByFilter(ctx context.Context, filter ports.RegistrationFilter) ([]*ports.RegistrationData, error) {
	args := m.Called(ctx, filter)
	regs, _ := args.Get(0).([]*ports.RegistrationData)
	return regs, args.Error(1)
}

func (m *RegistrationRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RegistrationRepository) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func NewRegistrationRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *RegistrationRepository {
	m := &RegistrationRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
