package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"pushdispatch.app/internal/ports"
)

// SendLogRepository is a testify mock of ports.SendLogRepository
type SendLogRepository struct {
	mock.Mock
}

func (m *SendLogRepository) Exists(ctx context.Context, recipientID, kind, periodKey string) (bool, error) {
	args := m.Called(ctx, recipientID, kind, periodKey)
	return args.Bool(0), args.Error(1)
}

func (m *SendLogRepository) InsertIfAbsent(ctx context.Context, record *ports.SendLogData) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *SendLogRepository) FindSince(ctx context.Context, since time.Time) ([]*ports.SendLogData, error) {
	args := m.Called(ctx, since)
	records, _ := args.Get(0).([]*ports.SendLogData)
	return records, args.Error(1)
}

func (m *SendLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func NewSendLogRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *SendLogRepository {
	m := &SendLogRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
