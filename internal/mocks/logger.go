package mocks

import (
	"github.com/stretchr/testify/mock"
	"pushdispatch.app/internal/ports"
)

// Logger is a testify mock of ports.Logger. Fields are passed to Called as a
// single slice so one expectation covers every arity.
type Logger struct {
	mock.Mock
}

func (m *Logger) Debug(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

func (m *Logger) Info(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

func (m *Logger) Warn(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

func (m *Logger) Error(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

// AllowAll accepts any log call.
func (m *Logger) AllowAll() *Logger {
	for _, level := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(level, mock.Anything, mock.Anything).Maybe()
	}
	return m
}

// NewLogger creates a Logger mock and asserts its expectations on cleanup.
func NewLogger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Logger {
	m := &Logger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
