package mocks

import (
	"context"

	"signflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, e *model.SigningEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockAuditRepository) ListBySession(ctx context.Context, sessionID string) ([]model.SigningEvent, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SigningEvent), args.Error(1)
}
