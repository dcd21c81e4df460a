package mocks

import (
	"context"

	"signflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, s *model.SigningSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id string) (*model.SigningSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SigningSession), args.Error(1)
}

func (m *MockSessionRepository) CompareAndSwap(ctx context.Context, id string, expectedVersion int64, next *model.SigningSession) error {
	args := m.Called(ctx, id, expectedVersion, next)
	return args.Error(0)
}
