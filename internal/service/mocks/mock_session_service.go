package mocks

import (
	"context"
	"io"

	"signflow/internal/model"
	"signflow/internal/service"
	"signflow/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, in service.CreateSessionInput) (*model.SigningSession, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SigningSession), args.Error(1)
}

func (m *MockSessionService) Advance(ctx context.Context, id, actorEmail string, meta service.RequestMeta) (*service.AdvanceResult, error) {
	args := m.Called(ctx, id, actorEmail, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AdvanceResult), args.Error(1)
}

func (m *MockSessionService) Status(ctx context.Context, id string) (*model.SigningSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SigningSession), args.Error(1)
}

func (m *MockSessionService) LatestArtifact(ctx context.Context, id string) (*service.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Artifact), args.Error(1)
}

func (m *MockSessionService) PresignLatest(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockSessionService) Events(ctx context.Context, id string) ([]model.SigningEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SigningEvent), args.Error(1)
}

type MockFileSigningService struct {
	mock.Mock
}

func (m *MockFileSigningService) SignFile(ctx context.Context, in service.FileSignInput) (*service.FileSignResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileSignResult), args.Error(1)
}

func (m *MockFileSigningService) Download(ctx context.Context, filename string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, storage.ObjectInfo{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}
