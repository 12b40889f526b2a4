package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreatePaper(ctx context.Context, p Paper) (Paper, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(Paper), args.Error(1)
}

func (m *MockStore) GetPaper(ctx context.Context, id uuid.UUID) (Paper, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Paper), args.Error(1)
}

func (m *MockStore) UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus, lastError string) error {
	args := m.Called(ctx, id, status, lastError)
	return args.Error(0)
}

func (m *MockStore) SaveSummary(ctx context.Context, s Summary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStore) GetSummary(ctx context.Context, paperID uuid.UUID) (Summary, error) {
	args := m.Called(ctx, paperID)
	return args.Get(0).(Summary), args.Error(1)
}

func (m *MockStore) PrunePapers(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
