package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// MockTransferRepository is a mock implementation of ScheduledTransferRepository for testing
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledTransfer, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledTransfer), args.Error(1)
}

func (m *MockTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTransfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduledTransfer), args.Error(1)
}

func (m *MockTransferRepository) Save(ctx context.Context, transfer *domain.ScheduledTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockTransferRepository) CountByStatus(ctx context.Context, userAddress string) (map[domain.TransferStatus]int, error) {
	args := m.Called(ctx, userAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.TransferStatus]int), args.Error(1)
}

func (m *MockTransferRepository) ExistsForParent(ctx context.Context, parentRecurringID uuid.UUID, scheduledDate time.Time) (bool, error) {
	args := m.Called(ctx, parentRecurringID, scheduledDate)
	return args.Bool(0), args.Error(1)
}

func TestGetScheduledTransferStats(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	repo.On("CountByStatus", ctx, "0xuser").Return(map[domain.TransferStatus]int{
		domain.TransferStatusScheduled: 3,
		domain.TransferStatusCompleted: 5,
		domain.TransferStatusFailed:    1,
	}, nil)

	result, err := service.GetScheduledTransferStats(ctx, "0xuser")

	assert.NoError(t, err)
	assert.Equal(t, 9, result.Total)
	assert.Equal(t, 3, result.Scheduled)
	assert.Equal(t, 0, result.Executing)
	assert.Equal(t, 5, result.Completed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Cancelled)
}

func TestGetScheduledTransferStats_AllUsers(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	repo.On("CountByStatus", ctx, "").Return(map[domain.TransferStatus]int{
		domain.TransferStatusCancelled: 2,
	}, nil)

	result, err := service.GetScheduledTransferStats(ctx, "")

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Cancelled)
}

func TestGetScheduledTransferStats_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	repo.On("CountByStatus", ctx, "").Return(nil, errors.New("connection refused"))

	result, err := service.GetScheduledTransferStats(ctx, "")

	assert.Nil(t, result)
	assert.ErrorContains(t, err, "failed to count transfers by status")
}
