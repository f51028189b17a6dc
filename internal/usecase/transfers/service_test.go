package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

func TestSchedule_CreatesScheduledTransfer(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	input := ScheduleInput{
		UserAddress:   "0xuser",
		Recipients:    []domain.Recipient{{Address: "0xaaa"}, {Address: "0xbbb"}},
		Amount:        decimal.NewFromInt(100),
		ScheduledDate: time.Now().Add(24 * time.Hour),
		RetryLimit:    3,
	}

	repo.On("Save", ctx, mock.MatchedBy(func(transfer *domain.ScheduledTransfer) bool {
		return transfer.Status == domain.TransferStatusScheduled &&
			transfer.UserAddress == "0xuser" &&
			len(transfer.Recipients) == 2
	})).Return(nil).Once()

	transfer, err := service.Schedule(ctx, input)

	assert.NoError(t, err)
	assert.NotNil(t, transfer)
	assert.Equal(t, domain.TransferStatusScheduled, transfer.Status)
	assert.NotEqual(t, uuid.Nil, transfer.ID)
	repo.AssertExpectations(t)
}

func TestSchedule_InvalidInputIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	input := ScheduleInput{
		UserAddress:   "0xuser",
		Recipients:    []domain.Recipient{{Address: "0xaaa"}},
		Amount:        decimal.Zero,
		ScheduledDate: time.Now().Add(time.Hour),
	}

	transfer, err := service.Schedule(ctx, input)

	assert.Nil(t, transfer)
	assert.ErrorContains(t, err, "amount must be positive")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCancel_ScheduledTransfer(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	transfer := &domain.ScheduledTransfer{
		ID:            uuid.New(),
		UserAddress:   "0xuser",
		Recipients:    []domain.Recipient{{Address: "0xaaa"}},
		Amount:        decimal.NewFromInt(10),
		ScheduledDate: time.Now().Add(time.Hour),
		Status:        domain.TransferStatusScheduled,
	}

	repo.On("GetByID", ctx, transfer.ID).Return(transfer, nil)
	repo.On("Save", ctx, mock.MatchedBy(func(tr *domain.ScheduledTransfer) bool {
		return tr.Status == domain.TransferStatusCancelled
	})).Return(nil).Once()

	cancelled, err := service.Cancel(ctx, transfer.ID)

	assert.NoError(t, err)
	assert.Equal(t, domain.TransferStatusCancelled, cancelled.Status)
	repo.AssertExpectations(t)
}

func TestCancel_RejectedMidExecution(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	// Cancellation raced with the engine and lost: the transfer already
	// transitioned to executing and must resolve to its natural terminal state.
	transfer := &domain.ScheduledTransfer{
		ID:     uuid.New(),
		Status: domain.TransferStatusExecuting,
	}

	repo.On("GetByID", ctx, transfer.ID).Return(transfer, nil)

	cancelled, err := service.Cancel(ctx, transfer.ID)

	assert.Nil(t, cancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransferState)
	assert.Equal(t, domain.TransferStatusExecuting, transfer.Status)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCancel_RejectedOnTerminalStatus(t *testing.T) {
	for _, status := range []domain.TransferStatus{
		domain.TransferStatusCompleted,
		domain.TransferStatusFailed,
		domain.TransferStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			repo := new(MockTransferRepository)
			service := NewService(repo)

			transfer := &domain.ScheduledTransfer{ID: uuid.New(), Status: status}
			repo.On("GetByID", ctx, transfer.ID).Return(transfer, nil)

			cancelled, err := service.Cancel(ctx, transfer.ID)

			assert.Nil(t, cancelled)
			assert.ErrorIs(t, err, domain.ErrInvalidTransferState)
		})
	}
}

func TestGet_PassesThroughNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTransferRepository)
	service := NewService(repo)

	id := uuid.New()
	repo.On("GetByID", ctx, id).Return(nil, domain.ErrTransferNotFound)

	transfer, err := service.Get(ctx, id)

	assert.Nil(t, transfer)
	assert.ErrorIs(t, err, domain.ErrTransferNotFound)
}
